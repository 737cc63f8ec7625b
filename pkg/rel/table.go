package rel

import (
	"errors"
	"fmt"
)

// Table is the handle for building relational expressions. Operations
// never mutate: each one validates against the input's schema and returns
// a new handle over a new node, so intermediate tables stay reusable.
type Table struct {
	node TableNode
}

// NewTable builds a leaf relation with the given name and schema.
func NewTable(name string, schema Schema) (Table, error) {
	if name == "" {
		return Table{}, fmt.Errorf("table name must not be empty")
	}
	return Table{node: &TableScan{name: name, schema: schema}}, nil
}

// NewTableOf wraps an existing node in a handle.
func NewTableOf(n TableNode) Table { return Table{node: n} }

// Node returns the underlying relational node.
func (t Table) Node() TableNode { return t.node }

// Schema returns the relation's output schema.
func (t Table) Schema() Schema {
	if t.node == nil {
		return Schema{}
	}
	return t.node.Schema()
}

// Valid reports whether the handle carries a node. The zero Table does not.
func (t Table) Valid() bool { return t.node != nil }

// Column returns a reference to the named column, bound to this exact
// relation. Unknown names fail with SchemaResolutionError.
func (t Table) Column(name string) (Value, error) {
	typ, err := t.Schema().Type(name)
	if err != nil {
		var sre *SchemaResolutionError
		if errors.As(err, &sre) {
			sre.Table = tableLabel(t.node)
		}
		return Value{}, err
	}
	return Value{node: &ColumnRef{table: t.node, name: name, typ: typ}}, nil
}

// Columns returns references to every column, in schema order.
func (t Table) Columns() []Value {
	fields := t.Schema().Fields()
	out := make([]Value, len(fields))
	for i, f := range fields {
		out[i] = Value{node: &ColumnRef{table: t.node, name: f.Name, typ: f.Type}}
	}
	return out
}

// Select projects the given expressions into a new relation. Output names
// are the expressions' derived names; duplicates fail with
// DuplicateColumnError.
func (t Table) Select(cols ...Value) (Table, error) {
	if len(cols) == 0 {
		return Table{}, fmt.Errorf("select requires at least one column")
	}
	label := tableLabel(t.node)
	exprs := make([]ValueNode, len(cols))
	fields := make([]Field, len(cols))
	for i, c := range cols {
		if !c.Valid() {
			return Table{}, fmt.Errorf("select: column %d is the zero Value", i)
		}
		if err := resolveAgainst(c.node, t.node, label); err != nil {
			return Table{}, err
		}
		if containsAggregate(c.node) {
			return Table{}, fmt.Errorf("select: %s is an aggregate, use Aggregate", c.Name())
		}
		name := c.Name()
		if name == "" {
			return Table{}, fmt.Errorf("select: column %d has an empty name", i)
		}
		exprs[i] = c.node
		fields[i] = Field{Name: name, Type: c.Type()}
	}
	schema, err := NewSchema(fields...)
	if err != nil {
		return Table{}, err
	}
	return Table{node: &Projection{input: t.node, exprs: exprs, schema: schema}}, nil
}

// Filter keeps the rows for which the boolean predicate holds.
func (t Table) Filter(pred Value) (Table, error) {
	if !pred.Valid() {
		return Table{}, fmt.Errorf("filter: predicate is the zero Value")
	}
	if pred.Type().Kind() != KindBoolean {
		return Table{}, &TypeMismatchError{Op: "filter", Left: pred.Type(), Right: Boolean}
	}
	if err := resolveAgainst(pred.node, t.node, tableLabel(t.node)); err != nil {
		return Table{}, err
	}
	if containsAggregate(pred.node) {
		return Table{}, fmt.Errorf("filter: predicate cannot contain aggregates")
	}
	return Table{node: &Filter{input: t.node, pred: pred.node}}, nil
}

// GroupBy starts a grouped aggregation over the given key expressions.
// With no keys the aggregation reduces the whole relation to one row.
func (t Table) GroupBy(keys ...Value) (GroupedTable, error) {
	label := tableLabel(t.node)
	keyNodes := make([]ValueNode, len(keys))
	for i, k := range keys {
		if !k.Valid() {
			return GroupedTable{}, fmt.Errorf("group by: key %d is the zero Value", i)
		}
		if err := resolveAgainst(k.node, t.node, label); err != nil {
			return GroupedTable{}, err
		}
		if containsAggregate(k.node) {
			return GroupedTable{}, fmt.Errorf("group by: key %s cannot contain aggregates", k.Name())
		}
		keyNodes[i] = k.node
	}
	return GroupedTable{input: t.node, keys: keyNodes}, nil
}

// Aggregate reduces the whole relation with no grouping keys.
func (t Table) Aggregate(aggs ...Value) (Table, error) {
	return GroupedTable{input: t.node}.Aggregate(aggs...)
}

// Count returns the row count of the relation as a scalar aggregate.
func (t Table) Count() Value {
	return Value{node: &AggregateExpr{kind: AggCountStar, table: t.node, typ: Int64}}
}

// GroupedTable is a relation with grouping keys chosen but aggregates not
// yet applied. It is an intermediate handle, not a relational node.
type GroupedTable struct {
	input TableNode
	keys  []ValueNode
}

// Aggregate computes the aggregate outputs per group. Every output must be
// an aggregate or a function of the grouping keys; a bare reference to any
// other column fails with UngroupedColumnError. The result schema is the
// keys followed by the aggregates.
func (g GroupedTable) Aggregate(aggs ...Value) (Table, error) {
	if len(aggs) == 0 {
		return Table{}, fmt.Errorf("aggregate requires at least one output")
	}
	label := tableLabel(g.input)

	keyPtrs := make(map[ValueNode]bool, len(g.keys))
	keyCols := make(map[string]bool, len(g.keys))
	fields := make([]Field, 0, len(g.keys)+len(aggs))
	for _, k := range g.keys {
		keyPtrs[k] = true
		if ref, ok := unwrapRef(k); ok {
			keyCols[ref.name] = true
		}
		fields = append(fields, Field{Name: DisplayName(k), Type: k.Type()})
	}

	aggNodes := make([]ValueNode, len(aggs))
	for i, a := range aggs {
		if !a.Valid() {
			return Table{}, fmt.Errorf("aggregate: output %d is the zero Value", i)
		}
		if err := resolveAgainst(a.node, g.input, label); err != nil {
			return Table{}, err
		}
		if err := checkAggregated(a.node, keyPtrs, keyCols); err != nil {
			return Table{}, err
		}
		aggNodes[i] = a.node
		fields = append(fields, Field{Name: a.Name(), Type: a.Type()})
	}

	schema, err := NewSchema(fields...)
	if err != nil {
		return Table{}, err
	}
	keys := make([]ValueNode, len(g.keys))
	copy(keys, g.keys)
	return Table{node: &Aggregation{input: g.input, keys: keys, aggs: aggNodes, schema: schema}}, nil
}

// checkAggregated enforces that every column reference in an aggregation
// output sits under an aggregate or matches a grouping key.
func checkAggregated(n ValueNode, keyPtrs map[ValueNode]bool, keyCols map[string]bool) error {
	var err error
	WalkValues(n, func(v ValueNode) bool {
		if err != nil {
			return false
		}
		if keyPtrs[v] {
			return false
		}
		switch e := v.(type) {
		case *AggregateExpr:
			return false
		case *ColumnRef:
			if !keyCols[e.name] {
				err = &UngroupedColumnError{Column: e.name}
			}
			return false
		}
		return true
	})
	return err
}

// unwrapRef peels aliases off an expression and returns the column
// reference underneath, if that is what it is.
func unwrapRef(n ValueNode) (*ColumnRef, bool) {
	for {
		switch e := n.(type) {
		case *AliasExpr:
			n = e.input
		case *ColumnRef:
			return e, true
		default:
			return nil, false
		}
	}
}

// ---- joins ----

// InnerJoin joins two relations keeping only matching rows.
func (t Table) InnerJoin(right Table, pred Value) (Table, error) {
	return t.join(JoinInner, right, pred)
}

// LeftJoin keeps every left row, padding unmatched right columns with null.
func (t Table) LeftJoin(right Table, pred Value) (Table, error) {
	return t.join(JoinLeft, right, pred)
}

// RightJoin keeps every right row, padding unmatched left columns with null.
func (t Table) RightJoin(right Table, pred Value) (Table, error) {
	return t.join(JoinRight, right, pred)
}

// OuterJoin keeps every row from both sides.
func (t Table) OuterJoin(right Table, pred Value) (Table, error) {
	return t.join(JoinOuter, right, pred)
}

func (t Table) join(kind JoinKind, right Table, pred Value) (Table, error) {
	if t.node == right.node {
		return Table{}, fmt.Errorf("%s join: both sides are the same relation, wrap one in View", kind)
	}
	if !pred.Valid() {
		return Table{}, fmt.Errorf("%s join: predicate is the zero Value", kind)
	}
	if pred.Type().Kind() != KindBoolean {
		return Table{}, &TypeMismatchError{Op: kind.String() + " join", Left: pred.Type(), Right: Boolean}
	}
	if containsAggregate(pred.node) {
		return Table{}, fmt.Errorf("%s join: predicate cannot contain aggregates", kind)
	}

	var sawLeft, sawRight bool
	var badRef *ColumnRef
	WalkValues(pred.node, func(v ValueNode) bool {
		if ref, ok := v.(*ColumnRef); ok {
			switch ref.table {
			case t.node:
				sawLeft = true
			case right.node:
				sawRight = true
			default:
				if badRef == nil {
					badRef = ref
				}
			}
		}
		return true
	})
	if badRef != nil {
		return Table{}, &SchemaResolutionError{Table: kind.String() + " join", Column: badRef.name}
	}
	if !sawLeft || !sawRight {
		return Table{}, fmt.Errorf("%s join: predicate must reference both sides", kind)
	}

	leftFields := t.Schema().Fields()
	rightFields := right.Schema().Fields()
	taken := make(map[string]bool, len(leftFields))
	fields := make([]Field, 0, len(leftFields)+len(rightFields))
	origins := make([]JoinOrigin, 0, cap(fields))
	for _, f := range leftFields {
		taken[f.Name] = true
		fields = append(fields, f)
		origins = append(origins, JoinOrigin{Source: f.Name})
	}
	for _, f := range rightFields {
		name := f.Name
		if taken[name] {
			name = name + "_right"
		}
		taken[name] = true
		fields = append(fields, Field{Name: name, Type: f.Type})
		origins = append(origins, JoinOrigin{FromRight: true, Source: f.Name})
	}
	schema, err := NewSchema(fields...)
	if err != nil {
		return Table{}, err
	}
	return Table{node: &Join{
		kind:    kind,
		left:    t.node,
		right:   right.node,
		pred:    pred.node,
		schema:  schema,
		origins: origins,
	}}, nil
}

// ---- ordering and limits ----

// Asc sorts by the expression in ascending order.
func Asc(v Value) SortKey { return SortKey{expr: v.node} }

// Desc sorts by the expression in descending order.
func Desc(v Value) SortKey { return SortKey{expr: v.node, desc: true} }

// OrderBy sorts the relation by the given keys.
func (t Table) OrderBy(keys ...SortKey) (Table, error) {
	if len(keys) == 0 {
		return Table{}, fmt.Errorf("order by requires at least one key")
	}
	label := tableLabel(t.node)
	for i, k := range keys {
		if k.expr == nil {
			return Table{}, fmt.Errorf("order by: key %d is the zero Value", i)
		}
		if err := resolveAgainst(k.expr, t.node, label); err != nil {
			return Table{}, err
		}
		if containsAggregate(k.expr) {
			return Table{}, fmt.Errorf("order by: key %d cannot contain aggregates", i)
		}
	}
	ks := make([]SortKey, len(keys))
	copy(ks, keys)
	return Table{node: &Sort{input: t.node, keys: ks}}, nil
}

// Limit keeps at most n rows.
func (t Table) Limit(n int64) (Table, error) {
	if n < 0 {
		return Table{}, fmt.Errorf("limit must not be negative, got %d", n)
	}
	return Table{node: &Limit{input: t.node, n: n}}, nil
}

// View returns the relation under a fresh identity, so it can be joined
// against itself.
func (t Table) View() Table {
	return Table{node: &View{input: t.node}}
}
