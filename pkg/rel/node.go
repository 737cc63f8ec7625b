package rel

// TableNode is a relational operator in the expression tree. The set of
// implementations is closed; consumers dispatch with a type switch and
// treat an unknown variant as a programming error.
//
// Nodes are immutable once constructed. Node identity (pointer equality)
// is what compilers key memoization and alias assignment on, so the same
// *TableScan appearing twice in a tree is the same relation, while two
// scans built separately are distinct even when they agree structurally.
type TableNode interface {
	// Schema returns the node's output schema, fixed at construction.
	Schema() Schema

	tableNode()
}

// ValueNode is a typed column or scalar expression.
type ValueNode interface {
	// Type returns the expression's resolved data type.
	Type() DataType

	// Shape reports whether the expression is column- or scalar-shaped.
	Shape() Shape

	valueNode()
}

// Shape distinguishes column-shaped expressions, which produce one value
// per row, from scalar-shaped ones, which produce a single value.
type Shape int

const (
	ShapeColumn Shape = iota
	ShapeScalar
)

func (s Shape) String() string {
	if s == ShapeScalar {
		return "scalar"
	}
	return "column"
}

// ---- table nodes ----

// TableScan is a leaf relation: a named source with a known schema.
type TableScan struct {
	name   string
	schema Schema
}

func (t *TableScan) Name() string   { return t.name }
func (t *TableScan) Schema() Schema { return t.schema }
func (t *TableScan) tableNode()     {}

// Projection computes a new column list over its input.
type Projection struct {
	input  TableNode
	exprs  []ValueNode
	schema Schema
}

func (p *Projection) Input() TableNode { return p.input }
func (p *Projection) Schema() Schema   { return p.schema }
func (p *Projection) tableNode()       {}

// Exprs returns the projected expressions, ordered as the output schema.
func (p *Projection) Exprs() []ValueNode {
	out := make([]ValueNode, len(p.exprs))
	copy(out, p.exprs)
	return out
}

// Filter keeps the rows of its input for which the predicate holds.
// Its schema is the input's schema, unchanged.
type Filter struct {
	input TableNode
	pred  ValueNode
}

func (f *Filter) Input() TableNode     { return f.input }
func (f *Filter) Predicate() ValueNode { return f.pred }
func (f *Filter) Schema() Schema       { return f.input.Schema() }
func (f *Filter) tableNode()           {}

// Aggregation groups its input by key expressions and computes aggregate
// outputs per group. With no keys the whole input is a single group.
// The output schema is the keys followed by the aggregates.
type Aggregation struct {
	input  TableNode
	keys   []ValueNode
	aggs   []ValueNode
	schema Schema
}

func (a *Aggregation) Input() TableNode { return a.input }
func (a *Aggregation) Schema() Schema   { return a.schema }
func (a *Aggregation) tableNode()       {}

func (a *Aggregation) Keys() []ValueNode {
	out := make([]ValueNode, len(a.keys))
	copy(out, a.keys)
	return out
}

func (a *Aggregation) Aggs() []ValueNode {
	out := make([]ValueNode, len(a.aggs))
	copy(out, a.aggs)
	return out
}

// JoinKind selects the join semantics.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinOuter
)

func (k JoinKind) String() string {
	switch k {
	case JoinLeft:
		return "left"
	case JoinRight:
		return "right"
	case JoinOuter:
		return "outer"
	default:
		return "inner"
	}
}

// JoinOrigin records where an output column of a Join comes from: the
// side it was taken from and its name there. Output columns whose name
// collided across sides keep the left name and the right column is
// exposed with a "_right" suffix, which Source records.
type JoinOrigin struct {
	FromRight bool
	Source    string
}

// Join combines two relations on a boolean predicate. The output schema
// is the left columns followed by the right columns, with collisions on
// the right renamed.
type Join struct {
	kind    JoinKind
	left    TableNode
	right   TableNode
	pred    ValueNode
	schema  Schema
	origins []JoinOrigin
}

func (j *Join) Kind() JoinKind       { return j.kind }
func (j *Join) Left() TableNode      { return j.left }
func (j *Join) Right() TableNode     { return j.right }
func (j *Join) Predicate() ValueNode { return j.pred }
func (j *Join) Schema() Schema       { return j.schema }
func (j *Join) tableNode()           {}

// Origins returns per-output-column provenance, aligned with Schema.
func (j *Join) Origins() []JoinOrigin {
	out := make([]JoinOrigin, len(j.origins))
	copy(out, j.origins)
	return out
}

// Sort orders the rows of its input by one or more keys.
type Sort struct {
	input TableNode
	keys  []SortKey
}

func (s *Sort) Input() TableNode { return s.input }
func (s *Sort) Schema() Schema   { return s.input.Schema() }
func (s *Sort) tableNode()       {}

func (s *Sort) Keys() []SortKey {
	out := make([]SortKey, len(s.keys))
	copy(out, s.keys)
	return out
}

// SortKey pairs a sort expression with a direction.
type SortKey struct {
	expr ValueNode
	desc bool
}

func (k SortKey) Expr() ValueNode  { return k.expr }
func (k SortKey) Descending() bool { return k.desc }

// Limit keeps at most n rows of its input.
type Limit struct {
	input TableNode
	n     int64
}

func (l *Limit) Input() TableNode { return l.input }
func (l *Limit) N() int64         { return l.n }
func (l *Limit) Schema() Schema   { return l.input.Schema() }
func (l *Limit) tableNode()       {}

// View wraps a relation in a fresh identity so it can appear on both
// sides of a join without its column references becoming ambiguous.
type View struct {
	input TableNode
}

func (v *View) Input() TableNode { return v.input }
func (v *View) Schema() Schema   { return v.input.Schema() }
func (v *View) tableNode()       {}

// ---- value nodes ----

// ColumnRef is a reference to a column of a specific table node. The table
// is held by pointer: the reference resolves against that exact node, not
// against any relation that happens to share the column name.
type ColumnRef struct {
	table TableNode
	name  string
	typ   DataType
}

func (c *ColumnRef) Table() TableNode { return c.table }
func (c *ColumnRef) Name() string     { return c.name }
func (c *ColumnRef) Type() DataType   { return c.typ }
func (c *ColumnRef) Shape() Shape     { return ShapeColumn }
func (c *ColumnRef) valueNode()       {}

// Literal is a constant with a fixed type. A nil value with type Null is
// the untyped null; NullOf builds typed nulls.
type Literal struct {
	typ   DataType
	value any
}

func (l *Literal) Value() any     { return l.value }
func (l *Literal) Type() DataType { return l.typ }
func (l *Literal) Shape() Shape   { return ShapeScalar }
func (l *Literal) valueNode()     {}

// BinaryOp identifies a binary operator.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpEq:
		return "eq"
	case OpNe:
		return "ne"
	case OpLt:
		return "lt"
	case OpLe:
		return "le"
	case OpGt:
		return "gt"
	case OpGe:
		return "ge"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	default:
		return "op"
	}
}

// IsComparison reports whether the operator yields Boolean from two
// promotable operands.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	default:
		return false
	}
}

// IsArithmetic reports whether the operator requires numeric operands.
func (op BinaryOp) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv:
		return true
	default:
		return false
	}
}

// BinaryExpr applies a binary operator to two operands. Its type is fixed
// at construction: Boolean for comparisons and logic, the promoted operand
// type for arithmetic, and always Float64 for division.
type BinaryExpr struct {
	op    BinaryOp
	left  ValueNode
	right ValueNode
	typ   DataType
}

func (b *BinaryExpr) Op() BinaryOp     { return b.op }
func (b *BinaryExpr) Left() ValueNode  { return b.left }
func (b *BinaryExpr) Right() ValueNode { return b.right }
func (b *BinaryExpr) Type() DataType   { return b.typ }
func (b *BinaryExpr) valueNode()       {}

func (b *BinaryExpr) Shape() Shape {
	if b.left.Shape() == ShapeColumn || b.right.Shape() == ShapeColumn {
		return ShapeColumn
	}
	return ShapeScalar
}

// UnaryOp identifies a unary operator.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	if op == OpNeg {
		return "neg"
	}
	return "not"
}

// UnaryExpr applies a unary operator: logical not on Boolean, numeric
// negation on Int64 or Float64.
type UnaryExpr struct {
	op      UnaryOp
	operand ValueNode
	typ     DataType
}

func (u *UnaryExpr) Op() UnaryOp        { return u.op }
func (u *UnaryExpr) Operand() ValueNode { return u.operand }
func (u *UnaryExpr) Type() DataType     { return u.typ }
func (u *UnaryExpr) Shape() Shape       { return u.operand.Shape() }
func (u *UnaryExpr) valueNode()         {}

// CastExpr converts its input to a target type. The cast is explicit and
// unchecked here; whether a given conversion succeeds is the engine's
// concern at execution time.
type CastExpr struct {
	input ValueNode
	typ   DataType
}

func (c *CastExpr) Input() ValueNode { return c.input }
func (c *CastExpr) Type() DataType   { return c.typ }
func (c *CastExpr) Shape() Shape     { return c.input.Shape() }
func (c *CastExpr) valueNode()       {}

// IsNullExpr tests its input for null, or for non-null when negated.
type IsNullExpr struct {
	input   ValueNode
	negated bool
}

func (i *IsNullExpr) Input() ValueNode { return i.input }
func (i *IsNullExpr) Negated() bool    { return i.negated }
func (i *IsNullExpr) Type() DataType   { return Boolean }
func (i *IsNullExpr) Shape() Shape     { return i.input.Shape() }
func (i *IsNullExpr) valueNode()       {}

// WhenClause is one condition/result pair of a CaseExpr.
type WhenClause struct {
	cond   ValueNode
	result ValueNode
}

func (w WhenClause) Cond() ValueNode   { return w.cond }
func (w WhenClause) Result() ValueNode { return w.result }

// CaseExpr is a finalized conditional with at least one when branch and an
// optional else. Its type is the promoted type of all branch results;
// without an else the expression is null for unmatched rows.
type CaseExpr struct {
	whens []WhenClause
	els   ValueNode
	typ   DataType
}

func (c *CaseExpr) Whens() []WhenClause {
	out := make([]WhenClause, len(c.whens))
	copy(out, c.whens)
	return out
}

// Else returns the else branch, or nil when none was set.
func (c *CaseExpr) Else() ValueNode { return c.els }
func (c *CaseExpr) Type() DataType  { return c.typ }
func (c *CaseExpr) valueNode()      {}

func (c *CaseExpr) Shape() Shape {
	for _, w := range c.whens {
		if w.cond.Shape() == ShapeColumn || w.result.Shape() == ShapeColumn {
			return ShapeColumn
		}
	}
	if c.els != nil && c.els.Shape() == ShapeColumn {
		return ShapeColumn
	}
	return ShapeScalar
}

// AggKind identifies an aggregate function.
type AggKind int

const (
	AggSum AggKind = iota
	AggMean
	AggMin
	AggMax
	AggCount
	AggCountStar
)

func (k AggKind) String() string {
	switch k {
	case AggSum:
		return "sum"
	case AggMean:
		return "mean"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	default:
		return "count"
	}
}

// AggregateExpr reduces a column expression to a single value per group.
// It is always scalar-shaped. arg is nil for count(*); table is set only
// when the count was bound to a table directly so standalone compilation
// knows what relation it ranges over. where is an optional boolean filter
// applied to the aggregated rows.
type AggregateExpr struct {
	kind  AggKind
	arg   ValueNode
	where ValueNode
	table TableNode
	typ   DataType
}

func (a *AggregateExpr) Kind() AggKind { return a.kind }

// Arg returns the aggregated expression, or nil for count(*).
func (a *AggregateExpr) Arg() ValueNode { return a.arg }

// Where returns the aggregate's row filter, or nil when unfiltered.
func (a *AggregateExpr) Where() ValueNode { return a.where }

// Table returns the relation a table-bound count(*) ranges over, nil
// otherwise.
func (a *AggregateExpr) Table() TableNode { return a.table }

func (a *AggregateExpr) Type() DataType { return a.typ }
func (a *AggregateExpr) Shape() Shape   { return ShapeScalar }
func (a *AggregateExpr) valueNode()     {}

// AliasExpr renames the expression it wraps without changing its type or
// shape.
type AliasExpr struct {
	input ValueNode
	name  string
}

func (a *AliasExpr) Input() ValueNode { return a.input }
func (a *AliasExpr) Name() string     { return a.name }
func (a *AliasExpr) Type() DataType   { return a.input.Type() }
func (a *AliasExpr) Shape() Shape     { return a.input.Shape() }
func (a *AliasExpr) valueNode()       {}

// DisplayName derives the output column name of an expression: aliases
// win, column references keep their column name, and everything else gets
// its operator's name.
func DisplayName(n ValueNode) string {
	switch e := n.(type) {
	case *AliasExpr:
		return e.name
	case *ColumnRef:
		return e.name
	case *Literal:
		return "lit"
	case *BinaryExpr:
		return e.op.String()
	case *UnaryExpr:
		return e.op.String()
	case *CastExpr:
		return "cast"
	case *IsNullExpr:
		if e.negated {
			return "notnull"
		}
		return "isnull"
	case *CaseExpr:
		return "case"
	case *AggregateExpr:
		return e.kind.String()
	default:
		return "expr"
	}
}
