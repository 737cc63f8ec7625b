package pipeline

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/relq/pkg/rel"
)

// BuiltQuery is one query lowered to a relational tree.
type BuiltQuery struct {
	Name  string
	Table rel.Table
}

// Build constructs a relational tree for every query in the file. Source
// schemas come from inline columns or, when those are omitted, from the
// provider. Construction errors carry the query name.
func Build(f *File, schemas rel.SchemaProvider) ([]BuiltQuery, error) {
	tables := make(map[string]rel.Table, len(f.Sources))
	for name, src := range f.Sources {
		table, err := sourceTable(f, name, src, schemas)
		if err != nil {
			return nil, err
		}
		tables[name] = table
	}

	built := make([]BuiltQuery, 0, len(f.Queries))
	for i := range f.Queries {
		q := &f.Queries[i]
		table, err := buildQuery(q, tables)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Name, err)
		}
		built = append(built, BuiltQuery{Name: q.Name, Table: table})
	}
	return built, nil
}

// sourceTable binds one declared source to a schema-bearing table.
func sourceTable(f *File, name string, src Source, schemas rel.SchemaProvider) (rel.Table, error) {
	physical := f.TableName(name)

	if len(src.Columns) == 0 {
		if schemas == nil {
			return rel.Table{}, fmt.Errorf("source %s: no columns declared and no schema provider available", name)
		}
		schema, err := schemas.TableSchema(physical)
		if err != nil {
			return rel.Table{}, fmt.Errorf("source %s: %w", name, err)
		}
		return rel.NewTable(physical, schema)
	}

	fields := make([]rel.Field, len(src.Columns))
	for i, col := range src.Columns {
		typ, err := ParseType(col.Type)
		if err != nil {
			return rel.Table{}, fmt.Errorf("source %s, column %s: %w", name, col.Name, err)
		}
		fields[i] = rel.Field{Name: col.Name, Type: typ}
	}
	schema, err := rel.NewSchema(fields...)
	if err != nil {
		return rel.Table{}, fmt.Errorf("source %s: %w", name, err)
	}
	return rel.NewTable(physical, schema)
}

// ParseType resolves a type name used in pipeline files.
func ParseType(name string) (rel.DataType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "null":
		return rel.Null, nil
	case "bool", "boolean":
		return rel.Boolean, nil
	case "int", "int64", "bigint":
		return rel.Int64, nil
	case "float", "float64", "double":
		return rel.Float64, nil
	case "string", "str", "text":
		return rel.String, nil
	case "date":
		return rel.Date, nil
	case "timestamp", "datetime":
		return rel.Timestamp, nil
	}
	return rel.DataType{}, fmt.Errorf("unknown type %q", name)
}

// scope resolves column references while a query is being built.
// Unqualified names resolve against the table the operation chain has
// reached. Qualified names like "orders.id" are only meaningful inside a
// join condition, where both arms are in scope by source name.
type scope struct {
	current rel.Table
	sources map[string]rel.Table
}

func (s *scope) column(name string) (rel.Value, error) {
	if src, col, ok := strings.Cut(name, "."); ok {
		table, found := s.sources[src]
		if !found {
			return rel.Value{}, fmt.Errorf("qualified column %q: source %q is not in scope (qualified names are only valid in join conditions)", name, src)
		}
		return table.Column(col)
	}
	return s.current.Column(name)
}

func buildQuery(q *Query, tables map[string]rel.Table) (rel.Table, error) {
	s := &scope{current: tables[q.From]}

	if q.Join != nil {
		joined, err := buildJoin(q, s.current, tables)
		if err != nil {
			return rel.Table{}, err
		}
		s.current = joined
	}

	if q.Where != nil {
		pred, err := buildExpr(q.Where, s)
		if err != nil {
			return rel.Table{}, err
		}
		filtered, err := s.current.Filter(pred)
		if err != nil {
			return rel.Table{}, err
		}
		s.current = filtered
	}

	if len(q.Aggregate) > 0 {
		agg, err := buildAggregation(q, s)
		if err != nil {
			return rel.Table{}, err
		}
		s.current = agg
	}

	if len(q.Select) > 0 {
		projected, err := buildSelect(q.Select, s)
		if err != nil {
			return rel.Table{}, err
		}
		s.current = projected
	}

	if len(q.OrderBy) > 0 {
		keys := make([]rel.SortKey, len(q.OrderBy))
		for i, o := range q.OrderBy {
			col, err := s.column(o.By)
			if err != nil {
				return rel.Table{}, err
			}
			if o.Desc {
				keys[i] = rel.Desc(col)
			} else {
				keys[i] = rel.Asc(col)
			}
		}
		sorted, err := s.current.OrderBy(keys...)
		if err != nil {
			return rel.Table{}, err
		}
		s.current = sorted
	}

	if q.Limit != nil {
		limited, err := s.current.Limit(*q.Limit)
		if err != nil {
			return rel.Table{}, err
		}
		s.current = limited
	}

	return s.current, nil
}

func buildJoin(q *Query, left rel.Table, tables map[string]rel.Table) (rel.Table, error) {
	j := q.Join
	right, ok := tables[j.With]
	if !ok {
		return rel.Table{}, fmt.Errorf("join references unknown source %q", j.With)
	}

	// Both arms are in scope for the condition; unqualified names resolve
	// against the left side.
	predScope := &scope{
		current: left,
		sources: map[string]rel.Table{q.From: left, j.With: right},
	}
	pred, err := buildExpr(&j.On, predScope)
	if err != nil {
		return rel.Table{}, err
	}

	switch strings.ToLower(j.Kind) {
	case "", "inner":
		return left.InnerJoin(right, pred)
	case "left":
		return left.LeftJoin(right, pred)
	case "right":
		return left.RightJoin(right, pred)
	case "outer", "full":
		return left.OuterJoin(right, pred)
	}
	return rel.Table{}, fmt.Errorf("unknown join kind %q", j.Kind)
}

func buildAggregation(q *Query, s *scope) (rel.Table, error) {
	keys := make([]rel.Value, len(q.GroupBy))
	for i, name := range q.GroupBy {
		col, err := s.column(name)
		if err != nil {
			return rel.Table{}, err
		}
		keys[i] = col
	}

	aggs := make([]rel.Value, len(q.Aggregate))
	for i := range q.Aggregate {
		spec := &q.Aggregate[i]
		if spec.Name == "" {
			return rel.Table{}, fmt.Errorf("aggregate %d has no name", i+1)
		}
		agg, err := buildAggFn(spec.Fn, spec.Of, spec.Where, s)
		if err != nil {
			return rel.Table{}, fmt.Errorf("aggregate %s: %w", spec.Name, err)
		}
		aggs[i] = agg.As(spec.Name)
	}

	if len(keys) == 0 {
		return s.current.Aggregate(aggs...)
	}
	grouped, err := s.current.GroupBy(keys...)
	if err != nil {
		return rel.Table{}, err
	}
	return grouped.Aggregate(aggs...)
}

// buildAggFn constructs one aggregate value, optionally filtered.
func buildAggFn(fn string, of, where *Expr, s *scope) (rel.Value, error) {
	var agg rel.Value
	if of == nil {
		if strings.ToLower(fn) != "count" {
			return rel.Value{}, fmt.Errorf("%s requires of", fn)
		}
		agg = rel.CountStar()
	} else {
		arg, err := buildExpr(of, s)
		if err != nil {
			return rel.Value{}, err
		}
		switch strings.ToLower(fn) {
		case "sum":
			agg, err = rel.Sum(arg)
		case "mean", "avg":
			agg, err = rel.Mean(arg)
		case "min":
			agg, err = rel.Min(arg)
		case "max":
			agg, err = rel.Max(arg)
		case "count":
			agg, err = rel.Count(arg)
		default:
			return rel.Value{}, fmt.Errorf("unknown aggregate function %q", fn)
		}
		if err != nil {
			return rel.Value{}, err
		}
	}

	if where != nil {
		pred, err := buildExpr(where, s)
		if err != nil {
			return rel.Value{}, err
		}
		return agg.Where(pred)
	}
	return agg, nil
}

func buildSelect(specs []SelectExpr, s *scope) (rel.Table, error) {
	cols := make([]rel.Value, len(specs))
	for i := range specs {
		spec := &specs[i]
		expr, err := buildExpr(&spec.Expr, s)
		if err != nil {
			return rel.Table{}, err
		}
		if spec.Name != "" {
			expr = expr.As(spec.Name)
		}
		cols[i] = expr
	}
	return s.current.Select(cols...)
}

// forms returns which expression forms are set, for exclusivity checks.
func (e *Expr) forms() []string {
	var set []string
	if e.Col != "" {
		set = append(set, "col")
	}
	if e.Lit != nil {
		set = append(set, "lit")
	}
	if e.Binary != nil {
		set = append(set, "binary")
	}
	if e.Cast != nil {
		set = append(set, "cast")
	}
	if e.IsNull != nil {
		set = append(set, "is_null")
	}
	if e.Case != nil {
		set = append(set, "case")
	}
	if e.Fn != "" {
		set = append(set, "fn")
	}
	return set
}

// buildExpr lowers one expression form.
func buildExpr(e *Expr, s *scope) (rel.Value, error) {
	forms := e.forms()
	if len(forms) == 0 {
		return rel.Value{}, fmt.Errorf("empty expression: set one of col, lit, binary, cast, is_null, case, fn")
	}
	if len(forms) > 1 {
		return rel.Value{}, fmt.Errorf("ambiguous expression: %s are mutually exclusive", strings.Join(forms, ", "))
	}
	if (e.Of != nil || e.Where != nil) && e.Fn == "" {
		return rel.Value{}, fmt.Errorf("of and where are only valid with fn")
	}

	switch forms[0] {
	case "col":
		return s.column(e.Col)

	case "lit":
		return buildLit(e.Lit)

	case "binary":
		return buildBinary(e.Binary, s)

	case "cast":
		arg, err := buildExpr(&e.Cast.Of, s)
		if err != nil {
			return rel.Value{}, err
		}
		to, err := ParseType(e.Cast.To)
		if err != nil {
			return rel.Value{}, err
		}
		return arg.Cast(to)

	case "is_null":
		arg, err := buildExpr(e.IsNull, s)
		if err != nil {
			return rel.Value{}, err
		}
		return arg.IsNull(), nil

	case "case":
		return buildCase(e.Case, s)

	default: // fn
		return buildAggFn(e.Fn, e.Of, e.Where, s)
	}
}

func buildLit(lit *LitValue) (rel.Value, error) {
	if lit.IsNull() {
		return rel.Lit(nil)
	}
	var v any
	if err := lit.Decode(&v); err != nil {
		return rel.Value{}, fmt.Errorf("invalid literal: %w", err)
	}
	return rel.Lit(v)
}

func buildBinary(b *BinarySpec, s *scope) (rel.Value, error) {
	left, err := buildExpr(&b.Left, s)
	if err != nil {
		return rel.Value{}, err
	}
	right, err := buildExpr(&b.Right, s)
	if err != nil {
		return rel.Value{}, err
	}

	switch strings.ToLower(b.Op) {
	case "add":
		return left.Add(right)
	case "sub":
		return left.Sub(right)
	case "mul":
		return left.Mul(right)
	case "div":
		return left.Div(right)
	case "eq":
		return left.Eq(right)
	case "ne":
		return left.Ne(right)
	case "lt":
		return left.Lt(right)
	case "le":
		return left.Le(right)
	case "gt":
		return left.Gt(right)
	case "ge":
		return left.Ge(right)
	case "and":
		return left.And(right)
	case "or":
		return left.Or(right)
	}
	return rel.Value{}, fmt.Errorf("unknown binary op %q", b.Op)
}

func buildCase(c *CaseSpec, s *scope) (rel.Value, error) {
	var builder *rel.CaseBuilder
	if c.Subject != nil {
		subject, err := buildExpr(c.Subject, s)
		if err != nil {
			return rel.Value{}, err
		}
		builder = subject.Case()
	} else {
		builder = rel.Case()
	}

	for i := range c.When {
		w := &c.When[i]
		match, err := buildExpr(&w.Match, s)
		if err != nil {
			return rel.Value{}, err
		}
		then, err := buildExpr(&w.Then, s)
		if err != nil {
			return rel.Value{}, err
		}
		builder = builder.When(match, then)
	}

	if c.Else != nil {
		els, err := buildExpr(c.Else, s)
		if err != nil {
			return rel.Value{}, err
		}
		builder = builder.Else(els)
	}

	return builder.End()
}
