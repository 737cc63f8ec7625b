// Package sqlgen compiles relational expression trees into SQL text for a
// concrete dialect.
//
// Compilation is a pure bottom-up fold over the tree: no I/O, no global
// state. Each Compile call keeps its own memo keyed by node pointer, so a
// relation shared between branches renders once and trees compile to the
// same SQL every time. Table aliases are assigned in first-placement order
// (t0, t1, ...) and every column reference renders qualified by the alias
// of the exact node it was taken from.
package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/relq/pkg/dialect"
	"github.com/leapstack-labs/relq/pkg/rel"
)

// Query is a compiled query: SQL text bound to the dialect it was
// generated for.
type Query struct {
	SQL     string
	Dialect string
}

// UnsupportedOperationError reports a tree node the target dialect has no
// spelling for.
type UnsupportedOperationError struct {
	Op      string
	Dialect string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("dialect %s does not support %s", e.Dialect, e.Op)
}

// Compiler compiles trees for one dialect. It is stateless and safe for
// concurrent use; per-call state lives in the generator.
type Compiler struct {
	d *dialect.Dialect
}

// New returns a compiler for the given dialect.
func New(d *dialect.Dialect) *Compiler {
	return &Compiler{d: d}
}

// Dialect returns the dialect the compiler generates SQL for.
func (c *Compiler) Dialect() *dialect.Dialect { return c.d }

// Compile lowers a relational tree to a SELECT statement.
func (c *Compiler) Compile(t rel.TableNode) (Query, error) {
	if t == nil {
		return Query{}, fmt.Errorf("compile: nil relation")
	}
	g := newGenerator(c.d)
	sql, err := g.selectQuery(t)
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Dialect: c.d.Name}, nil
}

// CompileValue lowers a single expression to a SELECT of one column. The
// expression may reference at most one relation, which becomes the FROM
// clause; a pure scalar compiles without one.
func (c *Compiler) CompileValue(v rel.ValueNode) (Query, error) {
	if v == nil {
		return Query{}, fmt.Errorf("compile: nil expression")
	}
	roots := rel.Roots(v)
	if len(roots) > 1 {
		return Query{}, fmt.Errorf("compile: expression references %d relations, select it from a join instead", len(roots))
	}
	g := newGenerator(c.d)

	var from string
	if len(roots) == 1 {
		clause, err := g.fromClause(roots[0])
		if err != nil {
			return Query{}, err
		}
		from = " FROM " + clause
	}
	col, err := g.outputColumn(v)
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: "SELECT " + col + from, Dialect: c.d.Name}, nil
}

// generator holds the per-call compilation state.
type generator struct {
	d       *dialect.Dialect
	aliases map[rel.TableNode]string
	items   map[rel.TableNode]string
	n       int
}

func newGenerator(d *dialect.Dialect) *generator {
	return &generator{
		d:       d,
		aliases: make(map[rel.TableNode]string),
		items:   make(map[rel.TableNode]string),
	}
}

// alias returns the node's table alias, assigning the next one in
// placement order on first use.
func (g *generator) alias(t rel.TableNode) string {
	if a, ok := g.aliases[t]; ok {
		return a
	}
	a := "t" + strconv.Itoa(g.n)
	g.n++
	g.aliases[t] = a
	return a
}

// fromItem renders a node as something that can sit in a FROM clause:
// scans become their quoted name, everything else a parenthesized
// subquery. Rendered items are memoized per node.
func (g *generator) fromItem(t rel.TableNode) (string, error) {
	if s, ok := g.items[t]; ok {
		return s, nil
	}
	var s string
	switch n := t.(type) {
	case *rel.TableScan:
		s = g.scanName(n.Name())
	default:
		q, err := g.selectQuery(t)
		if err != nil {
			return "", err
		}
		s = "(" + q + ")"
	}
	g.items[t] = s
	return s, nil
}

// scanName renders a possibly schema-qualified table name, quoting each
// dotted part on its own.
func (g *generator) scanName(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = g.d.QuoteIdentifierIfNeeded(p)
	}
	return strings.Join(parts, ".")
}

// fromClause places a node in a FROM clause: alias first, so placement
// order fixes alias numbering, then the rendered item.
func (g *generator) fromClause(t rel.TableNode) (string, error) {
	a := g.alias(t)
	item, err := g.fromItem(t)
	if err != nil {
		return "", err
	}
	return item + " AS " + a, nil
}

// selectQuery renders a full SELECT statement for a relational node.
func (g *generator) selectQuery(t rel.TableNode) (string, error) {
	switch n := t.(type) {
	case *rel.TableScan:
		return g.passthroughQuery(n, "")
	case *rel.Projection:
		return g.projectionQuery(n)
	case *rel.Filter:
		pred, from, err := g.placedValue(n.Input(), n.Predicate())
		if err != nil {
			return "", err
		}
		cols, err := g.schemaColumns(n.Input())
		if err != nil {
			return "", err
		}
		return "SELECT " + cols + " FROM " + from + " WHERE " + pred, nil
	case *rel.Aggregation:
		return g.aggregationQuery(n)
	case *rel.Join:
		return g.joinQuery(n)
	case *rel.Sort:
		return g.sortQuery(n, -1)
	case *rel.Limit:
		// A limit directly over a sort folds into one statement so the
		// ordering still applies to the truncation.
		if s, ok := n.Input().(*rel.Sort); ok {
			return g.sortQuery(s, n.N())
		}
		return g.passthroughQuery(n.Input(), " LIMIT "+strconv.FormatInt(n.N(), 10))
	case *rel.View:
		return g.passthroughQuery(n.Input(), "")
	default:
		return "", fmt.Errorf("sqlgen: unhandled relational node %T", t)
	}
}

// passthroughQuery renders SELECT <all input columns> FROM input, with an
// optional clause tail.
func (g *generator) passthroughQuery(input rel.TableNode, tail string) (string, error) {
	from, err := g.fromClause(input)
	if err != nil {
		return "", err
	}
	cols, err := g.schemaColumns(input)
	if err != nil {
		return "", err
	}
	return "SELECT " + cols + " FROM " + from + tail, nil
}

// schemaColumns renders the alias-qualified column list of a placed node.
func (g *generator) schemaColumns(t rel.TableNode) (string, error) {
	a := g.alias(t)
	fields := t.Schema().Fields()
	if len(fields) == 0 {
		return "*", nil
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = a + "." + g.d.QuoteIdentifierIfNeeded(f.Name)
	}
	return strings.Join(parts, ", "), nil
}

// placedValue places the input relation and renders an expression against
// it, returning the rendered expression and the FROM clause.
func (g *generator) placedValue(input rel.TableNode, v rel.ValueNode) (string, string, error) {
	from, err := g.fromClause(input)
	if err != nil {
		return "", "", err
	}
	expr, err := g.value(v)
	if err != nil {
		return "", "", err
	}
	return expr, from, nil
}

func (g *generator) projectionQuery(n *rel.Projection) (string, error) {
	from, err := g.fromClause(n.Input())
	if err != nil {
		return "", err
	}
	exprs := n.Exprs()
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		col, err := g.outputColumn(e)
		if err != nil {
			return "", err
		}
		parts[i] = col
	}
	return "SELECT " + strings.Join(parts, ", ") + " FROM " + from, nil
}

func (g *generator) aggregationQuery(n *rel.Aggregation) (string, error) {
	from, err := g.fromClause(n.Input())
	if err != nil {
		return "", err
	}
	var cols []string
	var groupBy []string
	for _, k := range n.Keys() {
		col, err := g.outputColumn(k)
		if err != nil {
			return "", err
		}
		cols = append(cols, col)
		expr, err := g.value(k)
		if err != nil {
			return "", err
		}
		groupBy = append(groupBy, expr)
	}
	for _, a := range n.Aggs() {
		col, err := g.outputColumn(a)
		if err != nil {
			return "", err
		}
		cols = append(cols, col)
	}
	sql := "SELECT " + strings.Join(cols, ", ") + " FROM " + from
	if len(groupBy) > 0 {
		sql += " GROUP BY " + strings.Join(groupBy, ", ")
	}
	return sql, nil
}

func (g *generator) joinQuery(n *rel.Join) (string, error) {
	keyword, err := g.joinKeyword(n.Kind())
	if err != nil {
		return "", err
	}
	leftFrom, err := g.fromClause(n.Left())
	if err != nil {
		return "", err
	}
	rightFrom, err := g.fromClause(n.Right())
	if err != nil {
		return "", err
	}
	pred, err := g.value(n.Predicate())
	if err != nil {
		return "", err
	}

	leftAlias := g.alias(n.Left())
	rightAlias := g.alias(n.Right())
	fields := n.Schema().Fields()
	origins := n.Origins()
	parts := make([]string, len(fields))
	for i, f := range fields {
		o := origins[i]
		a := leftAlias
		if o.FromRight {
			a = rightAlias
		}
		col := a + "." + g.d.QuoteIdentifierIfNeeded(o.Source)
		if f.Name != o.Source {
			col += " AS " + g.d.QuoteIdentifierIfNeeded(f.Name)
		}
		parts[i] = col
	}
	return "SELECT " + strings.Join(parts, ", ") + " FROM " + leftFrom +
		" " + keyword + " " + rightFrom + " ON " + pred, nil
}

func (g *generator) joinKeyword(kind rel.JoinKind) (string, error) {
	switch kind {
	case rel.JoinInner:
		return "INNER JOIN", nil
	case rel.JoinLeft:
		return "LEFT JOIN", nil
	case rel.JoinRight:
		if !g.d.Capabilities.RightJoin {
			return "", &UnsupportedOperationError{Op: "right join", Dialect: g.d.Name}
		}
		return "RIGHT JOIN", nil
	case rel.JoinOuter:
		if !g.d.Capabilities.FullJoin {
			return "", &UnsupportedOperationError{Op: "full outer join", Dialect: g.d.Name}
		}
		return "FULL OUTER JOIN", nil
	default:
		return "", fmt.Errorf("sqlgen: unhandled join kind %v", kind)
	}
}

// sortQuery renders a sort, folding in a row limit when limit >= 0.
func (g *generator) sortQuery(n *rel.Sort, limit int64) (string, error) {
	from, err := g.fromClause(n.Input())
	if err != nil {
		return "", err
	}
	cols, err := g.schemaColumns(n.Input())
	if err != nil {
		return "", err
	}
	keys := n.Keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		expr, err := g.value(k.Expr())
		if err != nil {
			return "", err
		}
		if k.Descending() {
			expr += " DESC"
		}
		parts[i] = expr
	}
	sql := "SELECT " + cols + " FROM " + from + " ORDER BY " + strings.Join(parts, ", ")
	if limit >= 0 {
		sql += " LIMIT " + strconv.FormatInt(limit, 10)
	}
	return sql, nil
}

// outputColumn renders an expression for a select list, aliased with its
// derived name unless it is already a bare column of that name.
func (g *generator) outputColumn(v rel.ValueNode) (string, error) {
	expr, err := g.value(v)
	if err != nil {
		return "", err
	}
	name := rel.DisplayName(v)
	if ref, ok := v.(*rel.ColumnRef); ok && ref.Name() == name {
		return expr, nil
	}
	return expr + " AS " + g.d.QuoteIdentifierIfNeeded(name), nil
}
