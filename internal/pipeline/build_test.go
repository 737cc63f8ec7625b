package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/relq/pkg/dialects/ansi"
	"github.com/leapstack-labs/relq/pkg/rel"
	"github.com/leapstack-labs/relq/pkg/sqlgen"
)

// buildSQL parses src, builds the named query, and compiles it for the
// ansi dialect.
func buildSQL(t *testing.T, src, query string) string {
	t.Helper()

	f, err := Parse([]byte(src))
	require.NoError(t, err)

	built, err := Build(f, nil)
	require.NoError(t, err)

	for _, b := range built {
		if b.Name == query {
			q, err := sqlgen.New(ansi.ANSI).Compile(b.Table.Node())
			require.NoError(t, err)
			return q.SQL
		}
	}
	t.Fatalf("query %s not built", query)
	return ""
}

func TestBuild_GroupedAggregate(t *testing.T) {
	sql := buildSQL(t, examplePipeline, "continent_totals")
	assert.Equal(t,
		"SELECT t0.continent, SUM(t0.population) AS total FROM countries AS t0 GROUP BY t0.continent",
		sql)
}

func TestBuild_CaseProjection(t *testing.T) {
	sql := buildSQL(t, examplePipeline, "regions")
	assert.Equal(t,
		"SELECT t0.name, CASE WHEN (t0.continent = 'EU') THEN 'Europe' WHEN (t0.continent = 'AS') THEN 'Asia' ELSE 'Other' END AS region FROM countries AS t0",
		sql)
}

func TestBuild_WhereOrderLimit(t *testing.T) {
	src := `
sources:
  events:
    columns:
      - {name: id, type: int}
      - {name: score, type: float}
queries:
  - name: top
    from: events
    where: {binary: {op: gt, left: {col: score}, right: {lit: 0.5}}}
    order_by: [{by: score, desc: true}]
    limit: 10
`
	sql := buildSQL(t, src, "top")
	assert.Equal(t,
		"SELECT t0.id, t0.score FROM (SELECT t1.id, t1.score FROM events AS t1 WHERE (t1.score > 0.5)) AS t0 ORDER BY t0.score DESC LIMIT 10",
		sql)
}

func TestBuild_NullLiteral(t *testing.T) {
	src := `
sources:
  t:
    columns:
      - {name: a, type: int}
queries:
  - name: q
    from: t
    select:
      - {name: missing, lit: null}
`
	sql := buildSQL(t, src, "q")
	assert.Equal(t, "SELECT NULL AS missing FROM t AS t0", sql)
}

func TestBuild_Join(t *testing.T) {
	src := `
sources:
  customers:
    columns:
      - {name: id, type: int}
      - {name: name, type: string}
  orders:
    columns:
      - {name: id, type: int}
      - {name: customer_id, type: int}
      - {name: amount, type: float}
queries:
  - name: joined
    from: customers
    join:
      with: orders
      kind: left
      on: {binary: {op: eq, left: {col: customers.id}, right: {col: orders.customer_id}}}
    select: [{col: name}, {col: amount}]
`
	sql := buildSQL(t, src, "joined")
	assert.Equal(t,
		"SELECT t0.name, t0.amount FROM (SELECT t1.id, t1.name, t2.id AS id_right, t2.customer_id, t2.amount FROM customers AS t1 LEFT JOIN orders AS t2 ON (t1.id = t2.customer_id)) AS t0",
		sql)
}

func TestBuild_FilteredAggregate(t *testing.T) {
	src := `
sources:
  orders:
    columns:
      - {name: region, type: string}
      - {name: amount, type: float}
queries:
  - name: big_only
    from: orders
    group_by: [region]
    aggregate:
      - name: big_total
        fn: sum
        of: amount
        where: {binary: {op: gt, left: {col: amount}, right: {lit: 100.0}}}
      - {name: n, fn: count}
`
	// ansi has no FILTER clause, so the aggregate argument is rewritten
	// through CASE.
	sql := buildSQL(t, src, "big_only")
	assert.Equal(t,
		"SELECT t0.region, SUM(CASE WHEN (t0.amount > 100.0) THEN t0.amount END) AS big_total, COUNT(*) AS n FROM orders AS t0 GROUP BY t0.region",
		sql)
}

func TestBuild_SourceFromProvider(t *testing.T) {
	schema, err := rel.NewSchema(
		rel.Field{Name: "id", Type: rel.Int64},
	)
	require.NoError(t, err)

	catalog := rel.NewCatalog()
	catalog.Add("metrics", schema)

	src := `
sources:
  metrics: {}
queries:
  - name: all
    from: metrics
    select: [id]
`
	f, err := Parse([]byte(src))
	require.NoError(t, err)

	built, err := Build(f, catalog)
	require.NoError(t, err)
	require.Len(t, built, 1)
	assert.Equal(t, []string{"id"}, built[0].Table.Schema().Names())
}

func TestBuild_SourceWithoutProvider(t *testing.T) {
	src := `
sources:
  metrics: {}
queries:
  - name: all
    from: metrics
`
	f, err := Parse([]byte(src))
	require.NoError(t, err)

	_, err = Build(f, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schema provider")
}

func TestBuild_ErrorsCarryQueryName(t *testing.T) {
	src := `
sources:
  t:
    columns: [{name: a, type: int}]
queries:
  - name: broken
    from: t
    select: [{col: nope}]
`
	f, err := Parse([]byte(src))
	require.NoError(t, err)

	_, err = Build(f, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query broken:")

	var sre *rel.SchemaResolutionError
	require.ErrorAs(t, err, &sre)
	assert.Equal(t, "nope", sre.Column)
}

func TestBuild_TypeErrorsPropagate(t *testing.T) {
	src := `
sources:
  t:
    columns:
      - {name: a, type: int}
      - {name: s, type: string}
queries:
  - name: bad
    from: t
    select:
      - name: x
        binary: {op: add, left: {col: a}, right: {col: s}}
`
	f, err := Parse([]byte(src))
	require.NoError(t, err)

	_, err = Build(f, nil)
	require.Error(t, err)

	var tme *rel.TypeMismatchError
	assert.ErrorAs(t, err, &tme)
}

func TestBuild_ExprValidation(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{
			name: "empty",
			expr: Expr{},
			want: "empty expression",
		},
		{
			name: "ambiguous",
			expr: Expr{Col: "a", Fn: "sum"},
			want: "mutually exclusive",
		},
		{
			name: "of without fn",
			expr: Expr{Col: "a", Of: &Expr{Col: "a"}},
			want: "only valid with fn",
		},
	}

	schema, err := rel.NewSchema(rel.Field{Name: "a", Type: rel.Int64})
	require.NoError(t, err)
	table, err := rel.NewTable("t", schema)
	require.NoError(t, err)
	s := &scope{current: table}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildExpr(&tt.expr, s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want rel.DataType
	}{
		{"int", rel.Int64},
		{"bigint", rel.Int64},
		{"float", rel.Float64},
		{"double", rel.Float64},
		{"string", rel.String},
		{"text", rel.String},
		{"bool", rel.Boolean},
		{"date", rel.Date},
		{"timestamp", rel.Timestamp},
		{"TIMESTAMP", rel.Timestamp},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseType("quaternion")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown type "quaternion"`)
}
