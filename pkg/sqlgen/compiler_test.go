package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/relq/pkg/dialect"
	"github.com/leapstack-labs/relq/pkg/rel"
)

// testDialect is an ANSI-leaning dialect without the aggregate FILTER
// clause, so tests cover the CASE rewrite by default.
func testDialect() *dialect.Dialect {
	return dialect.NewDialect("test").
		Capabilities(dialect.Capabilities{RightJoin: true, FullJoin: true}).
		TypeName(rel.KindBoolean, "BOOLEAN").
		TypeName(rel.KindInt64, "BIGINT").
		TypeName(rel.KindFloat64, "DOUBLE PRECISION").
		TypeName(rel.KindString, "VARCHAR").
		TypeName(rel.KindDate, "DATE").
		TypeName(rel.KindTimestamp, "TIMESTAMP").
		ReservedWords("order", "user", "select", "from", "group").
		Build()
}

func usersTable(t *testing.T) rel.Table {
	t.Helper()
	schema, err := rel.NewSchema(
		rel.Field{Name: "id", Type: rel.Int64},
		rel.Field{Name: "name", Type: rel.String},
	)
	require.NoError(t, err)
	table, err := rel.NewTable("users", schema)
	require.NoError(t, err)
	return table
}

func column(t *testing.T, table rel.Table, name string) rel.Value {
	t.Helper()
	v, err := table.Column(name)
	require.NoError(t, err)
	return v
}

func literal(t *testing.T, value any) rel.Value {
	t.Helper()
	v, err := rel.Lit(value)
	require.NoError(t, err)
	return v
}

func compileSQL(t *testing.T, d *dialect.Dialect, table rel.Table) string {
	t.Helper()
	q, err := New(d).Compile(table.Node())
	require.NoError(t, err)
	return q.SQL
}

func TestCompileScan(t *testing.T) {
	users := usersTable(t)
	sql := compileSQL(t, testDialect(), users)
	assert.Equal(t, `SELECT t0.id, t0.name FROM users AS t0`, sql)
}

func TestCompileFilter(t *testing.T) {
	users := usersTable(t)
	pred, err := column(t, users, "id").Gt(literal(t, 10))
	require.NoError(t, err)
	filtered, err := users.Filter(pred)
	require.NoError(t, err)

	sql := compileSQL(t, testDialect(), filtered)
	assert.Equal(t, `SELECT t0.id, t0.name FROM users AS t0 WHERE (t0.id > 10)`, sql)
}

func TestCompileProjection(t *testing.T) {
	users := usersTable(t)
	id := column(t, users, "id")
	doubled, err := id.Add(id)
	require.NoError(t, err)

	selected, err := users.Select(column(t, users, "name"), doubled.As("twice"))
	require.NoError(t, err)

	sql := compileSQL(t, testDialect(), selected)
	assert.Equal(t, `SELECT t0.name, (t0.id + t0.id) AS twice FROM users AS t0`, sql)
}

func TestCompileNestedRelations(t *testing.T) {
	users := usersTable(t)
	pred, err := column(t, users, "id").Gt(literal(t, 10))
	require.NoError(t, err)
	filtered, err := users.Filter(pred)
	require.NoError(t, err)
	selected, err := filtered.Select(column(t, filtered, "id"))
	require.NoError(t, err)

	// The outermost placement takes t0; the scan inside the subquery
	// comes later in placement order.
	sql := compileSQL(t, testDialect(), selected)
	assert.Equal(t,
		`SELECT t0.id FROM (SELECT t1.id, t1.name FROM users AS t1 WHERE (t1.id > 10)) AS t0`,
		sql,
	)
}

func TestCompileAggregation(t *testing.T) {
	schema, err := rel.NewSchema(
		rel.Field{Name: "continent", Type: rel.String},
		rel.Field{Name: "population", Type: rel.Int64},
	)
	require.NoError(t, err)
	countries, err := rel.NewTable("countries", schema)
	require.NoError(t, err)

	total, err := rel.Sum(column(t, countries, "population"))
	require.NoError(t, err)
	grouped, err := countries.GroupBy(column(t, countries, "continent"))
	require.NoError(t, err)
	agg, err := grouped.Aggregate(total.As("total"))
	require.NoError(t, err)

	sql := compileSQL(t, testDialect(), agg)
	assert.Equal(t,
		`SELECT t0.continent, SUM(t0.population) AS total FROM countries AS t0 GROUP BY t0.continent`,
		sql,
	)
}

func TestCompileGlobalAggregation(t *testing.T) {
	users := usersTable(t)
	cnt, err := rel.Count(column(t, users, "name"))
	require.NoError(t, err)
	agg, err := users.Aggregate(cnt.As("names"))
	require.NoError(t, err)

	sql := compileSQL(t, testDialect(), agg)
	assert.Equal(t, `SELECT COUNT(t0.name) AS names FROM users AS t0`, sql)
}

func TestCompileCase(t *testing.T) {
	schema, err := rel.NewSchema(
		rel.Field{Name: "name", Type: rel.String},
		rel.Field{Name: "continent", Type: rel.String},
	)
	require.NoError(t, err)
	countries, err := rel.NewTable("countries", schema)
	require.NoError(t, err)

	label, err := column(t, countries, "continent").Case().
		When(literal(t, "EU"), literal(t, "Europe")).
		When(literal(t, "AS"), literal(t, "Asia")).
		Else(literal(t, "Other")).
		End()
	require.NoError(t, err)

	selected, err := countries.Select(column(t, countries, "name"), label.As("continent_name"))
	require.NoError(t, err)

	sql := compileSQL(t, testDialect(), selected)
	assert.Equal(t,
		`SELECT t0.name, CASE WHEN (t0.continent = 'EU') THEN 'Europe' WHEN (t0.continent = 'AS') THEN 'Asia' ELSE 'Other' END AS continent_name FROM countries AS t0`,
		sql,
	)
}

func TestCompileJoin(t *testing.T) {
	users := usersTable(t)
	citySchema, err := rel.NewSchema(
		rel.Field{Name: "id", Type: rel.Int64},
		rel.Field{Name: "city", Type: rel.String},
	)
	require.NoError(t, err)
	cities, err := rel.NewTable("cities", citySchema)
	require.NoError(t, err)

	pred, err := column(t, users, "id").Eq(column(t, cities, "id"))
	require.NoError(t, err)
	joined, err := users.LeftJoin(cities, pred)
	require.NoError(t, err)

	sql := compileSQL(t, testDialect(), joined)
	assert.Equal(t,
		`SELECT t0.id, t0.name, t1.id AS id_right, t1.city FROM users AS t0 LEFT JOIN cities AS t1 ON (t0.id = t1.id)`,
		sql,
	)
}

func TestCompileSelfJoinThroughView(t *testing.T) {
	users := usersTable(t)
	view := users.View()

	pred, err := column(t, users, "id").Eq(column(t, view, "id"))
	require.NoError(t, err)
	joined, err := users.InnerJoin(view, pred)
	require.NoError(t, err)

	sql := compileSQL(t, testDialect(), joined)
	assert.Equal(t,
		`SELECT t0.id, t0.name, t1.id AS id_right, t1.name AS name_right FROM users AS t0 INNER JOIN (SELECT t0.id, t0.name FROM users AS t0) AS t1 ON (t0.id = t1.id)`,
		sql,
	)
}

func TestCompileSortAndLimit(t *testing.T) {
	users := usersTable(t)
	id := column(t, users, "id")

	sorted, err := users.OrderBy(rel.Desc(id), rel.Asc(column(t, users, "name")))
	require.NoError(t, err)
	sql := compileSQL(t, testDialect(), sorted)
	assert.Equal(t, `SELECT t0.id, t0.name FROM users AS t0 ORDER BY t0.id DESC, t0.name`, sql)

	// Limit over sort folds into one statement.
	limited, err := sorted.Limit(5)
	require.NoError(t, err)
	sql = compileSQL(t, testDialect(), limited)
	assert.Equal(t, `SELECT t0.id, t0.name FROM users AS t0 ORDER BY t0.id DESC, t0.name LIMIT 5`, sql)

	// A bare limit stays a plain clause.
	capped, err := users.Limit(3)
	require.NoError(t, err)
	sql = compileSQL(t, testDialect(), capped)
	assert.Equal(t, `SELECT t0.id, t0.name FROM users AS t0 LIMIT 3`, sql)
}

func TestCompileTrueDivision(t *testing.T) {
	users := usersTable(t)
	id := column(t, users, "id")

	ratio, err := id.Div(literal(t, 4))
	require.NoError(t, err)
	selected, err := users.Select(ratio.As("ratio"))
	require.NoError(t, err)

	// Integer dividends are cast so the engine cannot truncate.
	sql := compileSQL(t, testDialect(), selected)
	assert.Equal(t,
		`SELECT (CAST(t0.id AS DOUBLE PRECISION) / 4) AS ratio FROM users AS t0`,
		sql,
	)
}

func TestCompileIdempotent(t *testing.T) {
	users := usersTable(t)
	pred, err := column(t, users, "id").Gt(literal(t, 1))
	require.NoError(t, err)
	filtered, err := users.Filter(pred)
	require.NoError(t, err)

	c := New(testDialect())
	first, err := c.Compile(filtered.Node())
	require.NoError(t, err)
	second, err := c.Compile(filtered.Node())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCompileReservedIdentifiers(t *testing.T) {
	schema, err := rel.NewSchema(
		rel.Field{Name: "user", Type: rel.String},
		rel.Field{Name: "Amount Due", Type: rel.Float64},
	)
	require.NoError(t, err)
	orders, err := rel.NewTable("order", schema)
	require.NoError(t, err)

	sql := compileSQL(t, testDialect(), orders)
	assert.Equal(t, `SELECT t0."user", t0."Amount Due" FROM "order" AS t0`, sql)
}

func TestCompileUnsupportedJoin(t *testing.T) {
	limited := dialect.NewDialect("limited").Build()

	users := usersTable(t)
	citySchema, err := rel.NewSchema(rel.Field{Name: "id", Type: rel.Int64})
	require.NoError(t, err)
	cities, err := rel.NewTable("cities", citySchema)
	require.NoError(t, err)

	pred, err := column(t, users, "id").Eq(column(t, cities, "id"))
	require.NoError(t, err)
	joined, err := users.RightJoin(cities, pred)
	require.NoError(t, err)

	_, err = New(limited).Compile(joined.Node())
	require.Error(t, err)
	var unsupported *UnsupportedOperationError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "right join", unsupported.Op)
	assert.Equal(t, "limited", unsupported.Dialect)
}

func TestCompileUnsupportedCast(t *testing.T) {
	users := usersTable(t)
	cast, err := column(t, users, "id").Cast(rel.ArrayOf(rel.Int64))
	require.NoError(t, err)
	selected, err := users.Select(cast.As("ids"))
	require.NoError(t, err)

	_, err = New(testDialect()).Compile(selected.Node())
	require.Error(t, err)
	var unsupported *UnsupportedOperationError
	require.ErrorAs(t, err, &unsupported)
}
