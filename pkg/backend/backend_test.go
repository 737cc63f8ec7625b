package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/relq/internal/testutil"
	"github.com/leapstack-labs/relq/pkg/adapter"
	"github.com/leapstack-labs/relq/pkg/adapters/sqlite"
	"github.com/leapstack-labs/relq/pkg/rel"
)

// testBackend connects an in-memory sqlite database and seeds it with the
// statements given.
func testBackend(t *testing.T, seed ...string) *Backend {
	t.Helper()
	ctx := context.Background()

	logger := testutil.NewTestLogger(t)
	adp := sqlite.New(logger)
	require.NoError(t, adp.Connect(ctx, adapter.Config{Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })

	for _, stmt := range seed {
		require.NoError(t, adp.Exec(ctx, stmt))
	}
	return New(adp, logger)
}

func lit(t *testing.T, v any) rel.Value {
	t.Helper()
	val, err := rel.Lit(v)
	require.NoError(t, err)
	return val
}

func column(t *testing.T, table rel.Table, name string) rel.Value {
	t.Helper()
	col, err := table.Column(name)
	require.NoError(t, err)
	return col
}

func TestBackend_Table(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t,
		"CREATE TABLE people (id INTEGER NOT NULL, name TEXT, score REAL)",
	)

	table, err := b.Table(ctx, "people")
	require.NoError(t, err)

	schema := table.Schema()
	require.Equal(t, 3, schema.Len())

	for name, want := range map[string]rel.DataType{
		"id":    rel.Int64,
		"name":  rel.String,
		"score": rel.Float64,
	} {
		got, err := schema.Type(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, "column %s", name)
	}
}

func TestBackend_Table_Missing(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t)

	_, err := b.Table(ctx, "nobody_home")
	require.Error(t, err)

	var notFound *rel.SourceNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nobody_home", notFound.Name)
}

func TestBackend_Execute_CaseProjection(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t,
		"CREATE TABLE countries (name TEXT, continent TEXT)",
		"INSERT INTO countries VALUES ('Andorra', 'EU'), ('Japan', 'AS')",
	)

	countries, err := b.Table(ctx, "countries")
	require.NoError(t, err)

	region, err := column(t, countries, "continent").Case().
		When(lit(t, "EU"), lit(t, "Europe")).
		When(lit(t, "AS"), lit(t, "Asia")).
		Else(lit(t, "Other")).
		End()
	require.NoError(t, err)

	projected, err := countries.Select(column(t, countries, "name"), region.As("region"))
	require.NoError(t, err)

	res, err := b.Execute(ctx, projected)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "region"}, res.Columns)
	assert.ElementsMatch(t, [][]any{
		{"Andorra", "Europe"},
		{"Japan", "Asia"},
	}, res.Rows)
}

func TestBackend_Execute_GroupedSum(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t,
		"CREATE TABLE countries (continent TEXT, population INTEGER)",
		"INSERT INTO countries VALUES ('EU', 10), ('EU', 20), ('AS', 5)",
	)

	countries, err := b.Table(ctx, "countries")
	require.NoError(t, err)

	grouped, err := countries.GroupBy(column(t, countries, "continent"))
	require.NoError(t, err)

	total, err := rel.Sum(column(t, countries, "population"))
	require.NoError(t, err)

	agg, err := grouped.Aggregate(total.As("total"))
	require.NoError(t, err)

	res, err := b.Execute(ctx, agg)
	require.NoError(t, err)

	assert.Equal(t, []string{"continent", "total"}, res.Columns)
	assert.ElementsMatch(t, [][]any{
		{"EU", int64(30)},
		{"AS", int64(5)},
	}, res.Rows)
}

func TestBackend_Execute_FilterJoin(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t,
		"CREATE TABLE customers (id INTEGER, name TEXT)",
		"INSERT INTO customers VALUES (1, 'alice'), (2, 'bob')",
		"CREATE TABLE orders (id INTEGER, customer_id INTEGER, amount REAL)",
		"INSERT INTO orders VALUES (10, 1, 9.5), (11, 2, 3.0), (12, 1, 2.5)",
	)

	customers, err := b.Table(ctx, "customers")
	require.NoError(t, err)
	orders, err := b.Table(ctx, "orders")
	require.NoError(t, err)

	pred, err := column(t, customers, "id").Eq(column(t, orders, "customer_id"))
	require.NoError(t, err)

	joined, err := customers.InnerJoin(orders, pred)
	require.NoError(t, err)

	big, err := column(t, joined, "amount").Gt(lit(t, 3.0))
	require.NoError(t, err)

	filtered, err := joined.Filter(big)
	require.NoError(t, err)

	picked, err := filtered.Select(
		column(t, filtered, "name"),
		column(t, filtered, "amount"),
	)
	require.NoError(t, err)

	res, err := b.Execute(ctx, picked)
	require.NoError(t, err)

	assert.Equal(t, [][]any{{"alice", 9.5}}, res.Rows)
}

func TestBackend_ExecuteValue_Scalar(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t,
		"CREATE TABLE countries (name TEXT)",
		"INSERT INTO countries VALUES ('Andorra'), ('Japan')",
	)

	countries, err := b.Table(ctx, "countries")
	require.NoError(t, err)

	got, err := b.ExecuteValue(ctx, countries.Count())
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)
}

func TestBackend_ExecuteValue_Column(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t,
		"CREATE TABLE countries (name TEXT)",
		"INSERT INTO countries VALUES ('Andorra'), ('Japan')",
	)

	countries, err := b.Table(ctx, "countries")
	require.NoError(t, err)

	got, err := b.ExecuteValue(ctx, column(t, countries, "name"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"Andorra", "Japan"}, got)
}

func TestBackend_Execute_ErrorPassthrough(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t)

	schema, err := rel.NewSchema(rel.Field{Name: "id", Type: rel.Int64})
	require.NoError(t, err)
	ghost, err := rel.NewTable("no_such_table", schema)
	require.NoError(t, err)

	_, err = b.Execute(ctx, ghost)
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.NotEmpty(t, execErr.Query)
	assert.Error(t, execErr.Unwrap(), "driver error must be preserved")
}

func TestBackend_Compile_NoIO(t *testing.T) {
	// Compile must not touch the database, so an unconnected adapter works.
	b := New(sqlite.New(nil), nil)

	schema, err := rel.NewSchema(
		rel.Field{Name: "id", Type: rel.Int64},
		rel.Field{Name: "name", Type: rel.String},
	)
	require.NoError(t, err)
	users, err := rel.NewTable("users", schema)
	require.NoError(t, err)

	q, err := b.Compile(users)
	require.NoError(t, err)
	assert.Equal(t, "SELECT t0.id, t0.name FROM users AS t0", q.SQL)
	assert.Equal(t, "sqlite", q.Dialect)

	again, err := b.Compile(users)
	require.NoError(t, err)
	assert.Equal(t, q, again)
}
