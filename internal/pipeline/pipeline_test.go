package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const examplePipeline = `
sources:
  countries:
    columns:
      - {name: name, type: string}
      - {name: continent, type: string}
      - {name: population, type: int}
queries:
  - name: continent_totals
    from: countries
    group_by: [continent]
    aggregate:
      - {name: total, fn: sum, of: population}
  - name: regions
    from: countries
    select:
      - {col: name}
      - name: region
        case:
          subject: {col: continent}
          when:
            - {match: {lit: EU}, then: {lit: Europe}}
            - {match: {lit: AS}, then: {lit: Asia}}
          else: {lit: Other}
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(examplePipeline))
	require.NoError(t, err)

	require.Len(t, f.Sources, 1)
	require.Len(t, f.Queries, 2)

	countries := f.Sources["countries"]
	require.Len(t, countries.Columns, 3)
	assert.Equal(t, ColumnDef{Name: "population", Type: "int"}, countries.Columns[2])

	totals := f.Queries[0]
	assert.Equal(t, "continent_totals", totals.Name)
	assert.Equal(t, "countries", totals.From)
	assert.Equal(t, []string{"continent"}, totals.GroupBy)
	require.Len(t, totals.Aggregate, 1)
	assert.Equal(t, "total", totals.Aggregate[0].Name)
	assert.Equal(t, "sum", totals.Aggregate[0].Fn)
	require.NotNil(t, totals.Aggregate[0].Of)
	assert.Equal(t, "population", totals.Aggregate[0].Of.Col)

	regions := f.Queries[1]
	require.Len(t, regions.Select, 2)
	assert.Equal(t, "name", regions.Select[0].Expr.Col)
	assert.Equal(t, "region", regions.Select[1].Name)
	sel := regions.Select[1].Expr
	require.NotNil(t, sel.Case)
	require.NotNil(t, sel.Case.Subject)
	assert.Equal(t, "continent", sel.Case.Subject.Col)
	require.Len(t, sel.Case.When, 2)
	require.NotNil(t, sel.Case.Else)
}

func TestParse_ScalarShorthands(t *testing.T) {
	src := `
sources:
  t:
    columns:
      - {name: a, type: int}
queries:
  - name: q
    from: t
    select: [a]
    order_by: [a, {by: a, desc: true}]
`
	f, err := Parse([]byte(src))
	require.NoError(t, err)

	q := f.Queries[0]
	require.Len(t, q.Select, 1)
	assert.Equal(t, "a", q.Select[0].Expr.Col)
	assert.Empty(t, q.Select[0].Name)

	require.Len(t, q.OrderBy, 2)
	assert.Equal(t, OrderSpec{By: "a"}, q.OrderBy[0])
	assert.Equal(t, OrderSpec{By: "a", Desc: true}, q.OrderBy[1])
}

func TestParse_Literals(t *testing.T) {
	// Strict decoding must still accept every literal shape; the raw node
	// is captured so an explicit null stays distinguishable.
	src := `
sources:
  t:
    columns:
      - {name: a, type: int}
queries:
  - name: q
    from: t
    select:
      - {name: s, lit: EU}
      - {name: n, lit: 1000000}
      - {name: f, lit: 2.5}
      - {name: b, lit: true}
      - {name: z, lit: null}
`
	f, err := Parse([]byte(src))
	require.NoError(t, err)

	sel := f.Queries[0].Select
	require.Len(t, sel, 5)

	var s string
	require.NoError(t, sel[0].Expr.Lit.Decode(&s))
	assert.Equal(t, "EU", s)

	var n int64
	require.NoError(t, sel[1].Expr.Lit.Decode(&n))
	assert.Equal(t, int64(1000000), n)

	var fl float64
	require.NoError(t, sel[2].Expr.Lit.Decode(&fl))
	assert.Equal(t, 2.5, fl)

	var b bool
	require.NoError(t, sel[3].Expr.Lit.Decode(&b))
	assert.True(t, b)

	assert.False(t, sel[0].Expr.Lit.IsNull())
	assert.True(t, sel[4].Expr.Lit.IsNull())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "unknown top-level field",
			src:  "pipelines: []\n",
			want: "invalid YAML",
		},
		{
			name: "unnamed query",
			src: `
sources:
  t:
    columns: [{name: a, type: int}]
queries:
  - from: t
`,
			want: "has no name",
		},
		{
			name: "duplicate query names",
			src: `
sources:
  t:
    columns: [{name: a, type: int}]
queries:
  - {name: q, from: t}
  - {name: q, from: t}
`,
			want: `duplicate query name "q"`,
		},
		{
			name: "missing from",
			src: `
queries:
  - {name: q}
`,
			want: "has no from",
		},
		{
			name: "undeclared source",
			src: `
queries:
  - {name: q, from: ghosts}
`,
			want: `undeclared source "ghosts"`,
		},
		{
			name: "undeclared join source",
			src: `
sources:
  t:
    columns: [{name: a, type: int}]
queries:
  - name: q
    from: t
    join: {with: ghosts, on: {col: a}}
`,
			want: `joins undeclared source "ghosts"`,
		},
		{
			name: "group_by without aggregate",
			src: `
sources:
  t:
    columns: [{name: a, type: int}]
queries:
  - name: q
    from: t
    group_by: [a]
`,
			want: "group_by but no aggregate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(examplePipeline), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Queries, 2)
}

func TestLoad_ErrorCarriesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queries: {not: a list}\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}

func TestUnresolvedSources(t *testing.T) {
	src := `
sources:
  zeta: {}
  alpha:
    table: physical_alpha
  countries:
    columns: [{name: name, type: string}]
queries: []
`
	f, err := Parse([]byte(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "zeta"}, f.UnresolvedSources())
	assert.Equal(t, "physical_alpha", f.TableName("alpha"))
	assert.Equal(t, "countries", f.TableName("countries"))
}
