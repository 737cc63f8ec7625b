// Package duckdb provides the DuckDB SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package duckdb

import (
	"github.com/leapstack-labs/relq/pkg/dialect"
	"github.com/leapstack-labs/relq/pkg/rel"
)

func init() {
	dialect.Register(DuckDB)
}

// DuckDB is the DuckDB dialect. DuckDB tracks the standard closely and
// supports the aggregate FILTER clause natively.
var DuckDB = dialect.NewDialect("duckdb").
	Identifiers(`"`, `"`, `""`, dialect.NormLowercase).
	Placeholder(dialect.PlaceholderQuestion).
	DefaultSchema("main").
	Capabilities(dialect.Capabilities{
		FilterClause: true,
		RightJoin:    true,
		FullJoin:     true,
	}).
	TypeName(rel.KindBoolean, "BOOLEAN").
	TypeName(rel.KindInt64, "BIGINT").
	TypeName(rel.KindFloat64, "DOUBLE").
	TypeName(rel.KindString, "VARCHAR").
	TypeName(rel.KindDate, "DATE").
	TypeName(rel.KindTimestamp, "TIMESTAMP").
	TypeName(rel.KindArray, "[]").
	ReservedWords(
		"all", "and", "any", "as", "asc", "between", "by", "case", "cast",
		"column", "create", "cross", "default", "desc", "distinct", "else",
		"end", "except", "exists", "false", "filter", "from", "full", "group",
		"having", "in", "inner", "intersect", "into", "is", "join", "left",
		"like", "limit", "not", "null", "offset", "on", "or", "order", "outer",
		"pivot", "qualify", "right", "select", "table", "then", "true",
		"union", "unpivot", "using", "values", "when", "where", "with",
	).
	Build()
