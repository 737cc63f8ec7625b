// Package postgres provides the PostgreSQL SQL dialect definition.
// This package is pure Go with no database driver dependencies, so tools
// that only need dialect information can import it without pulling in a
// connection stack.
package postgres

import (
	"github.com/leapstack-labs/relq/pkg/dialect"
	"github.com/leapstack-labs/relq/pkg/rel"
)

func init() {
	dialect.Register(Postgres)
}

// postgresReservedWords contains common PostgreSQL reserved words.
// This is a manually maintained list of frequently problematic identifiers.
// For a complete list, use pg_get_keywords() at runtime.
var postgresReservedWords = []string{
	"user", "order", "group", "table", "select", "from", "where", "index",
	"all", "and", "any", "array", "as", "asc", "asymmetric", "authorization",
	"between", "binary", "both", "case", "cast", "check", "collate", "column",
	"constraint", "create", "cross", "current_catalog", "current_date",
	"current_role", "current_schema", "current_time", "current_timestamp",
	"current_user", "default", "deferrable", "desc", "distinct", "do", "else",
	"end", "except", "false", "fetch", "filter", "for", "foreign", "freeze",
	"full", "grant", "having", "ilike", "in", "initially", "inner",
	"intersect", "into", "is", "isnull", "join", "lateral", "leading", "left",
	"like", "limit", "localtime", "localtimestamp", "natural", "not",
	"notnull", "null", "offset", "on", "only", "or", "outer", "overlaps",
	"placing", "primary", "references", "returning", "right", "session_user",
	"similar", "some", "symmetric", "then", "to", "trailing", "true", "union",
	"unique", "using", "variadic", "verbose", "when", "window", "with",
}

// Postgres is the PostgreSQL dialect.
var Postgres = dialect.NewDialect("postgres").
	Identifiers(`"`, `"`, `""`, dialect.NormLowercase).
	Placeholder(dialect.PlaceholderDollar).
	DefaultSchema("public").
	Capabilities(dialect.Capabilities{
		FilterClause: true,
		RightJoin:    true,
		FullJoin:     true,
	}).
	TypeName(rel.KindBoolean, "BOOLEAN").
	TypeName(rel.KindInt64, "BIGINT").
	TypeName(rel.KindFloat64, "DOUBLE PRECISION").
	TypeName(rel.KindString, "TEXT").
	TypeName(rel.KindDate, "DATE").
	TypeName(rel.KindTimestamp, "TIMESTAMP").
	TypeName(rel.KindArray, "[]").
	ReservedWords(postgresReservedWords...).
	Build()
