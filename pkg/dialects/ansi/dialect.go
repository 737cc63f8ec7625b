// Package ansi provides the baseline ANSI SQL dialect.
//
// It is the conservative fallback: standard type names, no aggregate
// FILTER clause, and it serves as the reference point other dialects
// deviate from.
package ansi

import (
	"github.com/leapstack-labs/relq/pkg/dialect"
	"github.com/leapstack-labs/relq/pkg/rel"
)

func init() {
	dialect.Register(ANSI)
}

// ANSI is the baseline SQL dialect.
var ANSI = dialect.NewDialect("ansi").
	Identifiers(`"`, `"`, `""`, dialect.NormLowercase).
	Placeholder(dialect.PlaceholderQuestion).
	DefaultSchema("public").
	Capabilities(dialect.Capabilities{
		FilterClause: false,
		RightJoin:    true,
		FullJoin:     true,
	}).
	TypeName(rel.KindBoolean, "BOOLEAN").
	TypeName(rel.KindInt64, "BIGINT").
	TypeName(rel.KindFloat64, "DOUBLE PRECISION").
	TypeName(rel.KindString, "VARCHAR").
	TypeName(rel.KindDate, "DATE").
	TypeName(rel.KindTimestamp, "TIMESTAMP").
	ReservedWords(
		"all", "and", "any", "as", "asc", "between", "by", "case", "cast",
		"check", "column", "constraint", "create", "cross", "current_date",
		"current_time", "current_timestamp", "default", "desc", "distinct",
		"else", "end", "except", "exists", "false", "filter", "for", "foreign",
		"from", "full", "group", "having", "in", "inner", "insert", "intersect",
		"into", "is", "join", "left", "like", "limit", "not", "null", "offset",
		"on", "or", "order", "outer", "primary", "references", "right",
		"select", "table", "then", "to", "true", "union", "unique", "update",
		"user", "using", "values", "when", "where", "with",
	).
	Build()
