// Package sqlite provides the SQLite SQL dialect definition.
package sqlite

import (
	"github.com/leapstack-labs/relq/pkg/dialect"
	"github.com/leapstack-labs/relq/pkg/rel"
)

func init() {
	dialect.Register(SQLite)
}

// SQLite is the SQLite dialect. Capabilities are kept conservative so
// generated SQL also runs on the older library versions still common in
// the field: aggregate filters are rewritten to CASE and right/full joins
// are rejected rather than emitted.
var SQLite = dialect.NewDialect("sqlite").
	Identifiers(`"`, `"`, `""`, dialect.NormLowercase).
	Placeholder(dialect.PlaceholderQuestion).
	DefaultSchema("main").
	Capabilities(dialect.Capabilities{
		FilterClause: false,
		RightJoin:    false,
		FullJoin:     false,
	}).
	TypeName(rel.KindBoolean, "INTEGER").
	TypeName(rel.KindInt64, "INTEGER").
	TypeName(rel.KindFloat64, "REAL").
	TypeName(rel.KindString, "TEXT").
	TypeName(rel.KindDate, "TEXT").
	TypeName(rel.KindTimestamp, "TEXT").
	ReservedWords(
		"abort", "action", "add", "after", "all", "alter", "and", "as", "asc",
		"attach", "autoincrement", "before", "begin", "between", "by",
		"cascade", "case", "cast", "check", "collate", "column", "commit",
		"conflict", "constraint", "create", "cross", "current_date",
		"current_time", "current_timestamp", "database", "default",
		"deferrable", "deferred", "delete", "desc", "detach", "distinct",
		"drop", "each", "else", "end", "escape", "except", "exclusive",
		"exists", "explain", "fail", "for", "foreign", "from", "full", "glob",
		"group", "having", "if", "ignore", "immediate", "in", "index",
		"indexed", "initially", "inner", "insert", "instead", "intersect",
		"into", "is", "isnull", "join", "key", "left", "like", "limit",
		"match", "natural", "no", "not", "notnull", "null", "of", "offset",
		"on", "or", "order", "outer", "plan", "pragma", "primary", "query",
		"raise", "recursive", "references", "regexp", "reindex", "release",
		"rename", "replace", "restrict", "right", "rollback", "row",
		"savepoint", "select", "set", "table", "temp", "temporary", "then",
		"to", "transaction", "trigger", "union", "unique", "update", "using",
		"vacuum", "values", "view", "virtual", "when", "where", "with",
		"without",
	).
	Build()
