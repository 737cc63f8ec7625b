// Package dialect describes how a SQL engine spells things: identifier
// quoting, parameter placeholders, type and aggregate names, and the
// clauses it supports. Concrete dialects are registered from the
// pkg/dialects/* packages and looked up by name.
package dialect

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/relq/pkg/rel"
)

// NormalizationStrategy defines how unquoted identifiers are normalized.
type NormalizationStrategy int

const (
	// NormLowercase normalizes unquoted identifiers to lowercase (default SQL behavior).
	NormLowercase NormalizationStrategy = iota
	// NormUppercase normalizes unquoted identifiers to uppercase (Snowflake, Oracle).
	NormUppercase
	// NormCaseSensitive preserves identifier case exactly.
	NormCaseSensitive
)

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. for parameters (PostgreSQL).
	PlaceholderDollar
)

// IdentifierConfig defines how identifiers are quoted and normalized.
type IdentifierConfig struct {
	Quote         string // Opening quote character(s), e.g. `"`
	QuoteEnd      string // Closing quote character(s), e.g. `"`
	Escape        string // Replacement for QuoteEnd inside identifiers, e.g. `""`
	Normalization NormalizationStrategy
}

// Capabilities are the feature flags query generation branches on.
type Capabilities struct {
	// FilterClause reports support for the standard aggregate
	// FILTER (WHERE ...) clause. Engines without it get a CASE rewrite.
	FilterClause bool
	// RightJoin reports native RIGHT OUTER JOIN support.
	RightJoin bool
	// FullJoin reports native FULL OUTER JOIN support.
	FullJoin bool
}

// Dialect is a SQL dialect configuration.
type Dialect struct {
	Name        string
	Identifiers IdentifierConfig

	// Database-specific settings
	DefaultSchema string // Schema unqualified tables live in ("main" for DuckDB, "public" for Postgres)
	Placeholder   PlaceholderStyle
	Capabilities  Capabilities

	typeNames     map[rel.Kind]string
	aggregates    map[rel.AggKind]string
	reservedWords map[string]struct{}
}

// NormalizeName normalizes an identifier according to dialect rules.
func (d *Dialect) NormalizeName(name string) string {
	switch d.Identifiers.Normalization {
	case NormUppercase:
		return strings.ToUpper(name)
	case NormLowercase:
		return strings.ToLower(name)
	default: // NormCaseSensitive
		return name
	}
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
// Returns "?" for PlaceholderQuestion style, "$1", "$2" etc. for PlaceholderDollar style.
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default: // PlaceholderQuestion
		return "?"
	}
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	// Escape any existing quote end characters in the name (e.g., " -> "")
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// IsReservedWord returns true if the word needs quoting when used as an identifier.
func (d *Dialect) IsReservedWord(word string) bool {
	_, ok := d.reservedWords[d.NormalizeName(word)]
	return ok
}

// QuoteIdentifierIfNeeded quotes an identifier when it is a reserved word
// or not a plain lowercase name.
func (d *Dialect) QuoteIdentifierIfNeeded(name string) string {
	if d.IsReservedWord(name) || !plainIdentifier(name) {
		return d.QuoteIdentifier(name)
	}
	return name
}

func plainIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// TypeName returns the dialect's spelling of a type kind, used for CAST
// targets.
func (d *Dialect) TypeName(kind rel.Kind) (string, bool) {
	name, ok := d.typeNames[kind]
	return name, ok
}

// AggregateName returns the dialect's spelling of an aggregate function,
// falling back to the ANSI name when the dialect does not override it.
func (d *Dialect) AggregateName(kind rel.AggKind) string {
	if name, ok := d.aggregates[kind]; ok {
		return name
	}
	switch kind {
	case rel.AggSum:
		return "SUM"
	case rel.AggMean:
		return "AVG"
	case rel.AggMin:
		return "MIN"
	case rel.AggMax:
		return "MAX"
	default:
		return "COUNT"
	}
}

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// NewDialect creates a new dialect builder with ANSI-leaning defaults:
// double-quoted identifiers, lowercase normalization and question-mark
// placeholders.
func NewDialect(name string) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name: name,
			Identifiers: IdentifierConfig{
				Quote:         `"`,
				QuoteEnd:      `"`,
				Escape:        `""`,
				Normalization: NormLowercase,
			},
			DefaultSchema: "main",
			typeNames:     make(map[rel.Kind]string),
			aggregates:    make(map[rel.AggKind]string),
			reservedWords: make(map[string]struct{}),
		},
	}
}

// Identifiers configures identifier quoting and normalization.
func (b *Builder) Identifiers(quote, quoteEnd, escape string, norm NormalizationStrategy) *Builder {
	b.dialect.Identifiers = IdentifierConfig{
		Quote:         quote,
		QuoteEnd:      quoteEnd,
		Escape:        escape,
		Normalization: norm,
	}
	return b
}

// DefaultSchema sets the schema unqualified tables live in.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.dialect.DefaultSchema = schema
	return b
}

// Placeholder sets the parameter placeholder style.
func (b *Builder) Placeholder(style PlaceholderStyle) *Builder {
	b.dialect.Placeholder = style
	return b
}

// Capabilities sets the dialect's feature flags.
func (b *Builder) Capabilities(caps Capabilities) *Builder {
	b.dialect.Capabilities = caps
	return b
}

// TypeName sets the dialect's spelling for a type kind.
func (b *Builder) TypeName(kind rel.Kind, name string) *Builder {
	b.dialect.typeNames[kind] = name
	return b
}

// Aggregate sets the dialect's spelling for an aggregate function.
func (b *Builder) Aggregate(kind rel.AggKind, name string) *Builder {
	b.dialect.aggregates[kind] = name
	return b
}

// ReservedWords adds words that must be quoted when used as identifiers.
func (b *Builder) ReservedWords(words ...string) *Builder {
	for _, w := range words {
		b.dialect.reservedWords[b.dialect.NormalizeName(w)] = struct{}{}
	}
	return b
}

// Build returns the configured dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}
