// Package pipeline loads declarative query files and builds them into
// relational expression trees.
//
// A pipeline file is YAML with two top-level sections: sources, naming the
// tables a query may read and (optionally) their schemas, and queries, each
// describing one relational expression as a chain of operations. Building a
// pipeline constructs rel trees eagerly, so every schema and type error
// surfaces before anything touches a database.
package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// File is a parsed pipeline file.
type File struct {
	Sources map[string]Source `yaml:"sources"`
	Queries []Query           `yaml:"queries"`
}

// Source declares a table a query may read. When Columns is omitted the
// schema is resolved from the target database instead; Table overrides the
// physical table name, which otherwise defaults to the source's key.
type Source struct {
	Table   string      `yaml:"table"`
	Columns []ColumnDef `yaml:"columns"`
}

// ColumnDef is one column of an inline source schema.
type ColumnDef struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Query describes one relational expression. Operations apply in SQL
// order: from, join, where, group_by/aggregate, select, order_by, limit.
type Query struct {
	Name      string       `yaml:"name"`
	From      string       `yaml:"from"`
	Join      *JoinSpec    `yaml:"join"`
	Where     *Expr        `yaml:"where"`
	GroupBy   []string     `yaml:"group_by"`
	Aggregate []AggSpec    `yaml:"aggregate"`
	Select    []SelectExpr `yaml:"select"`
	OrderBy   []OrderSpec  `yaml:"order_by"`
	Limit     *int64       `yaml:"limit"`
}

// SelectExpr is a projected column: an expression plus an optional output
// name. A bare column reference keeps its own name.
type SelectExpr struct {
	Name string
	Expr Expr
}

// UnmarshalYAML accepts the scalar column shorthand, or a mapping whose
// name key (if present) renames the output and whose remaining keys form
// the expression.
func (se *SelectExpr) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&se.Expr)
	}
	var meta struct {
		Name string `yaml:"name"`
	}
	if err := node.Decode(&meta); err != nil {
		return err
	}
	se.Name = meta.Name
	return node.Decode(&se.Expr)
}

// Expr is one expression form. Exactly one field may be set. A plain
// scalar string is shorthand for a column reference, so `of: population`
// and `of: {col: population}` are the same expression. Column names may be
// qualified as "source.column" where several sources are in scope.
type Expr struct {
	Col    string      `yaml:"col,omitempty"`
	Lit    *LitValue   `yaml:"lit,omitempty"`
	Binary *BinarySpec `yaml:"binary,omitempty"`
	Cast   *CastSpec   `yaml:"cast,omitempty"`
	IsNull *Expr       `yaml:"is_null,omitempty"`
	Case   *CaseSpec   `yaml:"case,omitempty"`
	Fn     string      `yaml:"fn,omitempty"`
	Of     *Expr       `yaml:"of,omitempty"`
	Where  *Expr       `yaml:"where,omitempty"`
}

// LitValue holds a literal exactly as written. It captures the raw node so
// an explicit `lit: null` stays distinguishable from an absent key, which a
// plain any field would collapse.
type LitValue struct {
	node yaml.Node
}

// UnmarshalYAML captures the literal's node verbatim.
func (l *LitValue) UnmarshalYAML(node *yaml.Node) error {
	l.node = *node
	return nil
}

// IsNull reports whether the literal is an explicit null.
func (l *LitValue) IsNull() bool { return l.node.Tag == "!!null" }

// Decode unmarshals the literal into v with YAML's scalar typing rules.
func (l *LitValue) Decode(v any) error { return l.node.Decode(v) }

// UnmarshalYAML accepts either a mapping or the scalar column shorthand.
func (e *Expr) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var col string
		if err := node.Decode(&col); err != nil {
			return err
		}
		e.Col = col
		return nil
	}
	type plain Expr
	if err := node.Decode((*plain)(e)); err != nil {
		return err
	}
	// An explicit `lit: null` decodes the pointer to nil without reaching
	// the LitValue unmarshaler; recover the node so a null literal stays
	// distinguishable from an absent key.
	if e.Lit == nil {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == "lit" {
				e.Lit = &LitValue{node: *node.Content[i+1]}
				break
			}
		}
	}
	return nil
}

// BinarySpec is a binary operation. Op is one of add, sub, mul, div, eq,
// ne, lt, le, gt, ge, and, or.
type BinarySpec struct {
	Op    string `yaml:"op"`
	Left  Expr   `yaml:"left"`
	Right Expr   `yaml:"right"`
}

// CastSpec converts an expression to a named type.
type CastSpec struct {
	Of Expr   `yaml:"of"`
	To string `yaml:"to"`
}

// CaseSpec is a conditional expression. With Subject set each match is
// compared against it for equality; without, each match must itself be a
// boolean condition.
type CaseSpec struct {
	Subject *Expr      `yaml:"subject"`
	When    []WhenSpec `yaml:"when"`
	Else    *Expr      `yaml:"else"`
}

// WhenSpec is one case branch.
type WhenSpec struct {
	Match Expr `yaml:"match"`
	Then  Expr `yaml:"then"`
}

// AggSpec is one named aggregate output. Fn is one of sum, mean, avg, min,
// max, count; Of is omitted for a bare row count; Where filters the rows
// the aggregate sees.
type AggSpec struct {
	Name  string `yaml:"name"`
	Fn    string `yaml:"fn"`
	Of    *Expr  `yaml:"of"`
	Where *Expr  `yaml:"where"`
}

// JoinSpec joins the query's table with another source.
type JoinSpec struct {
	With string `yaml:"with"`
	Kind string `yaml:"kind"`
	On   Expr   `yaml:"on"`
}

// OrderSpec is one sort key. A plain scalar string is shorthand for an
// ascending sort on that column.
type OrderSpec struct {
	By   string `yaml:"by"`
	Desc bool   `yaml:"desc"`
}

// UnmarshalYAML accepts either a mapping or the scalar column shorthand.
func (o *OrderSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var by string
		if err := node.Decode(&by); err != nil {
			return err
		}
		o.By = by
		return nil
	}
	type plain OrderSpec
	return node.Decode((*plain)(o))
}

// ParseError reports a pipeline file that could not be parsed or failed
// structural validation.
type ParseError struct {
	File    string
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// Load reads and parses a pipeline file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the user's own command line
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.File = path
		}
		return nil, err
	}
	return f, nil
}

// Parse parses pipeline YAML. Unknown fields are rejected so typos fail
// loudly instead of silently dropping an operation.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// validate checks structural rules that don't need schemas: every query is
// named, reads a declared source, and names are unique.
func (f *File) validate() error {
	seen := make(map[string]bool, len(f.Queries))
	for i := range f.Queries {
		q := &f.Queries[i]
		if q.Name == "" {
			return &ParseError{Message: fmt.Sprintf("query %d has no name", i+1)}
		}
		if seen[q.Name] {
			return &ParseError{Message: fmt.Sprintf("duplicate query name %q", q.Name)}
		}
		seen[q.Name] = true

		if q.From == "" {
			return &ParseError{Message: fmt.Sprintf("query %q has no from", q.Name)}
		}
		if _, ok := f.Sources[q.From]; !ok {
			return &ParseError{Message: fmt.Sprintf("query %q reads undeclared source %q", q.Name, q.From)}
		}
		if q.Join != nil {
			if _, ok := f.Sources[q.Join.With]; !ok {
				return &ParseError{Message: fmt.Sprintf("query %q joins undeclared source %q", q.Name, q.Join.With)}
			}
		}
		if len(q.GroupBy) > 0 && len(q.Aggregate) == 0 {
			return &ParseError{Message: fmt.Sprintf("query %q has group_by but no aggregate", q.Name)}
		}
	}
	return nil
}

// UnresolvedSources lists sources declared without inline columns, in
// name order. Their schemas must come from the target database.
func (f *File) UnresolvedSources() []string {
	var names []string
	for name, src := range f.Sources {
		if len(src.Columns) == 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// TableName returns the physical table a source reads.
func (f *File) TableName(source string) string {
	if src, ok := f.Sources[source]; ok && src.Table != "" {
		return src.Table
	}
	return source
}
