// Package adapter defines the contract between relq and the databases it
// executes against.
//
// An Adapter owns a live connection, runs SQL produced by pkg/sqlgen, and
// exposes enough catalog introspection to bind tables by name. Concrete
// implementations live in pkg/adapters/ subdirectories and register
// themselves with this package's registry from their init functions.
package adapter

import (
	"context"
	"database/sql"
	"errors"

	"github.com/leapstack-labs/relq/pkg/dialect"
)

// ErrTableNotFound reports that introspection found no table with the
// requested name. Adapters wrap it so callers can match with errors.Is.
var ErrTableNotFound = errors.New("table not found")

// Config holds connection settings for an adapter. Which fields matter
// depends on the adapter type: file-backed engines read Path, server
// engines read Host/Port/Database and credentials. Params carries
// adapter-specific settings that concrete adapters decode themselves.
type Config struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// Column describes one column of a database table as the engine reports it.
// Type is the engine's native type name, not a rel.DataType.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// Metadata holds catalog information about a database table.
type Metadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// Rows wraps sql.Rows so callers iterate results without importing
// database/sql directly.
type Rows struct {
	*sql.Rows
}

// Adapter is the interface all database adapters implement.
type Adapter interface {
	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Exec runs a statement that returns no rows (DDL, INSERT, ...).
	Exec(ctx context.Context, sql string) error

	// Query runs a statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// TableMetadata introspects a table. The name may be qualified as
	// "schema.table"; unqualified names resolve against the dialect's
	// default schema.
	TableMetadata(ctx context.Context, table string) (*Metadata, error)

	// Dialect returns the SQL dialect this adapter's engine speaks.
	// The compiler uses it for quoting, type names, and capability checks.
	Dialect() *dialect.Dialect
}
