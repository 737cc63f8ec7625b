// Package backend binds an adapter and a compiler into the single
// materialization entry point. Building expression trees never touches the
// database; everything that does lives here.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/relq/pkg/adapter"
	"github.com/leapstack-labs/relq/pkg/dialect"
	"github.com/leapstack-labs/relq/pkg/rel"
	"github.com/leapstack-labs/relq/pkg/sqlgen"
)

// ExecutionError reports an execution failure. The driver error is carried
// unmodified so backend-specific diagnostics survive; errors.Unwrap exposes
// it. Query holds the SQL that failed.
type ExecutionError struct {
	Query string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Result holds materialized rows in column order.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (r *Result) Len() int { return len(r.Rows) }

// Backend executes expression trees against a connected adapter.
type Backend struct {
	adp      adapter.Adapter
	compiler *sqlgen.Compiler
	logger   *slog.Logger
}

// New creates a backend around a connected adapter.
// If logger is nil, a discard logger is used.
func New(adp adapter.Adapter, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Backend{
		adp:      adp,
		compiler: sqlgen.New(adp.Dialect()),
		logger:   logger,
	}
}

// Adapter returns the bound adapter.
func (b *Backend) Adapter() adapter.Adapter { return b.adp }

// Dialect returns the dialect SQL is generated for.
func (b *Backend) Dialect() *dialect.Dialect { return b.adp.Dialect() }

// Table introspects a table in the connected database and returns a scan
// bound to its live schema. The name may be qualified as "schema.table".
func (b *Backend) Table(ctx context.Context, name string) (rel.Table, error) {
	meta, err := b.adp.TableMetadata(ctx, name)
	if err != nil {
		if errors.Is(err, adapter.ErrTableNotFound) {
			return rel.Table{}, &rel.SourceNotFoundError{Name: name}
		}
		return rel.Table{}, err
	}

	fields := make([]rel.Field, len(meta.Columns))
	for i, col := range meta.Columns {
		fields[i] = rel.Field{Name: col.Name, Type: TypeFromSQL(col.Type)}
	}
	schema, err := rel.NewSchema(fields...)
	if err != nil {
		return rel.Table{}, fmt.Errorf("table %s: %w", name, err)
	}
	return rel.NewTable(name, schema)
}

// Compile lowers a table expression to SQL without executing it.
func (b *Backend) Compile(t rel.Table) (sqlgen.Query, error) {
	return b.compiler.Compile(t.Node())
}

// CompileValue lowers a value expression to SQL without executing it.
func (b *Backend) CompileValue(v rel.Value) (sqlgen.Query, error) {
	return b.compiler.CompileValue(v.Node())
}

// Execute compiles a table expression, runs it, and materializes all rows.
func (b *Backend) Execute(ctx context.Context, t rel.Table) (*Result, error) {
	q, err := b.Compile(t)
	if err != nil {
		return nil, err
	}
	return b.run(ctx, q)
}

// ExecuteValue compiles and runs a single value expression. Scalar-shaped
// expressions return the single value; column-shaped expressions return a
// []any with one element per row.
func (b *Backend) ExecuteValue(ctx context.Context, v rel.Value) (any, error) {
	q, err := b.CompileValue(v)
	if err != nil {
		return nil, err
	}
	res, err := b.run(ctx, q)
	if err != nil {
		return nil, err
	}

	values := make([]any, 0, len(res.Rows))
	for _, row := range res.Rows {
		values = append(values, row[0])
	}

	if v.Shape() == rel.ShapeColumn {
		return values, nil
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("scalar expression returned %d rows", len(values))
	}
	return values[0], nil
}

// Raw executes a SQL string as-is and materializes all rows. It bypasses
// compilation entirely, so nothing is type-checked; callers own the SQL.
func (b *Backend) Raw(ctx context.Context, sql string) (*Result, error) {
	return b.run(ctx, sqlgen.Query{SQL: sql, Dialect: b.Dialect().Name})
}

// run executes compiled SQL and scans every row.
func (b *Backend) run(ctx context.Context, q sqlgen.Query) (*Result, error) {
	b.logger.Debug("executing query",
		slog.String("dialect", q.Dialect),
		slog.String("sql", q.SQL))

	rows, err := b.adp.Query(ctx, q.SQL)
	if err != nil {
		return nil, &ExecutionError{Query: q.SQL, Err: err}
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &ExecutionError{Query: q.SQL, Err: err}
	}

	var result [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, &ExecutionError{Query: q.SQL, Err: err}
		}
		for i, val := range values {
			// Convert []byte to string for readability
			if bs, ok := val.([]byte); ok {
				values[i] = string(bs)
			}
		}
		result = append(result, values)
	}
	if err := rows.Err(); err != nil {
		return nil, &ExecutionError{Query: q.SQL, Err: err}
	}

	return &Result{Columns: cols, Rows: result}, nil
}
