// Package duckdb provides a DuckDB adapter for relq.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/go-viper/mapstructure/v2"
	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/leapstack-labs/relq/pkg/adapter"
	"github.com/leapstack-labs/relq/pkg/dialect"
	duckdbdialect "github.com/leapstack-labs/relq/pkg/dialects/duckdb"
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the DuckDB SQL dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return duckdbdialect.DuckDB
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg

	if err := a.applyParams(ctx, params); err != nil {
		_ = a.Close()
		return err
	}

	return nil
}

// applyParams installs extensions and applies session settings.
func (a *Adapter) applyParams(ctx context.Context, params Params) error {
	for _, ext := range params.Extensions {
		a.Logger.Debug("loading duckdb extension", slog.String("extension", ext))
		if err := a.Exec(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}
	for key, value := range params.Settings {
		if err := a.Exec(ctx, fmt.Sprintf("SET %s = '%s'", key, value)); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", key, err)
		}
	}
	return nil
}

// parseParams decodes adapter-specific params from the config map.
func parseParams(raw map[string]any) (Params, error) {
	var params Params
	if raw == nil {
		return params, nil
	}
	if err := mapstructure.Decode(raw, &params); err != nil {
		return params, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return params, nil
}

// TableMetadata retrieves metadata for a table via information_schema.
func (a *Adapter) TableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return a.TableMetadataCommon(ctx, table, a.Dialect())
}

var _ adapter.Adapter = (*Adapter)(nil)
