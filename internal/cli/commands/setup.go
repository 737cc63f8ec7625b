// Package commands implements the relq subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/relq/internal/cli/config"
	"github.com/leapstack-labs/relq/internal/cli/output"
	"github.com/leapstack-labs/relq/internal/state"
	"github.com/leapstack-labs/relq/pkg/adapter"
	"github.com/leapstack-labs/relq/pkg/backend"
	"github.com/spf13/cobra"

	// Adapters register themselves on import.
	_ "github.com/leapstack-labs/relq/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/relq/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/relq/pkg/adapters/sqlite"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Backend  *backend.Backend
}

// NewCommandContext creates a CommandContext with a connected backend.
// Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutBackend(cmd)

	if cc.Cfg.Target == nil {
		return nil, nil, fmt.Errorf("no target configured (add a target block to relq.yaml or use --target)")
	}

	adapterCfg := cc.Cfg.Target.AdapterConfig()
	adp, err := adapter.New(adapterCfg, cc.Logger)
	if err != nil {
		return nil, nil, err
	}
	if err := adp.Connect(cmd.Context(), adapterCfg); err != nil {
		return nil, nil, fmt.Errorf("connect to %s target: %w", cc.Cfg.Target.Type, err)
	}

	cleanup := func() {
		_ = adp.Close()
	}

	cc.Backend = backend.New(adp, cc.Logger)
	return cc, cleanup, nil
}

// NewCommandContextWithoutBackend creates a CommandContext without a
// database connection. Useful for commands that never execute anything.
func NewCommandContextWithoutBackend(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Helper functions shared across commands

// resolveStatePath returns the history database path from config or the default.
func resolveStatePath(cfg *config.Config) string {
	if cfg.StatePath != "" {
		return cfg.StatePath
	}
	return config.DefaultStateFile
}

// openHistoryStore opens the run history store for writing, creating the
// database and its directory on first use.
func openHistoryStore(cfg *config.Config) (*state.Store, error) {
	path := resolveStatePath(cfg)
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}

	st, err := state.Open(path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// openHistoryStoreReadOnly opens the run history store for reads. It fails
// when no history database exists yet.
func openHistoryStoreReadOnly(cfg *config.Config) (*state.Store, error) {
	path := resolveStatePath(cfg)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no run history at %s (run 'relq run' first)", path)
	}
	return state.OpenReadOnly(path)
}
