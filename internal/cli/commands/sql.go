package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// SQLOptions holds options for the sql command.
type SQLOptions struct {
	Format string
	Input  string
}

// NewSQLCommand creates the sql command.
func NewSQLCommand() *cobra.Command {
	opts := &SQLOptions{}

	cmd := &cobra.Command{
		Use:   "sql [SQL]",
		Short: "Run raw SQL against the configured target",
		Long: `Execute a SQL statement directly against the target database.

The statement runs as written: nothing is compiled or type-checked, so
this is the escape hatch for DDL, inserts, and engine-specific SQL that
pipeline files cannot express.

When invoked without arguments on a terminal, enters interactive REPL
mode with table-name completion and multi-line editing.`,
		Example: `  # Execute SQL directly
  relq sql "SELECT count(*) FROM orders"

  # Create a table to query later
  relq sql "CREATE TABLE events (id INTEGER, name TEXT)"

  # Read SQL from a file
  relq sql --input setup.sql

  # Pipe SQL in
  echo "SELECT 1" | relq sql

  # Output as JSON
  relq sql "SELECT * FROM orders" --format json

  # Interactive mode
  relq sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Result format: table, json, csv, md")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	return cmd
}

func runSQL(cmd *cobra.Command, args []string, opts *SQLOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// Determine SQL source
	var sqlText string
	switch {
	case len(args) > 0:
		sqlText = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlText = string(content)
	case !isTerminal(os.Stdin):
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlText = string(content)
	default:
		// No input, TTY detected: enter REPL mode
		return runSQLREPL(cmd, cc, opts)
	}

	sqlText = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sqlText), ";"))
	if sqlText == "" {
		return fmt.Errorf("no SQL to execute")
	}

	res, err := cc.Backend.Raw(cmd.Context(), sqlText)
	if err != nil {
		return err
	}
	return renderResult(cc.Renderer.Writer(), res, resolveFormat(opts.Format, cc.Renderer))
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
