package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/relq/pkg/backend"
)

func runSQLREPL(cmd *cobra.Command, cc *CommandContext, opts *SQLOptions) error {
	ctx := cmd.Context()
	b := cc.Backend
	format := resolveFormat(opts.Format, cc.Renderer)

	// History lives next to the run history database
	historyFile := filepath.Join(filepath.Dir(resolveStatePath(cc.Cfg)), "sql_history")

	completer := newTableCompleter(ctx, b)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "relq> ",
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "relq SQL shell (%s target: %s)\n", b.Dialect().Name, cc.Cfg.TargetName)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	var multiLineBuffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			multiLineBuffer.Reset()
			rl.SetPrompt("relq> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Dot-commands only start a statement
		if multiLineBuffer.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := handleDotCommand(ctx, cmd, b, line, format); quit {
				break
			}
			continue
		}

		// Accumulate multi-line SQL until semicolon
		multiLineBuffer.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			multiLineBuffer.WriteString(" ")
			rl.SetPrompt("  ...> ")
			continue
		}
		rl.SetPrompt("relq> ")

		sqlText := strings.TrimSuffix(multiLineBuffer.String(), ";")
		multiLineBuffer.Reset()

		res, err := b.Raw(ctx, sqlText)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			continue
		}
		if err := renderResult(cmd.OutOrStdout(), res, format); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

// handleDotCommand runs one REPL dot-command and reports whether the REPL
// should exit.
func handleDotCommand(ctx context.Context, cmd *cobra.Command, b *backend.Backend, line, format string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(cmd.OutOrStdout())

	case ".tables":
		res, err := b.Raw(ctx, tableListSQL(b.Dialect().Name))
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return false
		}
		if err := renderResult(cmd.OutOrStdout(), res, format); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}

	case ".schema":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Usage: .schema <table>")
			return false
		}
		out, err := describeTable(ctx, b, parts[1])
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return false
		}
		if err := renderDescribeText(cmd.OutOrStdout(), out); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}

	case ".clear":
		fmt.Print("\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .tables         List tables in the target database
  .schema <name>  Show the schema of a table
  .clear          Clear the screen
  .quit / .exit   Exit the shell

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion works for table names
`
	_, _ = fmt.Fprintln(w, help)
}

// tableListSQL returns the catalog query listing user tables for a dialect.
func tableListSQL(dialectName string) string {
	switch dialectName {
	case "sqlite":
		return `SELECT name, type FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name`
	case "postgres":
		return `SELECT table_name AS name, table_type AS type FROM information_schema.tables WHERE table_schema = current_schema() ORDER BY table_name`
	default:
		return `SELECT table_name AS name, table_type AS type FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name`
	}
}

// newTableCompleter creates a readline completer over the target's table
// names plus the dot-commands. Introspection failures degrade to commands
// only.
func newTableCompleter(ctx context.Context, b *backend.Backend) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface

	if res, err := b.Raw(ctx, tableListSQL(b.Dialect().Name)); err == nil {
		for _, row := range res.Rows {
			if name, ok := row[0].(string); ok {
				items = append(items, readline.PcItem(name))
			}
		}
	}

	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
