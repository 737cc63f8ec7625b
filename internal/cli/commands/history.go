package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/relq/internal/cli/output"
	"github.com/leapstack-labs/relq/internal/state"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history [QUERY]",
		Short: "Show recorded query runs",
		Long: `List runs recorded in the history database, newest first.

Every 'relq run' records one entry per executed query: the compiled SQL,
the target it ran against, row count, timing, and any error. Pass a
query name to see the history of that query alone.`,
		Example: `  # Recent runs
  relq history

  # Runs of one query
  relq history orders_by_region

  # More entries
  relq history --limit 100

  # Full details of a run
  relq history show 1b9d6bcd

  # Machine-readable output
  relq history --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) > 0 {
				query = args[0]
			}
			return runHistoryList(cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")

	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryClearCommand())

	return cmd
}

func runHistoryList(cmd *cobra.Command, query string, opts *HistoryOptions) error {
	cc := NewCommandContextWithoutBackend(cmd)

	store, err := openHistoryStoreReadOnly(cc.Cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var runs []*state.QueryRun
	if query != "" {
		runs, err = store.ListQueryRunsFor(query, opts.Limit)
	} else {
		runs, err = store.ListQueryRuns(opts.Limit)
	}
	if err != nil {
		return err
	}

	entries := make([]output.HistoryEntry, 0, len(runs))
	for _, qr := range runs {
		entries = append(entries, historyEntry(qr))
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(output.HistoryOutput{Runs: entries, Count: len(entries)})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Run History"))
		r.Println("")
		if len(entries) == 0 {
			r.Println("No recorded runs.")
			return nil
		}
		r.Println("| ID | Query | Status | Rows | Time | Started |")
		r.Println("| --- | --- | --- | --- | --- | --- |")
		for _, e := range entries {
			r.Printf("| %s | %s | %s | %d | %dms | %s |\n",
				shortID(e.ID), e.Query, e.Status, e.Rows, e.ElapsedMS, e.StartedAt)
		}
		return nil
	default:
		if len(entries) == 0 {
			r.Muted("No recorded runs.")
			return nil
		}
		return renderHistoryTable(r, entries)
	}
}

func renderHistoryTable(r *output.Renderer, entries []output.HistoryEntry) error {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Query", "Status", "Rows", "Time", "Started"})

	for _, e := range entries {
		t.AppendRow(table.Row{
			shortID(e.ID),
			e.Query,
			e.Status,
			e.Rows,
			fmt.Sprintf("%dms", e.ElapsedMS),
			e.StartedAt,
		})
	}
	t.Render()
	return nil
}

// newHistoryShowCommand creates the history show subcommand.
func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one recorded run in full, including its SQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContextWithoutBackend(cmd)

			store, err := openHistoryStoreReadOnly(cc.Cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			qr, err := store.FindQueryRun(args[0])
			if err != nil {
				return err
			}
			entry := historyEntry(qr)

			r := cc.Renderer
			switch r.EffectiveMode() {
			case output.ModeJSON:
				return r.JSON(entry)
			case output.ModeMarkdown:
				r.Println(output.FormatHeader(1, fmt.Sprintf("Run %s", shortID(entry.ID))))
				r.Println("")
				r.Println(output.FormatKeyValue("Query", entry.Query))
				r.Println(output.FormatKeyValue("Status", entry.Status))
				r.Println(output.FormatKeyValue("Target", entry.Target))
				r.Println(output.FormatKeyValue("Dialect", entry.Dialect))
				r.Println(output.FormatKeyValue("Rows", fmt.Sprintf("%d", entry.Rows)))
				r.Println(output.FormatKeyValue("Elapsed", fmt.Sprintf("%dms", entry.ElapsedMS)))
				r.Println(output.FormatKeyValue("Started", entry.StartedAt))
				if entry.Error != "" {
					r.Println(output.FormatKeyValue("Error", entry.Error))
				}
				r.Println("")
				r.Println(output.FormatCodeBlock("sql", entry.SQL))
				return nil
			default:
				styles := r.Styles()
				r.Println(styles.QueryName.Render(entry.Query))
				r.Printf("  id:      %s\n", entry.ID)
				r.Printf("  status:  %s\n", entry.Status)
				r.Printf("  target:  %s (%s)\n", entry.Target, entry.Dialect)
				r.Printf("  rows:    %d\n", entry.Rows)
				r.Printf("  elapsed: %dms\n", entry.ElapsedMS)
				r.Printf("  started: %s\n", entry.StartedAt)
				if entry.Error != "" {
					r.Printf("  error:   %s\n", entry.Error)
				}
				r.Println("")
				r.Println(entry.SQL)
				return nil
			}
		},
	}
}

// newHistoryClearCommand creates the history clear subcommand.
func newHistoryClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutBackend(cmd)

			store, err := openHistoryStore(cc.Cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.Clear()
			if err != nil {
				return err
			}
			cc.Renderer.Success(fmt.Sprintf("cleared %d recorded runs", n))
			return nil
		},
	}
}

func historyEntry(qr *state.QueryRun) output.HistoryEntry {
	return output.HistoryEntry{
		ID:        qr.ID,
		Query:     qr.Query,
		Target:    qr.Target,
		Dialect:   qr.Dialect,
		SQL:       qr.SQL,
		Status:    string(qr.Status),
		Rows:      qr.Rows,
		ElapsedMS: qr.ElapsedMS,
		StartedAt: qr.StartedAt.Local().Format(time.DateTime),
		Error:     qr.Error,
	}
}

// shortID abbreviates a run ID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
