package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/relq/internal/cli/output"
	"github.com/leapstack-labs/relq/internal/pipeline"
	"github.com/leapstack-labs/relq/internal/state"
	"github.com/leapstack-labs/relq/pkg/backend"
	"github.com/leapstack-labs/relq/pkg/rel"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Select    string
	Format    string
	Jobs      int
	NoHistory bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Execute pipeline queries against the configured target",
		Long: `Build the queries in a pipeline file, execute them against the target
database, and render each result set.

Sources without inline columns are resolved by introspecting the target,
so the file only needs to declare schemas the database cannot provide.
Every execution is recorded in the run history database.

With --output json, progress is emitted as JSON lines (one event per
query) instead of rendered results.`,
		Example: `  # Run every query in a file
  relq run queries.yaml

  # Run selected queries
  relq run queries.yaml --select orders_by_region,daily_totals

  # Render results as CSV
  relq run queries.yaml --format csv

  # Run four queries at a time
  relq run queries.yaml --jobs 4

  # JSON lines progress for CI
  relq run queries.yaml --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Select, "select", "s", "", "Comma-separated list of queries to run")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Result format: table, json, csv, md")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 1, "Number of queries to execute concurrently")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "Skip recording this run in the history database")

	return cmd
}

func runRun(cmd *cobra.Command, path string, opts *RunOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	r := cc.Renderer

	f, err := pipeline.Load(path)
	if err != nil {
		return err
	}
	schemas, err := resolveSources(ctx, cc.Backend, f)
	if err != nil {
		return err
	}
	built, err := pipeline.Build(f, schemas)
	if err != nil {
		return err
	}
	built, err = selectQueries(built, opts.Select)
	if err != nil {
		return err
	}
	if len(built) == 0 {
		r.Warning("no queries to run")
		return nil
	}

	var store *state.Store
	if !opts.NoHistory {
		store, err = openHistoryStore(cc.Cfg)
		if err != nil {
			r.Warning(fmt.Sprintf("run history disabled: %v", err))
		} else {
			defer func() { _ = store.Close() }()
		}
	}

	runID := state.NewRunID()
	started := time.Now()

	var results []*queryResult
	if r.EffectiveMode() == output.ModeJSON {
		results = runQueriesJSON(ctx, cc.Backend, r.Writer(), runID, built, opts)
	} else {
		results = runQueriesText(ctx, cc.Backend, r, built, opts)
	}

	if store != nil {
		recordResults(cc, store, runID, path, results)
	}

	var failed int
	for _, qr := range results {
		if qr.Err != nil {
			failed++
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		status := "completed"
		if failed > 0 {
			status = "failed"
		}
		emitRunEvent(r.Writer(), output.RunEvent{
			Event:        "run_complete",
			RunID:        runID,
			Status:       status,
			TotalQueries: len(results),
			Successful:   len(results) - failed,
			Failed:       failed,
			TotalMS:      time.Since(started).Milliseconds(),
		})
	} else {
		r.Println("")
		if failed == 0 {
			r.Success(fmt.Sprintf("%d queries completed in %s", len(results), time.Since(started).Round(time.Millisecond)))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed", failed, len(results))
	}
	return nil
}

// queryResult is the outcome of one executed query.
type queryResult struct {
	Name      string
	SQL       string
	Result    *backend.Result
	Err       error
	StartedAt time.Time
	Elapsed   time.Duration
}

// runHooks are callbacks fired around each query. The executor serializes
// them, so they may write output without further locking.
type runHooks struct {
	Start func(name string)
	Done  func(qr *queryResult)
}

// executeQueries runs queries with at most jobs in flight and returns the
// outcomes in input order. Query failures are captured per result rather
// than aborting the batch.
func executeQueries(ctx context.Context, b *backend.Backend, queries []pipeline.BuiltQuery, jobs int, hooks runHooks) []*queryResult {
	if jobs < 1 {
		jobs = 1
	}

	results := make([]*queryResult, len(queries))
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(jobs)

	for i, q := range queries {
		g.Go(func() error {
			if hooks.Start != nil {
				mu.Lock()
				hooks.Start(q.Name)
				mu.Unlock()
			}
			qr := runOneQuery(ctx, b, q)
			results[i] = qr
			if hooks.Done != nil {
				mu.Lock()
				hooks.Done(qr)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// runOneQuery compiles and executes a single query. The compiled SQL is
// kept on the result so history and events can report it even on failure.
func runOneQuery(ctx context.Context, b *backend.Backend, q pipeline.BuiltQuery) *queryResult {
	qr := &queryResult{Name: q.Name, StartedAt: time.Now()}

	compiled, err := b.Compile(q.Table)
	if err != nil {
		qr.Err = err
		qr.Elapsed = time.Since(qr.StartedAt)
		return qr
	}
	qr.SQL = compiled.SQL

	res, err := b.Raw(ctx, compiled.SQL)
	qr.Elapsed = time.Since(qr.StartedAt)
	if err != nil {
		qr.Err = err
		return qr
	}
	qr.Result = res
	return qr
}

// runQueriesText executes queries with human-readable progress. Sequential
// runs get a spinner per query and render each result as it completes;
// parallel runs print completion lines and render results in file order at
// the end.
func runQueriesText(ctx context.Context, b *backend.Backend, r *output.Renderer, built []pipeline.BuiltQuery, opts *RunOptions) []*queryResult {
	format := resolveFormat(opts.Format, r)
	hooks := runHooks{}

	if opts.Jobs <= 1 {
		var sp *output.Spinner
		hooks.Start = func(name string) {
			sp = r.NewSpinner("running " + name)
			sp.Start()
		}
		hooks.Done = func(qr *queryResult) {
			if qr.Err != nil {
				sp.Fail(fmt.Sprintf("%s: %v", qr.Name, qr.Err))
				return
			}
			sp.Success(fmt.Sprintf("%s (%d rows in %s)", qr.Name, qr.Result.Len(), qr.Elapsed.Round(time.Millisecond)))
			r.Header(2, qr.Name)
			_ = renderResult(r.Writer(), qr.Result, format)
			r.Println("")
		}
		return executeQueries(ctx, b, built, 1, hooks)
	}

	r.Muted(fmt.Sprintf("running %d queries with %d jobs", len(built), opts.Jobs))
	hooks.Done = func(qr *queryResult) {
		if qr.Err != nil {
			r.Error(fmt.Sprintf("%s: %v", qr.Name, qr.Err))
			return
		}
		r.Success(fmt.Sprintf("%s (%d rows in %s)", qr.Name, qr.Result.Len(), qr.Elapsed.Round(time.Millisecond)))
	}
	results := executeQueries(ctx, b, built, opts.Jobs, hooks)

	for _, qr := range results {
		if qr.Err != nil {
			continue
		}
		r.Header(2, qr.Name)
		_ = renderResult(r.Writer(), qr.Result, format)
		r.Println("")
	}
	return results
}

// runQueriesJSON executes queries emitting one JSON line per event.
func runQueriesJSON(ctx context.Context, b *backend.Backend, w io.Writer, runID string, built []pipeline.BuiltQuery, opts *RunOptions) []*queryResult {
	names := make([]string, len(built))
	for i, q := range built {
		names[i] = q.Name
	}
	emitRunEvent(w, output.RunEvent{
		Event:   "run_start",
		RunID:   runID,
		Queries: names,
	})

	hooks := runHooks{
		Start: func(name string) {
			emitRunEvent(w, output.RunEvent{
				Event: "query_start",
				RunID: runID,
				Query: name,
			})
		},
		Done: func(qr *queryResult) {
			event := output.RunEvent{
				Event:     "query_complete",
				RunID:     runID,
				Query:     qr.Name,
				Status:    "success",
				ElapsedMS: qr.Elapsed.Milliseconds(),
			}
			if qr.Err != nil {
				event.Status = "failed"
				event.Error = qr.Err.Error()
			} else {
				event.Rows = int64(qr.Result.Len())
			}
			emitRunEvent(w, event)
		},
	}
	return executeQueries(ctx, b, built, opts.Jobs, hooks)
}

// emitRunEvent writes a run event as one JSON line, stamped in UTC.
func emitRunEvent(w io.Writer, event output.RunEvent) {
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, _ := json.Marshal(event)
	_, _ = fmt.Fprintln(w, string(data))
}

// recordResults writes one history record per executed query.
func recordResults(cc *CommandContext, store *state.Store, runID, file string, results []*queryResult) {
	for _, qr := range results {
		rec := &state.QueryRun{
			RunID:     runID,
			Query:     qr.Name,
			File:      file,
			Target:    cc.Cfg.TargetName,
			Dialect:   cc.Backend.Dialect().Name,
			SQL:       qr.SQL,
			Status:    state.RunStatusSuccess,
			ElapsedMS: qr.Elapsed.Milliseconds(),
			StartedAt: qr.StartedAt,
		}
		if qr.Err != nil {
			rec.Status = state.RunStatusFailed
			rec.Error = qr.Err.Error()
		} else {
			rec.Rows = int64(qr.Result.Len())
		}
		if err := store.RecordQueryRun(rec); err != nil {
			cc.Logger.Warn("failed to record query run",
				slog.String("query", qr.Name),
				slog.String("error", err.Error()))
		}
	}
}

// Helper functions shared across commands

// resolveSources introspects the target database for every source the file
// does not declare inline and returns the collected schemas.
func resolveSources(ctx context.Context, b *backend.Backend, f *pipeline.File) (rel.SchemaProvider, error) {
	unresolved := f.UnresolvedSources()
	if len(unresolved) == 0 {
		return nil, nil
	}

	catalog := rel.NewCatalog()
	for _, name := range unresolved {
		physical := f.TableName(name)
		t, err := b.Table(ctx, physical)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", name, err)
		}
		catalog.Add(physical, t.Schema())
	}
	return catalog, nil
}

// selectQueries filters built queries by a comma-separated name list,
// keeping the list's order. An empty list keeps everything.
func selectQueries(built []pipeline.BuiltQuery, names string) ([]pipeline.BuiltQuery, error) {
	if names == "" {
		return built, nil
	}

	byName := make(map[string]pipeline.BuiltQuery, len(built))
	for _, q := range built {
		byName[q.Name] = q
	}

	var selected []pipeline.BuiltQuery
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		q, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("query %q not found in pipeline file", name)
		}
		selected = append(selected, q)
	}
	return selected, nil
}
