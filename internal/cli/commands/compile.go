package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/relq/internal/cli/config"
	"github.com/leapstack-labs/relq/internal/cli/output"
	"github.com/leapstack-labs/relq/internal/pipeline"
	"github.com/leapstack-labs/relq/pkg/dialect"
	"github.com/leapstack-labs/relq/pkg/sqlgen"
	"github.com/spf13/cobra"
)

// CompileOptions holds options for the compile command.
type CompileOptions struct {
	Query   string
	Dialect string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	opts := &CompileOptions{}

	cmd := &cobra.Command{
		Use:   "compile FILE",
		Short: "Compile pipeline queries to SQL without executing them",
		Long: `Build the queries in a pipeline file and print the SQL they compile to.

Compilation never touches a database, so every source needs its columns
declared inline in the file. Queries are type-checked while they are
built; column and type errors are reported before any SQL is produced.

Output adapts to environment:
  - Terminal: plain SQL (suitable for piping into a database shell)
  - Piped/Scripted: markdown with code blocks
  - JSON: machine-readable format`,
		Example: `  # Compile every query in a file
  relq compile queries.yaml

  # Compile one query for a specific dialect
  relq compile queries.yaml --query orders_by_region --dialect postgres

  # Save the SQL
  relq compile queries.yaml > queries.sql

  # Machine-readable output
  relq compile queries.yaml --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "Comma-separated list of queries to compile")
	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", "Target dialect (default: the configured target's dialect)")

	return cmd
}

func runCompile(cmd *cobra.Command, path string, opts *CompileOptions) error {
	cc := NewCommandContextWithoutBackend(cmd)
	r := cc.Renderer

	f, err := pipeline.Load(path)
	if err != nil {
		return err
	}

	if unresolved := f.UnresolvedSources(); len(unresolved) > 0 {
		return fmt.Errorf("sources without inline columns need a database to resolve their schemas: %s (declare columns in %s or use 'relq run')",
			strings.Join(unresolved, ", "), path)
	}

	built, err := pipeline.Build(f, nil)
	if err != nil {
		return err
	}
	built, err = selectQueries(built, opts.Query)
	if err != nil {
		return err
	}

	d, err := resolveDialect(opts.Dialect, cc.Cfg)
	if err != nil {
		return err
	}
	compiler := sqlgen.New(d)

	compiled := make([]output.CompiledQuery, 0, len(built))
	for _, q := range built {
		sql, err := compiler.Compile(q.Table.Node())
		if err != nil {
			return fmt.Errorf("query %s: %w", q.Name, err)
		}
		compiled = append(compiled, output.CompiledQuery{
			Name:    q.Name,
			SQL:     sql.SQL,
			Columns: q.Table.Schema().Names(),
		})
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(output.CompileOutput{
			File:    path,
			Dialect: d.Name,
			Queries: compiled,
		})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Compiled SQL: %s", path)))
		r.Println("")
		for _, q := range compiled {
			r.Println(output.FormatHeader(2, q.Name))
			r.Println("")
			r.Println(output.FormatCodeBlock("sql", q.SQL))
			r.Println("")
		}
	default:
		// Text mode: plain SQL. Name markers are SQL comments so the
		// output stays executable; a single query prints bare.
		for _, q := range compiled {
			if len(compiled) > 1 {
				r.Printf("-- %s\n", q.Name)
			}
			r.Println(q.SQL)
			if len(compiled) > 1 {
				r.Println("")
			}
		}
	}

	return nil
}

// resolveDialect picks the dialect for offline compilation: the flag wins,
// then the configured target's engine, then duckdb.
func resolveDialect(name string, cfg *config.Config) (*dialect.Dialect, error) {
	if name == "" && cfg.Target != nil {
		name = cfg.Target.Type
	}
	if name == "" {
		name = "duckdb"
	}
	d, ok := dialect.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q (available: %s)", name, strings.Join(dialect.List(), ", "))
	}
	return d, nil
}
