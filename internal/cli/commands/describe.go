package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/relq/internal/cli/output"
	"github.com/leapstack-labs/relq/pkg/backend"
	"github.com/spf13/cobra"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe TABLE",
		Short: "Show the schema of a table in the target database",
		Long: `Introspect a table in the target database and show its columns.

Each column is reported with the engine's native type and the relational
type relq maps it to, which is the type queries against this table are
checked with. The name may be qualified as "schema.table".

Output adapts to environment:
  - Terminal: styled table
  - Piped/Scripted: markdown table
  - JSON: machine-readable format`,
		Example: `  # Describe a table
  relq describe orders

  # Describe a table in a specific schema
  relq describe analytics.orders

  # Machine-readable output
  relq describe orders --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd, args[0])
		},
	}

	return cmd
}

func runDescribe(cmd *cobra.Command, name string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := describeTable(cmd.Context(), cc.Backend, name)
	if err != nil {
		return err
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Table: %s", out.Table)))
		r.Println("")
		r.Println("| Column | Type | Mapped | Nullable |")
		r.Println("| --- | --- | --- | --- |")
		for _, col := range out.Columns {
			nullable := "no"
			if col.Nullable {
				nullable = "yes"
			}
			r.Printf("| %s | %s | %s | %s |\n", col.Name, col.Type, col.Mapped, nullable)
		}
		return nil
	default:
		r.Header(2, out.Table)
		return renderDescribeText(r.Writer(), out)
	}
}

// describeTable introspects a table and maps each column to the relational
// type queries are checked with.
func describeTable(ctx context.Context, b *backend.Backend, name string) (*output.DescribeOutput, error) {
	meta, err := b.Adapter().TableMetadata(ctx, name)
	if err != nil {
		return nil, err
	}

	out := &output.DescribeOutput{
		Table:   name,
		Columns: make([]output.ColumnInfo, 0, len(meta.Columns)),
	}
	for _, col := range meta.Columns {
		out.Columns = append(out.Columns, output.ColumnInfo{
			Name:     col.Name,
			Type:     col.Type,
			Mapped:   backend.TypeFromSQL(col.Type).String(),
			Nullable: col.Nullable,
		})
	}
	return out, nil
}

// renderDescribeText writes the schema as a bordered table.
func renderDescribeText(w io.Writer, out *output.DescribeOutput) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Type", "Mapped", "Nullable"})

	for _, col := range out.Columns {
		nullable := "no"
		if col.Nullable {
			nullable = "yes"
		}
		t.AppendRow(table.Row{col.Name, col.Type, col.Mapped, nullable})
	}
	t.Render()
	return nil
}
