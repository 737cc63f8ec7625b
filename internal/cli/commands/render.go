package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/relq/internal/cli/output"
	"github.com/leapstack-labs/relq/pkg/backend"
)

// resolveFormat picks the result-set format when the --format flag was not
// given: markdown output modes get markdown tables, everything else gets
// the bordered table.
func resolveFormat(format string, r *output.Renderer) string {
	if format != "" {
		return format
	}
	switch r.EffectiveMode() {
	case output.ModeMarkdown:
		return "md"
	case output.ModeJSON:
		return "json"
	default:
		return "table"
	}
}

// renderResult writes a materialized result set in the requested format:
// table, json, csv, or md.
func renderResult(w io.Writer, res *backend.Result, format string) error {
	switch format {
	case "json":
		return renderResultJSON(w, res)
	case "csv":
		return renderResultCSV(w, res)
	case "md", "markdown":
		return renderResultMarkdown(w, res)
	default:
		return renderResultTable(w, res)
	}
}

func renderResultTable(w io.Writer, res *backend.Result) error {
	if len(res.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, values := range res.Rows {
		row := make(table.Row, len(res.Columns))
		for i := range res.Columns {
			row[i] = formatValue(values[i])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
	return nil
}

func renderResultJSON(w io.Writer, res *backend.Result) error {
	// Rows as objects keyed by column, so consumers need no header row.
	objects := make([]map[string]any, 0, len(res.Rows))
	for _, values := range res.Rows {
		row := make(map[string]any, len(res.Columns))
		for i, col := range res.Columns {
			row[col] = values[i]
		}
		objects = append(objects, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(objects)
}

func renderResultCSV(w io.Writer, res *backend.Result) error {
	_, _ = fmt.Fprintln(w, strings.Join(res.Columns, ","))

	for _, values := range res.Rows {
		fields := make([]string, len(res.Columns))
		for i := range res.Columns {
			fields[i] = escapeCSV(formatValue(values[i]))
		}
		_, _ = fmt.Fprintln(w, strings.Join(fields, ","))
	}
	return nil
}

func renderResultMarkdown(w io.Writer, res *backend.Result) error {
	if len(res.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(res.Columns, " | "))
	seps := make([]string, len(res.Columns))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, values := range res.Rows {
		fields := make([]string, len(res.Columns))
		for i := range res.Columns {
			fields[i] = formatValue(values[i])
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(fields, " | "))
	}
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
