package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/relq/internal/cli/output"
	"github.com/leapstack-labs/relq/internal/pipeline"
	"github.com/leapstack-labs/relq/pkg/rel"
	"github.com/spf13/cobra"
)

// ExplainOptions holds options for the explain command.
type ExplainOptions struct {
	Query string
}

// NewExplainCommand creates the explain command.
func NewExplainCommand() *cobra.Command {
	opts := &ExplainOptions{}

	cmd := &cobra.Command{
		Use:   "explain FILE",
		Short: "Show the relational plan of pipeline queries",
		Long: `Build the queries in a pipeline file and print the relational tree each
one compiles from, with the inferred schema at every schema-changing
operator.

This shows what was actually built: resolved column types, join column
provenance, and the exact operator order. A database connection is only
made when a source has no inline columns and its schema must be
introspected from the target.`,
		Example: `  # Explain every query in a file
  relq explain queries.yaml

  # Explain one query
  relq explain queries.yaml --query orders_by_region

  # Machine-readable output
  relq explain queries.yaml --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "Comma-separated list of queries to explain")

	return cmd
}

// explainOutput is the JSON output for the explain command.
type explainOutput struct {
	File    string      `json:"file"`
	Queries []queryPlan `json:"queries"`
}

// queryPlan is one query's operator tree.
type queryPlan struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Plan    planNode `json:"plan"`
}

// planNode is one operator of a plan tree.
type planNode struct {
	Op       string     `json:"op"`
	Detail   string     `json:"detail,omitempty"`
	Columns  []string   `json:"columns,omitempty"`
	Children []planNode `json:"children,omitempty"`
}

func runExplain(cmd *cobra.Command, path string, opts *ExplainOptions) error {
	f, err := pipeline.Load(path)
	if err != nil {
		return err
	}

	// Connect only when a source's schema has to come from the database
	var cc *CommandContext
	var schemas rel.SchemaProvider
	if len(f.UnresolvedSources()) > 0 {
		var cleanup func()
		cc, cleanup, err = NewCommandContext(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		schemas, err = resolveSources(cmd.Context(), cc.Backend, f)
		if err != nil {
			return err
		}
	} else {
		cc = NewCommandContextWithoutBackend(cmd)
	}

	built, err := pipeline.Build(f, schemas)
	if err != nil {
		return err
	}
	built, err = selectQueries(built, opts.Query)
	if err != nil {
		return err
	}

	plans := make([]queryPlan, 0, len(built))
	for _, q := range built {
		plans = append(plans, queryPlan{
			Name:    q.Name,
			Columns: q.Table.Schema().Names(),
			Plan:    buildPlan(q.Table.Node()),
		})
	}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(explainOutput{File: path, Queries: plans})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Query Plans: %s", path)))
		r.Println("")
		for _, p := range plans {
			r.Println(output.FormatHeader(2, p.Name))
			r.Println("")
			r.Println(output.FormatCodeBlock("", formatPlan(p.Plan)))
			r.Println("")
		}
	default:
		styles := r.Styles()
		for _, p := range plans {
			r.Println(styles.QueryName.Render(p.Name))
			r.Printf("%s\n", formatPlan(p.Plan))
		}
	}

	return nil
}

// buildPlan converts a relational tree into a plan tree. Columns are shown
// at schema-changing operators only.
func buildPlan(n rel.TableNode) planNode {
	switch t := n.(type) {
	case *rel.TableScan:
		return planNode{
			Op:      "scan",
			Detail:  t.Name(),
			Columns: schemaColumns(t.Schema()),
		}
	case *rel.Projection:
		exprs := make([]string, 0, len(t.Exprs()))
		for _, e := range t.Exprs() {
			exprs = append(exprs, formatExpr(e))
		}
		return planNode{
			Op:       "project",
			Detail:   strings.Join(exprs, ", "),
			Columns:  schemaColumns(t.Schema()),
			Children: []planNode{buildPlan(t.Input())},
		}
	case *rel.Filter:
		return planNode{
			Op:       "filter",
			Detail:   formatExpr(t.Predicate()),
			Children: []planNode{buildPlan(t.Input())},
		}
	case *rel.Aggregation:
		aggs := make([]string, 0, len(t.Aggs()))
		for _, a := range t.Aggs() {
			aggs = append(aggs, formatExpr(a))
		}
		detail := strings.Join(aggs, ", ")
		if keys := t.Keys(); len(keys) > 0 {
			parts := make([]string, 0, len(keys))
			for _, k := range keys {
				parts = append(parts, formatExpr(k))
			}
			detail += " group by " + strings.Join(parts, ", ")
		}
		return planNode{
			Op:       "aggregate",
			Detail:   detail,
			Columns:  schemaColumns(t.Schema()),
			Children: []planNode{buildPlan(t.Input())},
		}
	case *rel.Join:
		return planNode{
			Op:       "join",
			Detail:   fmt.Sprintf("%s on %s", t.Kind(), formatExpr(t.Predicate())),
			Columns:  schemaColumns(t.Schema()),
			Children: []planNode{buildPlan(t.Left()), buildPlan(t.Right())},
		}
	case *rel.Sort:
		keys := make([]string, 0, len(t.Keys()))
		for _, k := range t.Keys() {
			s := formatExpr(k.Expr())
			if k.Descending() {
				s += " desc"
			}
			keys = append(keys, s)
		}
		return planNode{
			Op:       "sort",
			Detail:   strings.Join(keys, ", "),
			Children: []planNode{buildPlan(t.Input())},
		}
	case *rel.Limit:
		return planNode{
			Op:       "limit",
			Detail:   fmt.Sprintf("%d", t.N()),
			Children: []planNode{buildPlan(t.Input())},
		}
	case *rel.View:
		return planNode{
			Op:       "view",
			Children: []planNode{buildPlan(t.Input())},
		}
	default:
		return planNode{Op: fmt.Sprintf("%T", n)}
	}
}

func schemaColumns(s rel.Schema) []string {
	cols := make([]string, 0, s.Len())
	for _, f := range s.Fields() {
		cols = append(cols, fmt.Sprintf("%s: %s", f.Name, f.Type))
	}
	return cols
}

// formatPlan renders a plan tree with box-drawing connectors.
func formatPlan(n planNode) string {
	var sb strings.Builder
	writePlanNode(&sb, n, "", "")
	return strings.TrimRight(sb.String(), "\n")
}

func writePlanNode(sb *strings.Builder, n planNode, linePrefix, childPrefix string) {
	line := n.Op
	if n.Detail != "" {
		line += " " + n.Detail
	}
	if len(n.Columns) > 0 {
		line += "  [" + strings.Join(n.Columns, ", ") + "]"
	}
	sb.WriteString(linePrefix + line + "\n")

	for i, c := range n.Children {
		if i == len(n.Children)-1 {
			writePlanNode(sb, c, childPrefix+"└─ ", childPrefix+"   ")
		} else {
			writePlanNode(sb, c, childPrefix+"├─ ", childPrefix+"│  ")
		}
	}
}

// formatExpr renders a value expression in SQL-like notation.
func formatExpr(n rel.ValueNode) string {
	switch e := n.(type) {
	case *rel.ColumnRef:
		return e.Name()
	case *rel.Literal:
		return formatLiteral(e)
	case *rel.BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", formatExpr(e.Left()), binaryOpSymbol(e.Op()), formatExpr(e.Right()))
	case *rel.UnaryExpr:
		if e.Op() == rel.OpNeg {
			return "-" + formatExpr(e.Operand())
		}
		return "not " + formatExpr(e.Operand())
	case *rel.CastExpr:
		return fmt.Sprintf("cast(%s as %s)", formatExpr(e.Input()), e.Type())
	case *rel.IsNullExpr:
		if e.Negated() {
			return formatExpr(e.Input()) + " is not null"
		}
		return formatExpr(e.Input()) + " is null"
	case *rel.CaseExpr:
		var sb strings.Builder
		sb.WriteString("case")
		for _, w := range e.Whens() {
			sb.WriteString(" when " + formatExpr(w.Cond()) + " then " + formatExpr(w.Result()))
		}
		if e.Else() != nil {
			sb.WriteString(" else " + formatExpr(e.Else()))
		}
		sb.WriteString(" end")
		return sb.String()
	case *rel.AggregateExpr:
		arg := "*"
		if e.Arg() != nil {
			arg = formatExpr(e.Arg())
		}
		s := fmt.Sprintf("%s(%s)", e.Kind(), arg)
		if e.Where() != nil {
			s += fmt.Sprintf(" filter (%s)", formatExpr(e.Where()))
		}
		return s
	case *rel.AliasExpr:
		return fmt.Sprintf("%s as %s", formatExpr(e.Input()), e.Name())
	default:
		return fmt.Sprintf("%T", n)
	}
}

func formatLiteral(l *rel.Literal) string {
	v := l.Value()
	if v == nil {
		return "null"
	}
	if s, ok := v.(string); ok {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	return fmt.Sprintf("%v", v)
}

// binaryOpSymbol maps an operator to its SQL spelling.
func binaryOpSymbol(op rel.BinaryOp) string {
	switch op {
	case rel.OpAdd:
		return "+"
	case rel.OpSub:
		return "-"
	case rel.OpMul:
		return "*"
	case rel.OpDiv:
		return "/"
	case rel.OpEq:
		return "="
	case rel.OpNe:
		return "!="
	case rel.OpLt:
		return "<"
	case rel.OpLe:
		return "<="
	case rel.OpGt:
		return ">"
	case rel.OpGe:
		return ">="
	case rel.OpAnd:
		return "and"
	case rel.OpOr:
		return "or"
	default:
		return op.String()
	}
}
