package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/relq/internal/cli/config"
	"github.com/leapstack-labs/relq/internal/cli/output"
	"github.com/leapstack-labs/relq/internal/state"
	"github.com/leapstack-labs/relq/pkg/adapter"
	"github.com/leapstack-labs/relq/pkg/backend"
	"github.com/leapstack-labs/relq/pkg/dialect"
	"github.com/spf13/cobra"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment and target connectivity",
		Long: `Run environment health checks and report anything that would keep
queries from running.

Checks cover the configuration file, the selected target and its adapter,
the SQL dialect, database connectivity, and the run history database.

Output adapts to environment:
  - Terminal: styled check list
  - Piped/Scripted: markdown report
  - JSON: machine-readable format`,
		Example: `  # Check the current project
  relq doctor

  # Check a specific target
  relq doctor --target prod

  # Machine-readable output
  relq doctor --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
}

func runDoctor(cmd *cobra.Command) error {
	cc := NewCommandContextWithoutBackend(cmd)

	checks := buildDoctorChecks(cmd.Context(), cc)

	var failed int
	for _, c := range checks {
		if c.Status == "failed" {
			failed++
		}
	}
	out := output.DoctorOutput{Checks: checks, Healthy: failed == 0}

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(out); err != nil {
			return err
		}
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}

	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	return nil
}

func buildDoctorChecks(ctx context.Context, cc *CommandContext) []output.DoctorCheck {
	cfg := cc.Cfg
	var checks []output.DoctorCheck

	// Configuration
	if cfg.ConfigFile != "" {
		checks = append(checks, output.DoctorCheck{
			Group: "configuration", Name: "config file", Status: "success", Detail: cfg.ConfigFile,
		})
	} else {
		checks = append(checks, output.DoctorCheck{
			Group: "configuration", Name: "config file", Status: "warning", Detail: "no relq.yaml found, using defaults",
		})
	}
	checks = append(checks, targetCheck(cfg))
	checks = append(checks, dialectCheck(cfg))

	// Database
	checks = append(checks, connectivityCheck(ctx, cc))

	// State
	checks = append(checks, stateChecks(cfg)...)

	return checks
}

func targetCheck(cfg *config.Config) output.DoctorCheck {
	check := output.DoctorCheck{Group: "configuration", Name: "target"}
	switch {
	case cfg.Target == nil:
		check.Status = "failed"
		check.Detail = "no target configured"
	case !adapter.IsRegistered(cfg.Target.Type):
		check.Status = "failed"
		check.Detail = fmt.Sprintf("unknown adapter type %q (available: %s)",
			cfg.Target.Type, strings.Join(adapter.List(), ", "))
	default:
		check.Status = "success"
		check.Detail = fmt.Sprintf("%s (%s)", cfg.TargetName, describeTarget(cfg.Target))
	}
	return check
}

func dialectCheck(cfg *config.Config) output.DoctorCheck {
	check := output.DoctorCheck{Group: "configuration", Name: "dialect"}
	if cfg.Target == nil {
		check.Status = "skipped"
		check.Detail = "no target configured"
		return check
	}
	if _, ok := dialect.Get(cfg.Target.Type); !ok {
		check.Status = "failed"
		check.Detail = fmt.Sprintf("no SQL dialect registered for %q", cfg.Target.Type)
		return check
	}
	check.Status = "success"
	check.Detail = cfg.Target.Type
	return check
}

// connectivityCheck connects to the target and runs a trivial query. It
// builds its own connection so a down database degrades to a failed check
// instead of aborting the report.
func connectivityCheck(ctx context.Context, cc *CommandContext) output.DoctorCheck {
	check := output.DoctorCheck{Group: "database", Name: "connectivity"}
	cfg := cc.Cfg
	if cfg.Target == nil || !adapter.IsRegistered(cfg.Target.Type) {
		check.Status = "skipped"
		check.Detail = "no usable target"
		return check
	}

	adapterCfg := cfg.Target.AdapterConfig()
	adp, err := adapter.New(adapterCfg, cc.Logger)
	if err != nil {
		check.Status = "failed"
		check.Detail = err.Error()
		return check
	}

	start := time.Now()
	if err := adp.Connect(ctx, adapterCfg); err != nil {
		check.Status = "failed"
		check.Detail = err.Error()
		return check
	}
	defer func() { _ = adp.Close() }()

	b := backend.New(adp, cc.Logger)
	if _, err := b.Raw(ctx, "SELECT 1"); err != nil {
		check.Status = "failed"
		check.Detail = err.Error()
		return check
	}

	check.Status = "success"
	check.Detail = fmt.Sprintf("SELECT 1 in %s", time.Since(start).Round(time.Millisecond))
	return check
}

func stateChecks(cfg *config.Config) []output.DoctorCheck {
	var checks []output.DoctorCheck
	path := resolveStatePath(cfg)

	dirCheck := output.DoctorCheck{Group: "state", Name: "state directory"}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		dirCheck.Status = "failed"
		dirCheck.Detail = err.Error()
	} else {
		dirCheck.Status = "success"
		dirCheck.Detail = dir
	}
	checks = append(checks, dirCheck)

	dbCheck := output.DoctorCheck{Group: "state", Name: "history database"}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		dbCheck.Status = "warning"
		dbCheck.Detail = "not created yet (first 'relq run' creates it)"
		return append(checks, dbCheck)
	}

	st, err := state.OpenReadOnly(path)
	if err != nil {
		dbCheck.Status = "failed"
		dbCheck.Detail = err.Error()
		return append(checks, dbCheck)
	}
	defer func() { _ = st.Close() }()

	version, err := st.MigrationVersion()
	if err != nil {
		dbCheck.Status = "failed"
		dbCheck.Detail = err.Error()
		return append(checks, dbCheck)
	}
	dbCheck.Status = "success"
	dbCheck.Detail = fmt.Sprintf("%s (schema v%d)", path, version)
	return append(checks, dbCheck)
}

// describeTarget summarizes where a target points without credentials.
func describeTarget(t *config.Target) string {
	switch {
	case t.Host != "":
		return fmt.Sprintf("%s %s:%d/%s", t.Type, t.Host, t.Port, t.Database)
	case t.Path != "":
		return fmt.Sprintf("%s %s", t.Type, t.Path)
	default:
		return t.Type
	}
}

func renderDoctorText(r *output.Renderer, out output.DoctorOutput) {
	styles := r.Styles()
	titleCaser := cases.Title(language.English)

	r.Header(1, "relq doctor")
	r.Println("")

	currentGroup := ""
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render(titleCaser.String(currentGroup)))
		}
		r.StatusLine(check.Name, check.Status, check.Detail)
	}

	r.Println("")
	if out.Healthy {
		r.Success("all checks passed")
	}
}

func renderDoctorMarkdown(r *output.Renderer, out output.DoctorOutput) {
	titleCaser := cases.Title(language.English)

	r.Println(output.FormatHeader(1, "relq doctor"))
	r.Println("")

	currentGroup := ""
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(output.FormatHeader(2, titleCaser.String(currentGroup)))
			r.Println("")
		}
		status := strings.ToUpper(check.Status)
		if check.Detail != "" {
			r.Printf("- **[%s]** %s: %s\n", status, check.Name, check.Detail)
		} else {
			r.Printf("- **[%s]** %s\n", status, check.Name)
		}
	}

	r.Println("")
	if out.Healthy {
		r.Println("All checks passed.")
	}
}
