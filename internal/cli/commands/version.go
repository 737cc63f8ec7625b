package commands

import (
	"fmt"
	"runtime"

	"github.com/leapstack-labs/relq/internal/cli/output"
	"github.com/spf13/cobra"
)

// versionInfo is the JSON output for the version command.
type versionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(version, buildDate, gitCommit string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display relq version and build information.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutBackend(cmd)
			info := versionInfo{
				Version:   version,
				BuildDate: buildDate,
				GitCommit: gitCommit,
				GoVersion: runtime.Version(),
			}

			if cc.Renderer.EffectiveMode() == output.ModeJSON {
				return cc.Renderer.JSON(info)
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "relq v%s\n", info.Version)
			_, _ = fmt.Fprintf(w, "  build date: %s\n", info.BuildDate)
			_, _ = fmt.Fprintf(w, "  git commit: %s\n", info.GitCommit)
			_, _ = fmt.Fprintf(w, "  go version: %s\n", info.GoVersion)
			return nil
		},
	}
}
