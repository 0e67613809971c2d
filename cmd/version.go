package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	commit    = "unknown"
	buildTime = "unknown"
)

// SetBuildInfo records the commit hash and build timestamp injected via ldflags
func SetBuildInfo(c, bt string) {
	commit = c
	buildTime = bt
}

// buildDetails returns the build facts in display order
func buildDetails() [][2]string {
	return [][2]string{
		{"commit", commit},
		{"built", buildTime},
		{"go version", runtime.Version()},
		{"platform", runtime.GOOS + "/" + runtime.GOARCH},
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, build information, and Go runtime version.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		short, _ := cmd.Flags().GetBool("short")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		w := cmd.OutOrStdout()

		if short {
			fmt.Fprintln(w, version)
			return nil
		}

		if jsonOutput {
			info := map[string]string{
				"version":   version,
				"commit":    commit,
				"built":     buildTime,
				"goVersion": runtime.Version(),
				"platform":  runtime.GOOS + "/" + runtime.GOARCH,
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}

		fmt.Fprintf(w, "rationctl version %s\n", version)
		for _, detail := range buildDetails() {
			fmt.Fprintf(w, "  %-11s %s\n", detail[0]+":", detail[1])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().Bool("short", false, "print version string only")
	versionCmd.Flags().Bool("json", false, "output as JSON")
}
