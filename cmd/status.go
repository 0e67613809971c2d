package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/smart-ration/rationctl/internal/monitor"
	"github.com/smart-ration/rationctl/internal/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-service status",
	Long: `Display the status of each expected service.

A lighter alternative to 'rationctl monitor' that only queries container
state, without resource sampling or log scanning.

Examples:
  rationctl status             # Show service status table
  rationctl status --json      # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Bool("json", false, "output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	printer := newPrinter()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	runner := newRunner()
	mon := newMonitor(runner)
	states := mon.ServiceStates(cmd.Context())

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(states)
	}

	printer.Header("Service Status")
	table := output.NewQuietTable([]string{"SERVICE", "ROLE", "CONTAINER", "STATUS"}, printer.IsQuiet())

	running := 0
	for _, svc := range cfg.Registry().All() {
		state := states[svc.Name]
		if state.Status == monitor.StatusRunning {
			running++
		}
		label := string(state.Status)
		if state.Reason != "" {
			label += " (" + state.Reason + ")"
		}
		table.AddRow([]string{
			svc.Name,
			string(svc.Role),
			svc.ContainerPattern,
			printer.StatusBadge(string(state.Status)) + " " + label,
		})
	}
	table.Render()

	if running == 0 {
		printer.Warning("No services running")
	} else {
		printer.Info("Running: %d of %d service(s)", running, len(cfg.Registry().All()))
	}

	printer.PrintHints("status")
	return nil
}
