package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smart-ration/rationctl/internal/monitor"
	"github.com/smart-ration/rationctl/internal/output"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run one health report pass",
	Long: `Produce a point-in-time health report for the deployment.

The report covers per-service status, container resource usage, recent
error lines from the bot's logs, database readiness with user count, and
disk usage. A report that surfaces problems is not a tool failure: the
command exits 0 regardless of what it finds.

Examples:
  rationctl monitor            # One report pass
  rationctl monitor --json     # Output as JSON
  rationctl monitor --watch    # Continuous reports
  rationctl monitor --tail 200 # Scan a longer log tail`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().Bool("json", false, "output as JSON")
	monitorCmd.Flags().Int("tail", 0, "log lines to scan for errors (default from config)")
	monitorCmd.Flags().Duration("timeout", 0, "per-command timeout (default from config)")
	monitorCmd.Flags().BoolP("watch", "w", false, "watch for changes")
	monitorCmd.Flags().Duration("interval", 5*time.Second, "watch interval")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	watch, _ := cmd.Flags().GetBool("watch")
	interval, _ := cmd.Flags().GetDuration("interval")

	if watch {
		return watchMonitor(cmd, interval, jsonOutput)
	}

	return showReport(cmd, jsonOutput)
}

func showReport(cmd *cobra.Command, jsonOutput bool) error {
	printer := newPrinter()
	mon := monitorFromFlags(cmd)

	report := mon.Collect(cmd.Context())

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	renderReport(printer, report)
	printer.PrintHints("monitor")
	return nil
}

// monitorFromFlags builds a monitor with per-invocation flag overrides
func monitorFromFlags(cmd *cobra.Command) *monitor.Monitor {
	runner := newRunner()

	tail, _ := cmd.Flags().GetInt("tail")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	opts := monitor.Options{
		LogTail:        cfg.Monitor.LogTail,
		LogsDir:        cfg.Monitor.LogsDir,
		CommandTimeout: cfg.Monitor.CommandTimeout,
		DBUser:         cfg.Monitor.DBUser,
		DBName:         cfg.Monitor.DBName,
	}
	if tail > 0 {
		opts.LogTail = tail
	}
	if timeout > 0 {
		opts.CommandTimeout = timeout
	}

	return monitor.New(runner, cfg.Registry(), logger, opts)
}

func renderReport(printer *output.Printer, report *monitor.Report) {
	printer.Header("Service Status")
	table := output.NewQuietTable([]string{"SERVICE", "ROLE", "STATUS", "DETAIL"}, printer.IsQuiet())
	for _, svc := range cfg.Registry().All() {
		state := report.Services[svc.Name]
		detail := state.Reason
		if detail == "" {
			detail = "-"
		}
		table.AddRow([]string{
			svc.Name,
			string(svc.Role),
			printer.StatusBadge(string(state.Status)) + " " + string(state.Status),
			detail,
		})
	}
	table.Render()

	printer.Header("Resource Usage")
	if len(report.Resources) == 0 {
		printer.Info("No containers running")
	} else {
		resTable := output.NewQuietTable([]string{"CONTAINER", "CPU", "MEMORY", "NET I/O"}, printer.IsQuiet())
		for _, sample := range report.Resources {
			resTable.AddRow([]string{sample.Container, sample.CPUPercent, sample.MemUsage, sample.NetIO})
		}
		resTable.Render()
	}

	printer.Header("Recent Errors")
	if len(report.ErrorLines) == 0 {
		printer.Success("No error lines in recent logs")
	} else {
		for _, line := range report.ErrorLines {
			printer.Print("  %s", line)
		}
	}

	printer.Header("Database")
	if report.DatabaseReady {
		users := "unknown"
		if report.UserCount != nil {
			users = fmt.Sprintf("%d", *report.UserCount)
		}
		printer.Print("  %s ready, users: %s", printer.StatusBadge("ready"), users)
	} else {
		printer.Print("  %s not ready", printer.StatusBadge("not-ready"))
	}

	printer.Header("Disk")
	if report.Disk.TotalKB > 0 {
		printer.Print("  root: %s used of %s (%s)",
			formatKB(report.Disk.UsedKB), formatKB(report.Disk.TotalKB), report.Disk.UsePercent)
	} else {
		printer.Info("Root filesystem usage unavailable")
	}
	if report.Disk.LogsDirKB > 0 {
		printer.Print("  logs: %s", formatKB(report.Disk.LogsDirKB))
	}

	fmt.Println()
	printer.Info("Generated at %s", report.GeneratedAt.Format(time.RFC3339))
}

func watchMonitor(cmd *cobra.Command, interval time.Duration, jsonOutput bool) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := showReport(cmd, jsonOutput); err != nil {
		return err
	}

	for {
		select {
		case <-ticker.C:
			// Clear screen (ANSI escape)
			fmt.Print("\033[H\033[2J")
			if err := showReport(cmd, jsonOutput); err != nil {
				return err
			}
		case <-cmd.Context().Done():
			return nil
		}
	}
}

func formatKB(kb int64) string {
	switch {
	case kb >= 1024*1024:
		return fmt.Sprintf("%.1fGB", float64(kb)/(1024*1024))
	case kb >= 1024:
		return fmt.Sprintf("%.1fMB", float64(kb)/1024)
	default:
		return fmt.Sprintf("%dKB", kb)
	}
}
