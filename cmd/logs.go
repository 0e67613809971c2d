package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/smart-ration/rationctl/internal/output"
	"github.com/smart-ration/rationctl/internal/registry"
)

var logsCmd = &cobra.Command{
	Use:   "logs <service>",
	Short: "Tail logs for a service",
	Long: `Stream logs from a service's container.

Examples:
  rationctl logs bot           # Tail bot logs
  rationctl logs bot -f        # Follow log output
  rationctl logs bot -n 200    # Show last 200 lines
  rationctl logs db --since 1h # Show logs from last hour`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeServiceNames,
	RunE:              runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().BoolP("follow", "f", false, "follow log output")
	logsCmd.Flags().IntP("tail", "n", 100, "number of lines to show")
	logsCmd.Flags().BoolP("timestamps", "t", false, "show timestamps")
	logsCmd.Flags().String("since", "", "show logs since duration (e.g., 2h, 30m)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	svc, ok := cfg.Registry().Get(args[0])
	if !ok {
		return &output.CLIError{
			Summary:    fmt.Sprintf("unknown service: %s", args[0]),
			Suggestion: "Known services: " + fmt.Sprint(cfg.Registry().Names()),
			ExitCode:   output.ExitUsageError,
		}
	}

	follow, _ := cmd.Flags().GetBool("follow")
	tail, _ := cmd.Flags().GetInt("tail")
	timestamps, _ := cmd.Flags().GetBool("timestamps")
	since, _ := cmd.Flags().GetString("since")

	dockerArgs := []string{"logs", "--tail", strconv.Itoa(tail)}
	if follow {
		dockerArgs = append(dockerArgs, "-f")
	}
	if timestamps {
		dockerArgs = append(dockerArgs, "-t")
	}
	if since != "" {
		dockerArgs = append(dockerArgs, "--since", since)
	}
	dockerArgs = append(dockerArgs, svc.ContainerPattern)

	// No timeout in follow mode
	var ctx context.Context
	var cancel context.CancelFunc
	if follow {
		ctx, cancel = context.WithCancel(cmd.Context())
	} else {
		ctx, cancel = context.WithTimeout(cmd.Context(), 30*time.Second)
	}
	defer cancel()

	runner := newRunner()
	if err := runner.Stream(ctx, "docker", dockerArgs, os.Stdout, os.Stderr); err != nil {
		return fmt.Errorf("streaming logs for %s: %w", svc.Name, err)
	}

	newPrinter().PrintHints("logs")
	return nil
}

// completeServiceNames provides shell completion for service names
func completeServiceNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if cfg == nil {
		return registry.NewRegistry().Names(), cobra.ShellCompDirectiveNoFileComp
	}
	return cfg.Registry().Names(), cobra.ShellCompDirectiveNoFileComp
}
