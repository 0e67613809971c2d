package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smart-ration/rationctl/internal/deploy"
	"github.com/smart-ration/rationctl/internal/output"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Tear down, rebuild and restart all services",
	Long: `Run the full redeploy cycle for the smart-ration deployment.

Deploy performs the following steps:
  1. Preflight: verify compose file, secrets file and compose tool
  2. Teardown: stop and remove the previous deployment
  3. Prune dangling images (only with --prune, asks for confirmation)
  4. Build all images without cache
  5. Start all services detached
  6. Wait a fixed settle delay, then verify database readiness

Build or startup failures abort the run. An unready database after
startup is reported as a warning, not a failure; nothing is rolled back.

Examples:
  rationctl deploy                  # Full redeploy
  rationctl deploy --prune          # Also prune dangling images
  rationctl deploy --prune --yes    # Prune without asking
  rationctl deploy --settle 30s     # Longer settle delay
  rationctl deploy --skip-verify    # Skip the post-deploy database check`,
	Args: cobra.NoArgs,
	RunE: runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)

	deployCmd.Flags().Bool("prune", false, "remove dangling images after teardown")
	deployCmd.Flags().BoolP("yes", "y", false, "assume yes for confirmation prompts")
	deployCmd.Flags().Bool("skip-verify", false, "skip post-deploy database readiness check")
	deployCmd.Flags().Duration("settle", 10*time.Second, "settle delay before the readiness check")
	deployCmd.Flags().Duration("build-timeout", 30*time.Minute, "timeout for the image build")
	deployCmd.Flags().Duration("command-timeout", 2*time.Minute, "timeout for other runtime commands")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	printer := newPrinter()
	runner := newRunner()

	prune, _ := cmd.Flags().GetBool("prune")
	yes, _ := cmd.Flags().GetBool("yes")
	skipVerify, _ := cmd.Flags().GetBool("skip-verify")
	settle, _ := cmd.Flags().GetDuration("settle")
	buildTimeout, _ := cmd.Flags().GetDuration("build-timeout")
	commandTimeout, _ := cmd.Flags().GetDuration("command-timeout")

	if !cmd.Flags().Changed("settle") && cfg.Deploy.Settle > 0 {
		settle = cfg.Deploy.Settle
	}
	if !cmd.Flags().Changed("build-timeout") && cfg.Deploy.BuildTimeout > 0 {
		buildTimeout = cfg.Deploy.BuildTimeout
	}
	if !cmd.Flags().Changed("command-timeout") && cfg.Deploy.CommandTimeout > 0 {
		commandTimeout = cfg.Deploy.CommandTimeout
	}

	// Image pruning requires an explicit affirmative answer; no answer
	// or a negative one skips the step without error.
	if prune && !yes {
		prune = confirmPrune(cmd, printer)
	}

	orch := deploy.New(runner, newMonitor(runner), logger, deploy.Options{
		WorkDir:        getProjectRoot(),
		ComposeFile:    cfg.ComposeFilePath(),
		EnvFile:        cfg.EnvFilePath(),
		Prune:          prune,
		SkipVerify:     skipVerify,
		Settle:         settle,
		CommandTimeout: commandTimeout,
		BuildTimeout:   buildTimeout,
	})

	printer.Header("Deploying smart-ration Services")
	run := orch.Execute(cmd.Context())

	printDeployRun(printer, run)

	switch run.Outcome {
	case deploy.OutcomeSuccess:
		if run.Warning != "" {
			printer.Warning("%s", run.Warning)
		}
		printer.Success("Deployment completed successfully")
		printer.PrintHints("deploy")
		return nil
	case deploy.OutcomeAborted:
		return &output.CLIError{
			Summary:  "deployment aborted",
			ExitCode: output.ExitGeneral,
		}
	default:
		return deployFailureError(run)
	}
}

// confirmPrune asks the operator whether dangling images should be removed
func confirmPrune(cmd *cobra.Command, printer *output.Printer) bool {
	fmt.Fprint(cmd.OutOrStdout(), "Remove dangling images to reclaim disk? [y/N]: ")

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		printer.Info("No confirmation received, skipping image prune")
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// printDeployRun renders each recorded step with its command result
func printDeployRun(printer *output.Printer, run *deploy.Run) {
	if run.ComposeTool != "" {
		printer.Info("Compose tool: %s", printer.Bold(run.ComposeTool))
	}

	for _, step := range run.Steps {
		badge := "ok"
		if !step.Result.Ok() {
			badge = "failed"
			if step.State == deploy.StateTeardown || step.State == deploy.StatePruneImages {
				badge = "warning"
			}
		}
		printer.Print("  %s %-14s %s (%s)",
			printer.StatusBadge(badge),
			string(step.State),
			step.Result.Summary(),
			step.Result.Duration.Round(time.Millisecond),
		)
	}
	fmt.Println()
}

// deployFailureError maps a failed run to a structured CLI error
func deployFailureError(run *deploy.Run) error {
	f := run.Failure
	if f == nil {
		return &output.CLIError{
			Summary:  "deployment failed",
			ExitCode: output.ExitComposeError,
		}
	}

	cliErr := &output.CLIError{
		Summary:  fmt.Sprintf("deployment failed during %s", f.State),
		ExitCode: output.ExitComposeError,
	}
	if f.Err != nil {
		cliErr.Detail = f.Err.Error()
	}

	switch {
	case errors.Is(f.Err, deploy.ErrConfigMissing):
		cliErr.ExitCode = output.ExitConfigError
		cliErr.Suggestion = "Check compose.file and compose.env_file in .rationctl.yaml"
	case errors.Is(f.Err, deploy.ErrToolUnavailable):
		cliErr.ExitCode = output.ExitConfigError
		cliErr.Suggestion = "Install the docker compose plugin or docker-compose"
	case f.Result != nil && f.Result.TimedOut:
		cliErr.ExitCode = output.ExitTimeout
		cliErr.Suggestion = "Increase --build-timeout or --command-timeout"
	case f.State == deploy.StateBuild:
		cliErr.Suggestion = "Inspect the build output above, then rerun 'rationctl deploy'"
	case f.State == deploy.StateUp:
		cliErr.Suggestion = "Run 'rationctl status' to see which services started"
	}

	return cliErr
}
