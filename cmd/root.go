// Package cmd contains all CLI commands for rationctl
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smart-ration/rationctl/internal/config"
	"github.com/smart-ration/rationctl/internal/monitor"
	"github.com/smart-ration/rationctl/internal/output"
	"github.com/smart-ration/rationctl/internal/runtime"
)

var (
	cfgFile    string
	verbose    bool
	quiet      bool
	dryRun     bool
	projectDir string
	colorFlag  string
	cfg        *config.Config
	logger     *slog.Logger
	version    = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rationctl",
	Short: "smart-ration deployment orchestration CLI",
	Long: `rationctl manages the smart-ration bot's Docker Compose deployment.

It automates the full redeploy cycle (teardown, no-cache rebuild, restart,
post-deploy verification) and produces on-demand health reports covering
service status, resource usage, recent error activity, database readiness
and disk usage.

Example usage:
  rationctl deploy             # Tear down, rebuild and restart all services
  rationctl deploy --prune     # Also remove dangling images (asks first)
  rationctl monitor            # One health report pass
  rationctl status             # Per-service status only
  rationctl logs bot           # Tail bot logs`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .rationctl.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "show commands without executing")
	rootCmd.PersistentFlags().StringVar(&projectDir, "project-dir", "", "deployment project directory (default: auto-detect)")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto", "color output (auto, always, never)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))
	_ = viper.BindPFlag("project.root", rootCmd.PersistentFlags().Lookup("project-dir"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	var err error

	// Setup logger
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	// Load configuration
	cfg, err = config.Load(cfgFile, projectDir)
	if err != nil {
		return &output.CLIError{
			Summary:  "loading config failed",
			Detail:   err.Error(),
			ExitCode: output.ExitConfigError,
		}
	}

	// Update logger based on config
	if cfg.Logging.Level == "debug" || verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	logger.Debug("configuration loaded",
		"project_root", cfg.Project.Root,
		"compose_file", cfg.Compose.File,
		"services", len(cfg.Services),
	)

	return nil
}

// newPrinter builds a printer honoring quiet mode and color flags
func newPrinter() *output.Printer {
	mode, err := output.ParseColorMode(colorFlag)
	if err != nil {
		mode = output.ColorAuto
	}
	return output.NewPrinterWithOptions(output.PrinterOptions{
		ColorMode:    mode,
		ConfigColors: cfg.Output.Colors,
		Quiet:        quiet,
	})
}

// newRunner builds the command runner rooted at the project directory.
// The compose project name is pinned via the environment so container
// naming stays stable regardless of the directory rationctl runs from.
func newRunner() *runtime.ExecRunner {
	runner := runtime.NewExecRunner(cfg.Project.Root, logger, dryRun)
	if cfg.Project.Name != "" {
		runner.SetEnv("COMPOSE_PROJECT_NAME", cfg.Project.Name)
	}
	return runner
}

// newMonitor builds a health monitor from the active configuration
func newMonitor(runner runtime.Runner) *monitor.Monitor {
	return monitor.New(runner, cfg.Registry(), logger, monitor.Options{
		LogTail:        cfg.Monitor.LogTail,
		LogsDir:        cfg.Monitor.LogsDir,
		CommandTimeout: cfg.Monitor.CommandTimeout,
		DBUser:         cfg.Monitor.DBUser,
		DBName:         cfg.Monitor.DBName,
	})
}

// getProjectRoot returns the project root directory
func getProjectRoot() string {
	if cfg != nil && cfg.Project.Root != "" {
		return cfg.Project.Root
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}
