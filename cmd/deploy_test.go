package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/smart-ration/rationctl/internal/output"
)

func TestDeploy_DryRun(t *testing.T) {
	dir := setupCmdTest(t)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"deploy", "--dry-run", "--project-dir", dir, "--settle", "1ms"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("deploy --dry-run failed: %v", err)
	}
}

func TestDeploy_MissingArtifacts(t *testing.T) {
	setupCmdTest(t)
	empty := t.TempDir() // no compose file, no env file

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"deploy", "--dry-run", "--project-dir", empty, "--settle", "1ms"})

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing deployment artifacts, got nil")
	}

	var cliErr *output.CLIError
	if !errors.As(err, &cliErr) {
		t.Fatalf("expected CLIError, got %T: %v", err, err)
	}
	if cliErr.ExitCode != output.ExitConfigError {
		t.Errorf("expected exit code %d, got %d", output.ExitConfigError, cliErr.ExitCode)
	}
}

func TestDeploy_SkipVerify(t *testing.T) {
	dir := setupCmdTest(t)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"deploy", "--dry-run", "--project-dir", dir, "--settle", "1ms", "--skip-verify"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("deploy --skip-verify failed: %v", err)
	}
}

func TestDeploy_PruneConfirmedWithYesFlag(t *testing.T) {
	dir := setupCmdTest(t)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"deploy", "--dry-run", "--project-dir", dir, "--settle", "1ms", "--prune", "--yes"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("deploy --prune --yes failed: %v", err)
	}
}

func TestDeploy_PruneDeclinedAtPrompt(t *testing.T) {
	dir := setupCmdTest(t)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetIn(strings.NewReader("n\n"))
	rootCmd.SetArgs([]string{"deploy", "--dry-run", "--project-dir", dir, "--settle", "1ms", "--prune"})

	// Declining the prompt skips pruning but the deployment still runs
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("deploy with declined prune failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Remove dangling images") {
		t.Errorf("expected confirmation prompt in output, got:\n%s", buf.String())
	}
}

func TestDeploy_RejectsPositionalArgs(t *testing.T) {
	dir := setupCmdTest(t)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"deploy", "extra-arg", "--dry-run", "--project-dir", dir})

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for positional argument, got nil")
	}
}
