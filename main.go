// Package main is the entry point for rationctl CLI
package main

import (
	"errors"
	"os"

	"github.com/smart-ration/rationctl/cmd"
	"github.com/smart-ration/rationctl/internal/output"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	cmd.SetVersion(version)
	os.Exit(run())
}

// run executes the CLI and maps the outcome to a process exit code.
// Structured errors are rendered with their cause and suggestion; the
// printer ignores quiet mode so failures always reach the operator.
func run() int {
	err := cmd.Execute()
	if err == nil {
		return output.ExitSuccess
	}

	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		printer := output.NewPrinter(output.ResolveColors(output.ColorAuto, true))
		printer.FormatError(cliErr)
		return cliErr.ExitCode
	}

	os.Stderr.WriteString("Error: " + err.Error() + "\n")
	return output.ExitGeneral
}
