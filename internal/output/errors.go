package output

import (
	"fmt"

	"github.com/fatih/color"
)

// Exit codes returned by the CLI. Deployment runs map preflight faults to
// ExitConfigError, compose and container runtime failures to
// ExitComposeError and command deadline overruns to ExitTimeout.
const (
	ExitSuccess      = 0 // completed, including success-with-warning
	ExitGeneral      = 1 // unclassified failure or aborted run
	ExitUsageError   = 2 // bad arguments or unknown service
	ExitComposeError = 3 // compose or runtime command failed
	ExitConfigError  = 4 // missing or invalid configuration, no compose tool
	ExitTimeout      = 5 // a runtime command exceeded its deadline
)

// CLIError is the operator-facing failure report: a one-line summary,
// the underlying cause, a next-step suggestion and the process exit code.
type CLIError struct {
	Summary    string
	Detail     string
	Suggestion string
	ExitCode   int
}

// Error implements the error interface, returning the summary
func (e *CLIError) Error() string {
	return e.Summary
}

// FormatError renders a structured error to stderr. Printed even in quiet
// mode, like Error.
func (p *Printer) FormatError(e *CLIError) {
	if p.useColors {
		color.New(color.FgRed, color.Bold).Fprintf(p.err, "Error: %s\n", e.Summary)
	} else {
		fmt.Fprintf(p.err, "[ERROR] %s\n", e.Summary)
	}

	if e.Detail != "" {
		fmt.Fprintf(p.err, "  Cause: %s\n", e.Detail)
	}

	if e.Suggestion == "" {
		return
	}
	if p.useColors {
		color.New(color.FgCyan).Fprintf(p.err, "  Suggestion: %s\n", e.Suggestion)
	} else {
		fmt.Fprintf(p.err, "  Suggestion: %s\n", e.Suggestion)
	}
}
