// Package runtime abstracts invocation of the container runtime and compose tool
package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Result captures the outcome of a single command invocation.
// A non-zero exit code is conveyed here rather than as an error,
// so callers implement their own failure policy.
type Result struct {
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// Ok reports whether the command completed with exit code zero.
func (r Result) Ok() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// Summary returns a one-line description suitable for status output.
func (r Result) Summary() string {
	if r.TimedOut {
		return fmt.Sprintf("timed out after %s", r.Duration.Round(time.Millisecond))
	}
	if r.ExitCode != 0 {
		msg := strings.TrimSpace(r.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(r.Stdout)
		}
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		return fmt.Sprintf("exit %d: %s", r.ExitCode, msg)
	}
	return "ok"
}

// Runner executes external commands synchronously
type Runner interface {
	Execute(ctx context.Context, name string, args []string, timeout time.Duration) Result
}

// ExecRunner implements Runner using os/exec
type ExecRunner struct {
	workDir string
	env     []string
	logger  *slog.Logger
	dryRun  bool
}

// NewExecRunner creates a new command runner rooted at workDir
func NewExecRunner(workDir string, logger *slog.Logger, dryRun bool) *ExecRunner {
	return &ExecRunner{
		workDir: workDir,
		env:     os.Environ(),
		logger:  logger,
		dryRun:  dryRun,
	}
}

// Execute runs a command and waits for completion or timeout.
// A timeout is reported via Result.TimedOut; the spawned process is
// always reaped. Execute never returns a Go error for a failed command.
func (e *ExecRunner) Execute(ctx context.Context, name string, args []string, timeout time.Duration) Result {
	e.logger.Debug("executing command",
		"cmd", name,
		"args", args,
		"workdir", e.workDir,
		"timeout", timeout,
	)

	if e.dryRun {
		fmt.Printf("[dry-run] %s %s\n", name, strings.Join(args, " "))
		return Result{ExitCode: 0}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, name, args...)
	c.Dir = e.workDir
	c.Env = e.env

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()

	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	switch {
	case err == nil:
		res.ExitCode = 0
	case ctx.Err() != nil:
		res.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
		res.ExitCode = -1
		if res.Stderr == "" {
			res.Stderr = ctx.Err().Error()
		}
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			// Command could not be started (e.g. binary not found)
			res.ExitCode = -1
			res.Stderr = err.Error()
		}
	}

	e.logger.Debug("command finished",
		"cmd", name,
		"exit_code", res.ExitCode,
		"timed_out", res.TimedOut,
		"duration", res.Duration,
	)

	return res
}

// Stream runs a command with output piped to the given writers.
// Used for log tailing where output should reach the terminal directly.
func (e *ExecRunner) Stream(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	e.logger.Debug("streaming command",
		"cmd", name,
		"args", args,
		"workdir", e.workDir,
	)

	if e.dryRun {
		fmt.Fprintf(stdout, "[dry-run] %s %s\n", name, strings.Join(args, " "))
		return nil
	}

	c := exec.CommandContext(ctx, name, args...)
	c.Dir = e.workDir
	c.Env = e.env
	c.Stdout = stdout
	c.Stderr = stderr

	return c.Run()
}

// SetEnv adds or updates an environment variable for subsequent commands
func (e *ExecRunner) SetEnv(key, value string) {
	prefix := key + "="
	newEnv := make([]string, 0, len(e.env)+1)
	for _, env := range e.env {
		if !strings.HasPrefix(env, prefix) {
			newEnv = append(newEnv, env)
		}
	}
	newEnv = append(newEnv, prefix+value)
	e.env = newEnv
}
