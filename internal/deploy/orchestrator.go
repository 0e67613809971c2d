// Package deploy drives the teardown-rebuild-restart state machine
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/smart-ration/rationctl/internal/runtime"
)

// State identifies one step of a deployment run
type State string

const (
	StateIdle           State = "idle"
	StatePreflight      State = "preflight"
	StateTeardown       State = "teardown"
	StatePruneImages    State = "prune-images"
	StateBuild          State = "build"
	StateUp             State = "up"
	StateAwaitStability State = "await-stability"
	StateHealthVerify   State = "health-verify"
)

// Outcome is the terminal result of a deployment run
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeAborted Outcome = "aborted"
)

// Sentinel errors for the preflight failure taxonomy
var (
	ErrConfigMissing   = errors.New("required configuration artifact missing")
	ErrToolUnavailable = errors.New("no compose tool available")
)

// StepResult pairs a state with the command result it recorded
type StepResult struct {
	State  State          `json:"state"`
	Result runtime.Result `json:"result"`
}

// Failure captures the state and command result that terminated a run
type Failure struct {
	State  State
	Err    error
	Result *runtime.Result
}

// Run is the record of one deployment. Steps are appended monotonically
// as states complete; Outcome is set exactly once at a terminal state.
type Run struct {
	StartedAt   time.Time    `json:"started_at"`
	ComposeTool string       `json:"compose_tool"`
	Steps       []StepResult `json:"steps"`
	Outcome     Outcome      `json:"outcome"`
	Warning     string       `json:"warning,omitempty"`

	Failure *Failure `json:"-"`
}

func (r *Run) record(state State, res runtime.Result) {
	r.Steps = append(r.Steps, StepResult{State: state, Result: res})
}

func (r *Run) finish(outcome Outcome) {
	if r.Outcome == OutcomePending {
		r.Outcome = outcome
	}
}

// ReadinessChecker verifies database readiness after deployment.
// Satisfied by the health monitor.
type ReadinessChecker interface {
	DatabaseReady(ctx context.Context) bool
}

// Options configures a deployment run
type Options struct {
	WorkDir        string
	ComposeFile    string
	EnvFile        string
	Prune          bool // operator already confirmed image pruning
	SkipVerify     bool
	Settle         time.Duration
	CommandTimeout time.Duration
	BuildTimeout   time.Duration
}

const (
	defaultSettle         = 10 * time.Second
	defaultCommandTimeout = 2 * time.Minute
	defaultBuildTimeout   = 30 * time.Minute
)

// Orchestrator executes the deployment state machine sequentially.
// Each state runs only after the previous state's result is recorded;
// fatal failures halt the machine with no retry and no rollback.
type Orchestrator struct {
	runner  runtime.Runner
	checker ReadinessChecker
	logger  *slog.Logger
	opts    Options
}

// New creates an orchestrator
func New(runner runtime.Runner, checker ReadinessChecker, logger *slog.Logger, opts Options) *Orchestrator {
	if opts.Settle <= 0 {
		opts.Settle = defaultSettle
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = defaultCommandTimeout
	}
	if opts.BuildTimeout <= 0 {
		opts.BuildTimeout = defaultBuildTimeout
	}
	return &Orchestrator{
		runner:  runner,
		checker: checker,
		logger:  logger,
		opts:    opts,
	}
}

// Execute runs the full deployment state machine and returns the finalized run
func (o *Orchestrator) Execute(ctx context.Context) *Run {
	run := &Run{
		StartedAt: time.Now(),
		Outcome:   OutcomePending,
	}

	tool, ok := o.preflight(ctx, run)
	if !ok {
		return run
	}
	run.ComposeTool = tool.String()

	o.teardown(ctx, run, tool)

	if o.opts.Prune {
		o.pruneImages(ctx, run)
	}

	if !o.build(ctx, run, tool) {
		return run
	}

	if !o.up(ctx, run, tool) {
		return run
	}

	if !o.awaitStability(ctx, run) {
		return run
	}

	o.healthVerify(ctx, run)
	return run
}

// preflight verifies required artifacts exist and a compose tool responds.
// Both checks are fatal; the probe result is recorded as the preflight step.
func (o *Orchestrator) preflight(ctx context.Context, run *Run) (runtime.ComposeTool, bool) {
	for _, artifact := range []string{o.opts.ComposeFile, o.opts.EnvFile} {
		if artifact == "" {
			continue
		}
		path := artifact
		if !filepath.IsAbs(path) {
			path = filepath.Join(o.opts.WorkDir, path)
		}
		if _, err := os.Stat(path); err != nil {
			o.fail(run, StatePreflight, fmt.Errorf("%w: %s", ErrConfigMissing, artifact), nil)
			return runtime.ComposeTool{}, false
		}
	}

	tool, res, err := runtime.DetectComposeTool(ctx, o.runner)
	if err != nil {
		o.fail(run, StatePreflight, fmt.Errorf("%w: %v", ErrToolUnavailable, err), nil)
		return runtime.ComposeTool{}, false
	}
	run.record(StatePreflight, res)

	o.logger.Info("preflight passed", "compose_tool", tool.String())
	return tool, true
}

// teardown stops the previous deployment. Failure is non-fatal: the
// previous state may already be absent.
func (o *Orchestrator) teardown(ctx context.Context, run *Run, tool runtime.ComposeTool) {
	bin, args := tool.Command("-f", o.opts.ComposeFile, "down", "--remove-orphans")
	res := o.runner.Execute(ctx, bin, args, o.opts.CommandTimeout)
	run.record(StateTeardown, res)

	if !res.Ok() {
		o.logger.Warn("teardown failed, continuing", "detail", res.Summary())
	}
}

// pruneImages removes dangling images. Runs only after operator
// confirmation; failure is non-fatal.
func (o *Orchestrator) pruneImages(ctx context.Context, run *Run) {
	res := o.runner.Execute(ctx, "docker", []string{"image", "prune", "-f"}, o.opts.CommandTimeout)
	run.record(StatePruneImages, res)

	if !res.Ok() {
		o.logger.Warn("image prune failed, continuing", "detail", res.Summary())
	}
}

// build rebuilds all images without cache. Failure is fatal.
func (o *Orchestrator) build(ctx context.Context, run *Run, tool runtime.ComposeTool) bool {
	bin, args := tool.Command("-f", o.opts.ComposeFile, "build", "--no-cache")
	res := o.runner.Execute(ctx, bin, args, o.opts.BuildTimeout)
	run.record(StateBuild, res)

	if !res.Ok() {
		o.fail(run, StateBuild, fmt.Errorf("image build failed: %s", res.Summary()), &res)
		return false
	}
	return true
}

// up starts all services detached. Failure is fatal.
func (o *Orchestrator) up(ctx context.Context, run *Run, tool runtime.ComposeTool) bool {
	bin, args := tool.Command("-f", o.opts.ComposeFile, "up", "-d")
	res := o.runner.Execute(ctx, bin, args, o.opts.CommandTimeout)
	run.record(StateUp, res)

	if !res.Ok() {
		o.fail(run, StateUp, fmt.Errorf("service startup failed: %s", res.Summary()), &res)
		return false
	}
	return true
}

// awaitStability waits a fixed settle delay before the first probe.
// Not a readiness wait, only a conservative backoff for services with
// non-instant initialization.
func (o *Orchestrator) awaitStability(ctx context.Context, run *Run) bool {
	o.logger.Info("waiting for services to settle", "delay", o.opts.Settle)
	select {
	case <-time.After(o.opts.Settle):
		return true
	case <-ctx.Done():
		run.finish(OutcomeAborted)
		return false
	}
}

// healthVerify runs the database readiness probe once. An unready database
// degrades the run to success-with-warning; there is no rollback of a
// partially-up deployment.
func (o *Orchestrator) healthVerify(ctx context.Context, run *Run) {
	if o.opts.SkipVerify || o.checker == nil {
		run.finish(OutcomeSuccess)
		return
	}

	if !o.checker.DatabaseReady(ctx) {
		run.Warning = "database is not ready yet; services are up but may not accept traffic"
	}
	run.finish(OutcomeSuccess)
}

func (o *Orchestrator) fail(run *Run, state State, err error, res *runtime.Result) {
	o.logger.Error("deployment failed", "state", string(state), "error", err)
	run.Failure = &Failure{State: state, Err: err, Result: res}
	run.finish(OutcomeFailed)
}
