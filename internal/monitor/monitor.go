// Package monitor produces point-in-time health reports for the deployment
package monitor

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smart-ration/rationctl/internal/registry"
	"github.com/smart-ration/rationctl/internal/runtime"
)

// Status classifies a service's observed state
type Status string

const (
	StatusRunning  Status = "running"
	StatusDegraded Status = "degraded"
	StatusStopped  Status = "stopped"
)

// ServiceState is the per-service classification in a report
type ServiceState struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ResourceSample is one container's resource usage at sampling time
type ResourceSample struct {
	Container  string `json:"container"`
	CPUPercent string `json:"cpu_percent"`
	MemUsage   string `json:"mem_usage"`
	NetIO      string `json:"net_io"`
}

// DiskUsage holds advisory filesystem usage figures
type DiskUsage struct {
	UsedKB     int64  `json:"used_kb"`
	TotalKB    int64  `json:"total_kb"`
	UsePercent string `json:"use_percent"`
	LogsDirKB  int64  `json:"logs_dir_kb"`
}

// Report is a pure snapshot of deployment health. It is assembled once
// per Collect call and never mutated afterwards.
type Report struct {
	GeneratedAt   time.Time               `json:"generated_at"`
	Services      map[string]ServiceState `json:"services"`
	Resources     []ResourceSample        `json:"resources"`
	ErrorLines    []string                `json:"error_lines"`
	DatabaseReady bool                    `json:"database_ready"`
	UserCount     *int                    `json:"user_count"`
	Disk          DiskUsage               `json:"disk"`
}

// Options configures monitor behavior
type Options struct {
	LogTail        int
	MaxErrorLines  int
	LogsDir        string
	CommandTimeout time.Duration
	DBUser         string
	DBName         string
	CountQuery     string
}

// defaults applied when options are left zero
const (
	defaultLogTail       = 50
	defaultMaxErrorLines = 5
	defaultTimeout       = 15 * time.Second
)

// Monitor polls the runtime gateway on demand. It holds no mutable state
// between invocations.
type Monitor struct {
	runner   runtime.Runner
	registry *registry.Registry
	logger   *slog.Logger
	opts     Options
}

// New creates a monitor over the given runner and service registry
func New(runner runtime.Runner, reg *registry.Registry, logger *slog.Logger, opts Options) *Monitor {
	if opts.LogTail <= 0 {
		opts.LogTail = defaultLogTail
	}
	if opts.MaxErrorLines <= 0 {
		opts.MaxErrorLines = defaultMaxErrorLines
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = defaultTimeout
	}
	if opts.CountQuery == "" {
		opts.CountQuery = "SELECT COUNT(*) FROM users"
	}
	return &Monitor{
		runner:   runner,
		registry: reg,
		logger:   logger,
		opts:     opts,
	}
}

// Collect runs all health sub-checks and assembles one report.
// Sub-checks run concurrently and write into disjoint report fields;
// a failing sub-check degrades its own field and never aborts the report.
func (m *Monitor) Collect(ctx context.Context) *Report {
	report := &Report{
		GeneratedAt: time.Now(),
		Services:    make(map[string]ServiceState),
		Resources:   []ResourceSample{},
		ErrorLines:  []string{},
	}

	var g errgroup.Group

	g.Go(func() error {
		report.Services = m.checkServices(ctx)
		return nil
	})
	g.Go(func() error {
		report.Resources = m.sampleResources(ctx)
		return nil
	})
	g.Go(func() error {
		report.ErrorLines = m.scanErrorLogs(ctx)
		return nil
	})
	g.Go(func() error {
		report.DatabaseReady, report.UserCount = m.checkDatabase(ctx)
		return nil
	})
	g.Go(func() error {
		report.Disk = m.sampleDisk(ctx)
		return nil
	})

	// Sub-checks never return errors; wait only finalizes the report
	_ = g.Wait()

	return report
}

// DatabaseReady runs only the database readiness probe. Used by the
// deployment orchestrator's post-deploy verification pass.
func (m *Monitor) DatabaseReady(ctx context.Context) bool {
	ready, _ := m.checkDatabase(ctx)
	return ready
}

// ServiceStates runs only the per-service status sub-check
func (m *Monitor) ServiceStates(ctx context.Context) map[string]ServiceState {
	return m.checkServices(ctx)
}
