package monitor

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/smart-ration/rationctl/internal/registry"
)

// containerInfo is the subset of `docker ps --format json` output we read.
// One JSON object per line; unknown fields are ignored.
type containerInfo struct {
	Names  string `json:"Names"`
	Status string `json:"Status"`
}

// statsInfo is the subset of `docker stats --format json` output we read
type statsInfo struct {
	Name     string `json:"Name"`
	CPUPerc  string `json:"CPUPerc"`
	MemUsage string `json:"MemUsage"`
	NetIO    string `json:"NetIO"`
}

// errorTokens are matched case-insensitively in the application log tail
var errorTokens = []string{"error", "exception", "failed"}

// checkServices classifies each registered service against running containers.
// A service with no matching container is stopped; a matching container whose
// status string is not "Up"-prefixed is degraded with the status as reason.
func (m *Monitor) checkServices(ctx context.Context) map[string]ServiceState {
	states := make(map[string]ServiceState, len(m.registry.All()))
	for _, svc := range m.registry.All() {
		states[svc.Name] = ServiceState{Status: StatusStopped}
	}

	containers := m.listContainers(ctx)
	for _, svc := range m.registry.All() {
		for _, c := range containers {
			if !strings.Contains(c.Names, svc.ContainerPattern) {
				continue
			}
			if strings.HasPrefix(c.Status, "Up") {
				states[svc.Name] = ServiceState{Status: StatusRunning}
			} else {
				states[svc.Name] = ServiceState{Status: StatusDegraded, Reason: c.Status}
			}
			break
		}
	}
	return states
}

// listContainers queries `docker ps` and decodes its line-delimited JSON
func (m *Monitor) listContainers(ctx context.Context) []containerInfo {
	res := m.runner.Execute(ctx, "docker", []string{"ps", "-a", "--format", "json"}, m.opts.CommandTimeout)
	if !res.Ok() {
		m.logger.Debug("container listing failed", "detail", res.Summary())
		return nil
	}

	var containers []containerInfo
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if line == "" {
			continue
		}
		var c containerInfo
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			m.logger.Warn("failed to parse container entry", "line", line, "error", err)
			continue
		}
		containers = append(containers, c)
	}
	return containers
}

// sampleResources takes one non-streaming resource usage sample for all
// containers matching a registered service pattern. No containers means an
// empty snapshot, not an error.
func (m *Monitor) sampleResources(ctx context.Context) []ResourceSample {
	samples := []ResourceSample{}

	res := m.runner.Execute(ctx, "docker", []string{"stats", "--no-stream", "--format", "json"}, m.opts.CommandTimeout)
	if !res.Ok() {
		m.logger.Debug("resource sampling failed", "detail", res.Summary())
		return samples
	}

	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if line == "" {
			continue
		}
		var s statsInfo
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			m.logger.Warn("failed to parse stats entry", "line", line, "error", err)
			continue
		}
		if !m.matchesAnyService(s.Name) {
			continue
		}
		samples = append(samples, ResourceSample{
			Container:  s.Name,
			CPUPercent: s.CPUPerc,
			MemUsage:   s.MemUsage,
			NetIO:      s.NetIO,
		})
	}
	return samples
}

func (m *Monitor) matchesAnyService(containerName string) bool {
	for _, svc := range m.registry.All() {
		if strings.Contains(containerName, svc.ContainerPattern) {
			return true
		}
	}
	return false
}

// scanErrorLogs tails the application container's logs and returns up to
// MaxErrorLines of the most recent lines containing an error token.
// This is a best-effort heuristic; multi-line stack traces may be captured
// only partially.
func (m *Monitor) scanErrorLogs(ctx context.Context) []string {
	matches := []string{}

	app, ok := m.registry.ByRole(registry.RoleApp)
	if !ok {
		return matches
	}

	args := []string{"logs", "--tail", strconv.Itoa(m.opts.LogTail), app.ContainerPattern}
	res := m.runner.Execute(ctx, "docker", args, m.opts.CommandTimeout)
	if !res.Ok() {
		// On failure stderr holds the daemon's complaint, not application
		// output; scanning it would report phantom error lines.
		m.logger.Debug("log scan failed", "detail", res.Summary())
		return matches
	}

	// docker logs may write application output to either stream
	for _, line := range strings.Split(res.Stdout+"\n"+res.Stderr, "\n") {
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		for _, token := range errorTokens {
			if strings.Contains(lower, token) {
				matches = append(matches, line)
				break
			}
		}
	}

	if len(matches) > m.opts.MaxErrorLines {
		matches = matches[len(matches)-m.opts.MaxErrorLines:]
	}
	return matches
}

// checkDatabase probes database readiness inside the database container and,
// when ready, counts rows in the users table. A malformed count is treated
// as absent, never as an error.
func (m *Monitor) checkDatabase(ctx context.Context) (bool, *int) {
	db, ok := m.registry.ByRole(registry.RoleDatabase)
	if !ok {
		return false, nil
	}

	probe := db.ReadinessProbe
	if len(probe) == 0 {
		probe = []string{"pg_isready", "-U", m.opts.DBUser}
	}

	args := append([]string{"exec", db.ContainerPattern}, probe...)
	res := m.runner.Execute(ctx, "docker", args, m.opts.CommandTimeout)
	if !res.Ok() {
		return false, nil
	}

	count := m.countUsers(ctx, db)
	return true, count
}

func (m *Monitor) countUsers(ctx context.Context, db *registry.Service) *int {
	args := []string{
		"exec", db.ContainerPattern,
		"psql", "-U", m.opts.DBUser, "-d", m.opts.DBName, "-tA", "-c", m.opts.CountQuery,
	}
	res := m.runner.Execute(ctx, "docker", args, m.opts.CommandTimeout)
	if !res.Ok() {
		return nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil {
		m.logger.Debug("row count unparseable", "output", res.Stdout)
		return nil
	}
	return &n
}

// sampleDisk reads root filesystem usage and the on-disk size of the logs
// directory. Both figures are advisory; parse failures leave zero values.
func (m *Monitor) sampleDisk(ctx context.Context) DiskUsage {
	var disk DiskUsage

	res := m.runner.Execute(ctx, "df", []string{"-k", "/"}, m.opts.CommandTimeout)
	if res.Ok() {
		disk = parseDF(res.Stdout)
	} else {
		m.logger.Debug("df failed", "detail", res.Summary())
	}

	if m.opts.LogsDir != "" {
		res := m.runner.Execute(ctx, "du", []string{"-sk", m.opts.LogsDir}, m.opts.CommandTimeout)
		if res.Ok() {
			if fields := strings.Fields(res.Stdout); len(fields) > 0 {
				if kb, err := strconv.ParseInt(fields[0], 10, 64); err == nil {
					disk.LogsDirKB = kb
				}
			}
		}
	}

	return disk
}

// parseDF tokenizes `df -k` output defensively. Column positions are not
// assumed beyond the POSIX field order on the filesystem line.
func parseDF(out string) DiskUsage {
	var disk DiskUsage

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return disk
	}

	// Filesystem 1K-blocks Used Available Use% Mounted
	fields := strings.Fields(lines[1])
	if len(fields) < 5 {
		return disk
	}

	if total, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
		disk.TotalKB = total
	}
	if used, err := strconv.ParseInt(fields[2], 10, 64); err == nil {
		disk.UsedKB = used
	}
	disk.UsePercent = fields[4]

	return disk
}
