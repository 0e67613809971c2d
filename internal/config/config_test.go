package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ".rationctl.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load("", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Compose.File != "docker-compose.yml" {
		t.Errorf("expected default compose file, got %q", cfg.Compose.File)
	}
	if cfg.Compose.EnvFile != ".env" {
		t.Errorf("expected default env file, got %q", cfg.Compose.EnvFile)
	}
	if cfg.Deploy.Settle != 10*time.Second {
		t.Errorf("expected default settle 10s, got %v", cfg.Deploy.Settle)
	}
	if cfg.Deploy.BuildTimeout != 30*time.Minute {
		t.Errorf("expected default build timeout 30m, got %v", cfg.Deploy.BuildTimeout)
	}
	if cfg.Monitor.LogTail != 50 {
		t.Errorf("expected default log tail 50, got %d", cfg.Monitor.LogTail)
	}
	if cfg.Monitor.DBName != "telegram_bot" {
		t.Errorf("expected default db name, got %q", cfg.Monitor.DBName)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("expected default logging info/text, got %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
	if !cfg.Output.Colors {
		t.Error("expected colors enabled by default")
	}
	if cfg.Project.Root != dir {
		t.Errorf("expected project root %q, got %q", dir, cfg.Project.Root)
	}
	if cfg.Project.Name != "smart_ration" {
		t.Errorf("expected default project name smart_ration, got %q", cfg.Project.Name)
	}
}

func TestLoad_ProjectNameOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "project:\n  name: ration_staging\n")

	cfg, err := Load("", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Project.Name != "ration_staging" {
		t.Errorf("expected project name ration_staging, got %q", cfg.Project.Name)
	}
}

func TestLoad_ConfigFileOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
compose:
  file: compose.prod.yml
deploy:
  settle: 3s
monitor:
  log_tail: 200
  db_name: ration
logging:
  level: debug
`)

	cfg, err := Load("", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Compose.File != "compose.prod.yml" {
		t.Errorf("expected compose.prod.yml, got %q", cfg.Compose.File)
	}
	if cfg.Deploy.Settle != 3*time.Second {
		t.Errorf("expected settle 3s, got %v", cfg.Deploy.Settle)
	}
	if cfg.Monitor.LogTail != 200 {
		t.Errorf("expected log tail 200, got %d", cfg.Monitor.LogTail)
	}
	if cfg.Monitor.DBName != "ration" {
		t.Errorf("expected db name ration, got %q", cfg.Monitor.DBName)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level debug, got %q", cfg.Logging.Level)
	}
	// Untouched keys keep their defaults
	if cfg.Deploy.CommandTimeout != 2*time.Minute {
		t.Errorf("expected default command timeout, got %v", cfg.Deploy.CommandTimeout)
	}
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected level warn, got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidLoggingLevel(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "logging:\n  level: loud\n")

	_, err := Load("", dir)
	if err == nil {
		t.Fatal("expected validation error for invalid level")
	}
	if !strings.Contains(err.Error(), "invalid logging level") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_InvalidLoggingFormat(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "logging:\n  format: xml\n")

	_, err := Load("", dir)
	if err == nil {
		t.Fatal("expected validation error for invalid format")
	}
}

func TestLoad_InvalidServiceRole(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
services:
  - name: queue
    container: my_queue
    role: broker
`)

	_, err := Load("", dir)
	if err == nil {
		t.Fatal("expected validation error for unknown role")
	}
	if !strings.Contains(err.Error(), "invalid role") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_ServiceMissingContainer(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
services:
  - name: queue
    role: cache
`)

	_, err := Load("", dir)
	if err == nil {
		t.Fatal("expected validation error for missing container")
	}
}

func TestLoad_MissingProjectRoot(t *testing.T) {
	_, err := Load("", "/definitely/not/a/real/path")
	if err == nil {
		t.Fatal("expected error for nonexistent project root")
	}
	if !strings.Contains(err.Error(), "project root does not exist") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestComposeFilePath(t *testing.T) {
	cfg := &Config{
		Project: ProjectConfig{Root: "/srv/ration"},
		Compose: ComposeConfig{File: "docker-compose.yml", EnvFile: "/etc/ration/.env"},
	}

	if got := cfg.ComposeFilePath(); got != "/srv/ration/docker-compose.yml" {
		t.Errorf("expected joined path, got %q", got)
	}
	// Absolute paths pass through untouched
	if got := cfg.EnvFilePath(); got != "/etc/ration/.env" {
		t.Errorf("expected absolute path unchanged, got %q", got)
	}
}

func TestRegistry_FallsBackToBuiltins(t *testing.T) {
	cfg := &Config{}

	r := cfg.Registry()
	if _, ok := r.Get("bot"); !ok {
		t.Error("expected built-in bot service")
	}
	if len(r.All()) != 4 {
		t.Errorf("expected 4 built-in services, got %d", len(r.All()))
	}
}

func TestRegistry_FromConfiguredServices(t *testing.T) {
	cfg := &Config{Services: []ServiceConfig{
		{Name: "api", Container: "my_api", Role: "app"},
		{Name: "pg", Container: "my_pg", Role: "database", ReadinessProbe: []string{"pg_isready", "-U", "app"}},
	}}

	r := cfg.Registry()
	if len(r.All()) != 2 {
		t.Fatalf("expected 2 services, got %d", len(r.All()))
	}
	pg, ok := r.Get("pg")
	if !ok {
		t.Fatal("expected pg service")
	}
	if len(pg.ReadinessProbe) != 3 || pg.ReadinessProbe[0] != "pg_isready" {
		t.Errorf("unexpected probe: %v", pg.ReadinessProbe)
	}
}
