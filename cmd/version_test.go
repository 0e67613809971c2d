package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestVersion_Default(t *testing.T) {
	dir := setupCmdTest(t)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version", "--project-dir", dir})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "rationctl version") {
		t.Errorf("expected version banner, got:\n%s", out)
	}
	if !strings.Contains(out, "go version") {
		t.Errorf("expected go version line, got:\n%s", out)
	}
}

func TestVersion_Short(t *testing.T) {
	dir := setupCmdTest(t)
	SetVersion("1.2.3")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version", "--short", "--project-dir", dir})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version --short failed: %v", err)
	}

	if got := strings.TrimSpace(buf.String()); got != "1.2.3" {
		t.Errorf("expected '1.2.3', got %q", got)
	}
}

func TestVersion_JSON(t *testing.T) {
	dir := setupCmdTest(t)
	SetVersion("1.2.3")
	SetBuildInfo("abc123", "2026-08-30")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version", "--json", "--project-dir", dir})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version --json failed: %v", err)
	}

	var info map[string]string
	if err := json.Unmarshal(buf.Bytes(), &info); err != nil {
		t.Fatalf("version --json produced invalid JSON: %v\n%s", err, buf.String())
	}
	if info["version"] != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", info["version"])
	}
	if info["commit"] != "abc123" {
		t.Errorf("expected commit abc123, got %q", info["commit"])
	}
}
