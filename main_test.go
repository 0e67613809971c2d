package main

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/smart-ration/rationctl/internal/output"
)

// captureStderr redirects os.Stderr for the duration of fn
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = w

	fn()

	w.Close()
	os.Stderr = old
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

func TestRun_RendersStructuredFailure(t *testing.T) {
	dir := t.TempDir() // no compose file, no env file
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"rationctl", "deploy", "--dry-run", "--project-dir", dir}

	var code int
	stderr := captureStderr(t, func() {
		code = run()
	})

	if code != output.ExitConfigError {
		t.Errorf("expected exit code %d, got %d", output.ExitConfigError, code)
	}
	if !strings.Contains(stderr, "deployment failed during preflight") {
		t.Errorf("expected failure summary on stderr, got:\n%s", stderr)
	}
	if !strings.Contains(stderr, "Suggestion:") {
		t.Errorf("expected suggestion line on stderr, got:\n%s", stderr)
	}
}

func TestRun_SuccessExitsZero(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"rationctl", "version", "--short", "--project-dir", t.TempDir()}

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	code := run()
	w.Close()
	os.Stdout = old
	io.ReadAll(r)

	if code != output.ExitSuccess {
		t.Errorf("expected exit code 0, got %d", code)
	}
}
