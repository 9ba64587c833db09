// Package testutil provides fake external tools and helpers shared by tests.
// It only depends on the standard library so any package can use it.
package testutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// RequireShell skips the test when /bin/sh is not available.
func RequireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

// WriteScript writes an executable /bin/sh script into dir and returns its path.
func WriteScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	RequireShell(t)

	path := filepath.Join(dir, name)
	content := "#!/bin/sh\n" + strings.TrimLeft(body, "\n")
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("failed to write script %s: %v", path, err)
	}
	return path
}

// FakeTool writes a script that prints stdout and stderr verbatim and exits
// with the given code.
func FakeTool(t *testing.T, dir, name, stdout, stderr string, exitCode int) string {
	t.Helper()

	outFile := filepath.Join(dir, name+".stdout")
	errFile := filepath.Join(dir, name+".stderr")
	if err := os.WriteFile(outFile, []byte(stdout), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := os.WriteFile(errFile, []byte(stderr), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	body := fmt.Sprintf("cat %q\ncat %q >&2\nexit %d\n", outFile, errFile, exitCode)
	return WriteScript(t, dir, name, body)
}

// ArgsRecorder writes a script that stores its arguments (one per line) and
// stdin into files next to it, then behaves like FakeTool.
func ArgsRecorder(t *testing.T, dir, name, stdout string, exitCode int) (script, argsFile, stdinFile string) {
	t.Helper()

	argsFile = filepath.Join(dir, name+".args")
	stdinFile = filepath.Join(dir, name+".stdin")
	outFile := filepath.Join(dir, name+".stdout")
	if err := os.WriteFile(outFile, []byte(stdout), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	body := fmt.Sprintf(`
for a in "$@"; do printf '%%s\n' "$a"; done > %q
cat > %q
cat %q
exit %d
`, argsFile, stdinFile, outFile, exitCode)
	script = WriteScript(t, dir, name, body)
	return script, argsFile, stdinFile
}

// ReadLines returns the non-empty lines of path.
func ReadLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	var lines []string
	for _, l := range strings.Split(string(data), "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// CaptureOutput captures stdout for testing
func CaptureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	out, _ := io.ReadAll(r)
	return string(out)
}
