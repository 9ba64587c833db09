package injection

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/leonardotrapani/hyprdictate/internal/procexec"
)

type wtypeBackend struct {
	runner procexec.Runner
	path   string
}

func NewWtypeBackend(runner procexec.Runner) Backend {
	return &wtypeBackend{runner: runner, path: "wtype"}
}

func (w *wtypeBackend) Name() string {
	return "wtype"
}

func (w *wtypeBackend) Available() error {
	if _, err := exec.LookPath(w.path); err != nil {
		return fmt.Errorf("wtype not found: %w (install wtype package)", err)
	}
	return nil
}

// Inject types text into the focused window; "-" makes wtype read stdin so
// text starting with a dash is not taken for an option.
func (w *wtypeBackend) Inject(ctx context.Context, text string, timeout time.Duration) error {
	res, err := w.runner.Invoke(ctx, procexec.Spec{
		Path:    w.path,
		Args:    []string{"-"},
		Stdin:   text,
		Timeout: timeout,
	})
	return checkTypingResult("wtype", res, err)
}

func checkTypingResult(tool string, res procexec.Result, err error) error {
	if err != nil {
		return fmt.Errorf("%s failed: %w", tool, err)
	}
	if res.TimedOut {
		return fmt.Errorf("%s timed out after %v", tool, res.Elapsed.Round(time.Millisecond))
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s exited with code %d: %s", tool, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}
