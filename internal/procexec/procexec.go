// Package procexec runs external tools with a timeout and external
// cancellation, and makes sure the whole process tree is gone when a call
// returns.
package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ErrLaunchFailed is matched by every *LaunchError.
var ErrLaunchFailed = errors.New("process launch failed")

// LaunchError means no process ever ran: the binary is missing, not
// executable, or the pipes could not be set up.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

func (e *LaunchError) Is(target error) bool { return target == ErrLaunchFailed }

// Spec describes one invocation. Build it once per call and do not mutate it
// after handing it to Invoke.
type Spec struct {
	Path    string
	Args    []string
	Stdin   string
	Timeout time.Duration
	Dir     string
	Env     []string // appended to the current environment
}

func (s Spec) String() string {
	if len(s.Args) == 0 {
		return s.Path
	}
	return s.Path + " " + strings.Join(s.Args, " ")
}

// Result is the captured outcome of a process that actually ran.
type Result struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	Elapsed   time.Duration
	TimedOut  bool
	Cancelled bool
}

// Runner is the seam adapters depend on so tests can swap in fakes.
type Runner interface {
	Invoke(ctx context.Context, spec Spec) (Result, error)
}

// Invoker is the os/exec backed Runner.
type Invoker struct {
	// KillGrace bounds how long Invoke waits for output pipes to drain after
	// the process group has been killed.
	KillGrace time.Duration
}

func New() *Invoker {
	return &Invoker{KillGrace: 2 * time.Second}
}

// Invoke starts spec and blocks until the process exits, spec.Timeout
// elapses, or ctx is cancelled, whichever happens first. On timeout the
// result has TimedOut set and the error is nil. On cancellation the result
// has Cancelled set and the error wraps ctx.Err(). In every case the process
// group is killed before Invoke returns, so children spawned by the tool do
// not leak.
func (inv *Invoker) Invoke(ctx context.Context, spec Spec) (Result, error) {
	if spec.Path == "" {
		return Result{}, &LaunchError{Path: spec.Path, Err: errors.New("empty executable path")}
	}

	if err := ctx.Err(); err != nil {
		return Result{Cancelled: true, ExitCode: -1}, fmt.Errorf("%s cancelled before start: %w", spec.Path, err)
	}

	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	if spec.Stdin != "" {
		cmd.Stdin = strings.NewReader(spec.Stdin)
	}
	SetProcessGroup(cmd)
	cmd.WaitDelay = inv.grace()

	// Plain *os.File pipes keep cmd.Wait from blocking on grandchildren that
	// inherited stdout/stderr; we drain them ourselves after the group kill.
	outR, outW, err := os.Pipe()
	if err != nil {
		return Result{}, &LaunchError{Path: spec.Path, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return Result{}, &LaunchError{Path: spec.Path, Err: fmt.Errorf("stderr pipe: %w", err)}
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	start := time.Now()
	if err := cmd.Start(); err != nil {
		outR.Close()
		outW.Close()
		errR.Close()
		errW.Close()
		return Result{}, &LaunchError{Path: spec.Path, Err: err}
	}
	outW.Close()
	errW.Close()

	pid := cmd.Process.Pid
	defer KillProcessGroup(pid)

	var stdout, stderr bytes.Buffer
	var drain sync.WaitGroup
	drain.Add(2)
	go copyPipe(&drain, &stdout, outR)
	go copyPipe(&drain, &stderr, errR)

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var waitErr error
	var timedOut, cancelled bool
	select {
	case waitErr = <-waitCh:
	case <-runCtx.Done():
		select {
		case waitErr = <-waitCh:
			// exited on its own right at the deadline
		default:
			if ctx.Err() != nil {
				cancelled = true
			} else {
				timedOut = true
			}
			KillProcessGroup(pid)
			waitErr = <-waitCh
		}
	}

	// Whoever won the race, descendants may still hold the pipes open.
	KillProcessGroup(pid)
	if !waitTimeout(&drain, inv.grace()) {
		log.Printf("Invoker: output pipes of %s still open after %v, closing", spec.Path, inv.grace())
		outR.Close()
		errR.Close()
		drain.Wait()
	}

	result := Result{
		ExitCode:  exitCode(cmd, waitErr),
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Elapsed:   time.Since(start),
		TimedOut:  timedOut,
		Cancelled: cancelled,
	}

	if cancelled {
		return result, fmt.Errorf("%s cancelled: %w", spec.Path, ctx.Err())
	}
	return result, nil
}

func (inv *Invoker) grace() time.Duration {
	if inv.KillGrace <= 0 {
		return 2 * time.Second
	}
	return inv.KillGrace
}

func copyPipe(wg *sync.WaitGroup, dst *bytes.Buffer, src *os.File) {
	defer wg.Done()
	defer src.Close()
	_, _ = io.Copy(dst, src)
}

func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	if waitErr != nil {
		return -1
	}
	return 0
}
