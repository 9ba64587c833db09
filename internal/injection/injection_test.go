package injection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprdictate/internal/procexec"
	"github.com/leonardotrapani/hyprdictate/internal/testutil"
)

type fakeBackend struct {
	name      string
	available error
	err       error
	got       []string
}

func (f *fakeBackend) Name() string     { return f.name }
func (f *fakeBackend) Available() error { return f.available }
func (f *fakeBackend) Inject(ctx context.Context, text string, timeout time.Duration) error {
	f.got = append(f.got, text)
	return f.err
}

type recordingRunner struct {
	specs  []procexec.Spec
	result procexec.Result
	err    error
}

func (r *recordingRunner) Invoke(ctx context.Context, spec procexec.Spec) (procexec.Result, error) {
	r.specs = append(r.specs, spec)
	return r.result, r.err
}

func TestNewInjector(t *testing.T) {
	tests := []struct {
		name     string
		backends []string
		wantErr  bool
	}{
		{name: "clipboard", backends: []string{"clipboard"}},
		{name: "chain", backends: []string{"wtype", "ydotool", "clipboard"}},
		{name: "unknown backend", backends: []string{"xdotool"}, wantErr: true},
		{name: "empty", backends: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inj, err := NewInjector(Config{Backends: tt.backends}, nil)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewInjector(%v) expected error", tt.backends)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewInjector(%v) error: %v", tt.backends, err)
			}
			if got := len(inj.(*injector).backends); got != len(tt.backends) {
				t.Errorf("got %d backends, want %d", got, len(tt.backends))
			}
			if inj.(*injector).config.Timeout != DefaultConfig().Timeout {
				t.Errorf("zero timeout should default to %v", DefaultConfig().Timeout)
			}
		})
	}
}

func TestInjector_Inject(t *testing.T) {
	t.Run("first backend wins", func(t *testing.T) {
		first := &fakeBackend{name: "first"}
		second := &fakeBackend{name: "second"}
		inj := newInjectorWithBackends(DefaultConfig(), first, second)

		if err := inj.Inject(context.Background(), "hello"); err != nil {
			t.Fatalf("Inject() error: %v", err)
		}
		if len(first.got) != 1 || len(second.got) != 0 {
			t.Errorf("first=%v second=%v", first.got, second.got)
		}
	})

	t.Run("falls back on failure", func(t *testing.T) {
		typing := &fakeBackend{name: "wtype", err: errors.New("no focused window")}
		clip := &fakeBackend{name: "clipboard"}
		inj := newInjectorWithBackends(DefaultConfig(), typing, clip)

		if err := inj.Inject(context.Background(), "hello"); err != nil {
			t.Fatalf("Inject() error: %v", err)
		}
		if len(clip.got) != 1 {
			t.Error("clipboard backend should receive the text after wtype failed")
		}
	})

	t.Run("skips unavailable backends", func(t *testing.T) {
		missing := &fakeBackend{name: "ydotool", available: errors.New("not installed")}
		clip := &fakeBackend{name: "clipboard"}
		inj := newInjectorWithBackends(DefaultConfig(), missing, clip)

		if err := inj.Inject(context.Background(), "hello"); err != nil {
			t.Fatalf("Inject() error: %v", err)
		}
		if len(missing.got) != 0 {
			t.Error("unavailable backend must not be used")
		}
	})

	t.Run("all fail", func(t *testing.T) {
		a := &fakeBackend{name: "a", err: errors.New("boom a")}
		b := &fakeBackend{name: "b", available: errors.New("boom b")}
		inj := newInjectorWithBackends(DefaultConfig(), a, b)

		err := inj.Inject(context.Background(), "hello")
		if err == nil {
			t.Fatal("Inject() expected error")
		}
		if !strings.Contains(err.Error(), "boom a") || !strings.Contains(err.Error(), "boom b") {
			t.Errorf("error should mention every backend: %v", err)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		clip := &fakeBackend{name: "clipboard"}
		inj := newInjectorWithBackends(DefaultConfig(), clip)
		if err := inj.Inject(context.Background(), ""); err == nil {
			t.Error("Inject() should reject empty text")
		}
	})
}

func TestClipboardBackend(t *testing.T) {
	var written string
	b := &clipboardBackend{
		unsupported: func() bool { return false },
		write:       func(s string) error { written = s; return nil },
	}

	if err := b.Available(); err != nil {
		t.Fatalf("Available() error: %v", err)
	}
	if err := b.Inject(context.Background(), "copied", time.Second); err != nil {
		t.Fatalf("Inject() error: %v", err)
	}
	if written != "copied" {
		t.Errorf("clipboard = %q", written)
	}

	t.Run("unsupported", func(t *testing.T) {
		b := &clipboardBackend{unsupported: func() bool { return true }}
		if err := b.Available(); err == nil {
			t.Error("Available() should fail without clipboard utilities")
		}
	})

	t.Run("write hangs", func(t *testing.T) {
		block := make(chan struct{})
		defer close(block)
		b := &clipboardBackend{
			unsupported: func() bool { return false },
			write:       func(string) error { <-block; return nil },
		}
		err := b.Inject(context.Background(), "x", 50*time.Millisecond)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Inject() error = %v, want deadline exceeded", err)
		}
	})
}

func TestWtypeBackend(t *testing.T) {
	runner := &recordingRunner{}
	b := NewWtypeBackend(runner)

	if err := b.Inject(context.Background(), "-dash first", 2*time.Second); err != nil {
		t.Fatalf("Inject() error: %v", err)
	}
	if len(runner.specs) != 1 {
		t.Fatalf("expected one invocation, got %d", len(runner.specs))
	}
	spec := runner.specs[0]
	if spec.Path != "wtype" || len(spec.Args) != 1 || spec.Args[0] != "-" {
		t.Errorf("unexpected spec: %+v", spec)
	}
	if spec.Stdin != "-dash first" || spec.Timeout != 2*time.Second {
		t.Errorf("text must go through stdin with the timeout: %+v", spec)
	}

	tests := []struct {
		name   string
		result procexec.Result
		err    error
		want   string
	}{
		{name: "non-zero exit", result: procexec.Result{ExitCode: 1, Stderr: "Compositor does not support the virtual keyboard protocol\n"}, want: "virtual keyboard"},
		{name: "timeout", result: procexec.Result{TimedOut: true, ExitCode: -1}, want: "timed out"},
		{name: "launch failure", err: &procexec.LaunchError{Path: "wtype", Err: errors.New("not found")}, want: "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewWtypeBackend(&recordingRunner{result: tt.result, err: tt.err})
			err := b.Inject(context.Background(), "text", time.Second)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Inject() error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestWtypeBackend_RealProcess(t *testing.T) {
	dir := t.TempDir()
	script, argsFile, stdinFile := testutil.ArgsRecorder(t, dir, "wtype", "", 0)

	b := &wtypeBackend{runner: procexec.New(), path: script}
	if err := b.Available(); err != nil {
		t.Fatalf("Available() error: %v", err)
	}
	if err := b.Inject(context.Background(), "typed text", 5*time.Second); err != nil {
		t.Fatalf("Inject() error: %v", err)
	}

	if args := testutil.ReadLines(t, argsFile); len(args) != 1 || args[0] != "-" {
		t.Errorf("args = %v", args)
	}
	if stdin := testutil.ReadLines(t, stdinFile); len(stdin) != 1 || stdin[0] != "typed text" {
		t.Errorf("stdin = %v", stdin)
	}
}

func TestYdotoolBackend(t *testing.T) {
	runner := &recordingRunner{}
	b := NewYdotoolBackend(runner)
	if b.Name() != "ydotool" {
		t.Errorf("Name() = %q", b.Name())
	}

	if err := b.Inject(context.Background(), "hello", time.Second); err != nil {
		t.Fatalf("Inject() error: %v", err)
	}
	want := []string{"type", "--", "hello"}
	got := runner.specs[0].Args
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("args = %v, want %v", got, want)
	}

	t.Run("socket from env", func(t *testing.T) {
		sock := filepath.Join(t.TempDir(), "ydotool.sock")
		if err := os.WriteFile(sock, nil, 0600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("YDOTOOL_SOCKET", sock)
		if got := (&ydotoolBackend{}).getSocketPath(); got != sock {
			t.Errorf("getSocketPath() = %q, want %q", got, sock)
		}
	})
}
