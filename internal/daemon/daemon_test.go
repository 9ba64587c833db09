package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprdictate/internal/bus"
	"github.com/leonardotrapani/hyprdictate/internal/config"
	"github.com/leonardotrapani/hyprdictate/internal/history"
	"github.com/leonardotrapani/hyprdictate/internal/injection"
	"github.com/leonardotrapani/hyprdictate/internal/notify"
	"github.com/leonardotrapani/hyprdictate/internal/recording"
	"github.com/leonardotrapani/hyprdictate/internal/state"
	"github.com/leonardotrapani/hyprdictate/internal/testutil"
)

const transcriptJSON = `{"text":"hello world","language":"en","duration_sec":1.5}`

type fakeRecorder struct {
	dir string

	mu        sync.Mutex
	stopErr   error
	started   bool
	cancelled bool
}

func (r *fakeRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
	return nil
}

func (r *fakeRecorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopErr != nil {
		return "", r.stopErr
	}
	path := filepath.Join(r.dir, "dictation.wav")
	return path, os.WriteFile(path, []byte("RIFF"), 0o644)
}

func (r *fakeRecorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = true
}

func (r *fakeRecorder) wasCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

func (r *fakeRecorder) failStop(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopErr = err
}

type fakeInjector struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeInjector) Inject(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeInjector) got() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// eventNotifier records which notifications were sent.
type eventNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *eventNotifier) add(e string) {
	n.mu.Lock()
	n.events = append(n.events, e)
	n.mu.Unlock()
}

func (n *eventNotifier) has(e string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, got := range n.events {
		if got == e {
			return true
		}
	}
	return false
}

func (n *eventNotifier) RecordingStarted()      { n.add("recording") }
func (n *eventNotifier) Processing()            { n.add("processing") }
func (n *eventNotifier) PostProcessing()        { n.add("post-processing") }
func (n *eventNotifier) Completed(text string)  { n.add("completed:" + text) }
func (n *eventNotifier) NoSpeech()              { n.add("no-speech") }
func (n *eventNotifier) Failed(reason string)   { n.add("failed:" + reason) }
func (n *eventNotifier) Cancelled()             { n.add("cancelled") }
func (n *eventNotifier) Ignored(reason string)  { n.add("ignored") }
func (n *eventNotifier) Advisory(detail string) { n.add("advisory") }
func (n *eventNotifier) ConfigReloaded()        { n.add("reloaded") }

var _ notify.Notifier = (*eventNotifier)(nil)

type harness struct {
	d        *Daemon
	ep       bus.Endpoint
	rec      *fakeRecorder
	inj      *fakeInjector
	notifier *eventNotifier
	history  *history.Store
	errCh    chan error
}

// startDaemon runs a daemon whose transcription tool is the given script body.
func startDaemon(t *testing.T, toolBody string) *harness {
	t.Helper()
	return startDaemonWith(t, toolBody, nil)
}

// startDaemonWith lets the test adjust the config before the daemon loads it.
func startDaemonWith(t *testing.T, toolBody string, mutate func(cfg *config.Config, dir string)) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))

	tool := testutil.WriteScript(t, dir, "whisper-json", toolBody)

	cfg := config.DefaultConfig()
	cfg.Transcription.Executable = tool
	cfg.Transcription.Model = filepath.Join(dir, "model.bin")
	cfg.Notifications.Type = "none"
	if mutate != nil {
		mutate(cfg, dir)
	}
	cfgPath := filepath.Join(dir, "config.toml")
	if err := config.Save(cfg, cfgPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	mgr, err := config.NewManagerFromFile(cfgPath)
	if err != nil {
		t.Fatalf("NewManagerFromFile() error: %v", err)
	}

	store, err := history.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("history.Open() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	h := &harness{
		ep:       bus.Endpoint{Dir: filepath.Join(dir, "run")},
		rec:      &fakeRecorder{dir: dir},
		inj:      &fakeInjector{},
		notifier: &eventNotifier{},
		history:  store,
		errCh:    make(chan error, 1),
	}
	h.d, err = New(mgr, Options{
		Endpoint:    h.ep,
		Version:     "test",
		NewRecorder: func(*config.Config) (Recorder, error) { return h.rec, nil },
		NewInjector: func(*config.Config) (injection.Injector, error) { return h.inj, nil },
		Notifier:    h.notifier,
		History:     store,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	go func() { h.errCh <- h.d.Run() }()

	testutil.WaitForCondition(t, func() bool {
		_, err := h.ep.SendCommand(bus.CmdStatus)
		return err == nil
	}, 5*time.Second)

	t.Cleanup(func() {
		h.ep.SendCommand(bus.CmdQuit)
		select {
		case <-h.errCh:
		case <-time.After(5 * time.Second):
			t.Error("daemon did not exit within timeout")
		}
	})
	return h
}

func (h *harness) send(t *testing.T, cmd byte) string {
	t.Helper()
	out, err := h.ep.SendCommand(cmd)
	if err != nil {
		t.Fatalf("SendCommand(%c) failed: %v", cmd, err)
	}
	return out
}

func (h *harness) waitIdle(t *testing.T) {
	t.Helper()
	testutil.WaitForCondition(t, func() bool { return h.d.State() == state.Idle }, 5*time.Second)
}

func TestToggleDictation(t *testing.T) {
	h := startDaemon(t, "printf '%s' '"+transcriptJSON+"'\n")

	if out := h.send(t, bus.CmdToggle); out != "OK recording" {
		t.Fatalf("first toggle = %q", out)
	}
	if out := h.send(t, bus.CmdStatus); out != "STATUS state=recording" {
		t.Errorf("status while recording = %q", out)
	}

	if out := h.send(t, bus.CmdToggle); out != "OK processing" {
		t.Fatalf("second toggle = %q", out)
	}

	testutil.WaitForCondition(t, func() bool { return len(h.inj.got()) == 1 }, 5*time.Second)
	h.waitIdle(t)

	if got := h.inj.got()[0]; got != "hello world" {
		t.Errorf("injected %q", got)
	}
	testutil.WaitForCondition(t, func() bool { return h.notifier.has("completed:hello world") }, 2*time.Second)
	testutil.WaitForCondition(t, func() bool {
		return h.notifier.has("recording") && h.notifier.has("processing")
	}, 2*time.Second)

	entries, err := h.history.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(entries) != 1 || entries[0].Text != "hello world" || entries[0].Language != "en" {
		t.Errorf("history = %+v", entries)
	}

	if _, err := os.Stat(filepath.Join(h.rec.dir, "dictation.wav")); !os.IsNotExist(err) {
		t.Error("recording should be removed after processing")
	}
}

func TestToggleWhileProcessingIsRefused(t *testing.T) {
	h := startDaemon(t, "sleep 30\n")

	h.send(t, bus.CmdToggle)
	if out := h.send(t, bus.CmdToggle); out != "OK processing" {
		t.Fatalf("stop toggle = %q", out)
	}
	testutil.WaitForCondition(t, func() bool { return h.d.State() == state.Processing }, 5*time.Second)

	if out := h.send(t, bus.CmdToggle); out != "ERR busy" {
		t.Errorf("toggle while processing = %q, want ERR busy", out)
	}
	testutil.WaitForCondition(t, func() bool { return h.notifier.has("ignored") }, 2*time.Second)
	if h.d.State() != state.Processing {
		t.Errorf("refused toggle must not change state, got %s", h.d.State())
	}

	if out := h.send(t, bus.CmdCancel); out != "OK cancelling" {
		t.Errorf("cancel while processing = %q", out)
	}
	h.waitIdle(t)
	testutil.WaitForCondition(t, func() bool { return h.notifier.has("cancelled") }, 2*time.Second)
	if len(h.inj.got()) != 0 {
		t.Error("cancelled dictation must not be injected")
	}
}

func TestCancelDuringPostProcessingIsNotCountedAsFallback(t *testing.T) {
	h := startDaemonWith(t, "printf '%s' '"+transcriptJSON+"'\n", func(cfg *config.Config, dir string) {
		model := filepath.Join(dir, "model.gguf")
		if err := os.WriteFile(model, []byte("gguf"), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg.PostProcessing.Enabled = true
		cfg.PostProcessing.Model = model
		cfg.PostProcessing.GPU = false
		cfg.PostProcessing.Timeout = 30 * time.Second
		cfg.PostProcessing.Executable = testutil.WriteScript(t, dir, "llama-cli", "cat >/dev/null\nsleep 30\n")
		cfg.Notifications.FailureAdvisoryThreshold = 1
	})

	h.send(t, bus.CmdToggle)
	h.send(t, bus.CmdToggle)
	testutil.WaitForCondition(t, func() bool { return h.d.State() == state.PostProcessing }, 5*time.Second)

	if out := h.send(t, bus.CmdCancel); out != "OK cancelling" {
		t.Fatalf("cancel while post-processing = %q", out)
	}
	h.waitIdle(t)

	testutil.WaitForCondition(t, func() bool { return h.notifier.has("completed:hello world") }, 2*time.Second)
	if n := h.d.tracker.Consecutive(); n != 0 {
		t.Errorf("fallback streak after a cancel = %d, want 0", n)
	}
	if h.notifier.has("advisory") {
		t.Error("a cancelled run must not raise the post-processing advisory")
	}
}

func TestCancelWhileRecording(t *testing.T) {
	h := startDaemon(t, "printf '%s' '"+transcriptJSON+"'\n")

	h.send(t, bus.CmdToggle)
	if out := h.send(t, bus.CmdCancel); out != "OK cancelled" {
		t.Fatalf("cancel = %q", out)
	}
	if h.d.State() != state.Idle {
		t.Errorf("state after cancel = %s", h.d.State())
	}
	if !h.rec.wasCancelled() {
		t.Error("recorder should be cancelled")
	}
	testutil.WaitForCondition(t, func() bool { return h.notifier.has("cancelled") }, 2*time.Second)
	if h.notifier.has("processing") {
		t.Error("discarding a recording must not announce processing")
	}

	if out := h.send(t, bus.CmdCancel); out != "OK idle" {
		t.Errorf("cancel while idle = %q", out)
	}
}

func TestTooShortRecording(t *testing.T) {
	h := startDaemon(t, "printf '%s' '"+transcriptJSON+"'\n")
	h.rec.failStop(recording.ErrTooShort)

	h.send(t, bus.CmdToggle)
	if out := h.send(t, bus.CmdToggle); out != "OK discarded" {
		t.Fatalf("stop toggle = %q", out)
	}
	h.waitIdle(t)
	testutil.WaitForCondition(t, func() bool { return h.notifier.has("no-speech") }, 2*time.Second)
}

func TestTranscriptionFailureNotifies(t *testing.T) {
	h := startDaemon(t, "echo 'model missing' >&2\nexit 2\n")

	h.send(t, bus.CmdToggle)
	h.send(t, bus.CmdToggle)
	h.waitIdle(t)
	testutil.WaitForCondition(t, func() bool {
		return h.notifier.has("failed:transcription model not found")
	}, 5*time.Second)
	if len(h.inj.got()) != 0 {
		t.Error("failed dictation must not be injected")
	}
}

func TestVersionAndUnknownCommand(t *testing.T) {
	h := startDaemon(t, "exit 0\n")

	if out := h.send(t, bus.CmdVersion); out != "STATUS proto="+bus.ProtoVer+" version=test" {
		t.Errorf("version = %q", out)
	}
	if out := h.send(t, 'x'); !strings.HasPrefix(out, "ERR unknown=") {
		t.Errorf("unknown command reply = %q", out)
	}
}

func TestSecondDaemonRefused(t *testing.T) {
	h := startDaemon(t, "exit 0\n")

	mgr, err := config.NewManagerFromFile(filepath.Join(h.rec.dir, "config.toml"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := New(mgr, Options{Endpoint: h.ep, Notifier: notify.Nop{}})
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Run(); !errors.Is(err, bus.ErrDaemonRunning) {
		t.Errorf("second Run() error = %v, want ErrDaemonRunning", err)
	}
}

func TestQuitRemovesPidFile(t *testing.T) {
	h := startDaemon(t, "exit 0\n")

	if out := h.send(t, bus.CmdQuit); out != "OK quitting" {
		t.Fatalf("quit = %q", out)
	}
	select {
	case err := <-h.errCh:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not exit")
	}
	h.errCh <- nil // let cleanup finish

	if _, err := os.Stat(h.ep.PidPath()); !os.IsNotExist(err) {
		t.Error("pid file should be removed on exit")
	}
}
