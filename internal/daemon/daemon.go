// Package daemon is the long-running side of hyprdictate: it owns the state
// machine, answers control commands and fans pipeline signals out to the
// clipboard, history and notifications.
package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/leonardotrapani/hyprdictate/internal/bus"
	"github.com/leonardotrapani/hyprdictate/internal/config"
	"github.com/leonardotrapani/hyprdictate/internal/glossary"
	"github.com/leonardotrapani/hyprdictate/internal/history"
	"github.com/leonardotrapani/hyprdictate/internal/injection"
	"github.com/leonardotrapani/hyprdictate/internal/notify"
	"github.com/leonardotrapani/hyprdictate/internal/pipeline"
	"github.com/leonardotrapani/hyprdictate/internal/procexec"
	"github.com/leonardotrapani/hyprdictate/internal/recording"
	"github.com/leonardotrapani/hyprdictate/internal/state"
	"github.com/leonardotrapani/hyprdictate/internal/transcriber"
)

// Recorder captures one dictation.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() (string, error)
	Cancel()
}

type Options struct {
	Endpoint bus.Endpoint
	Version  string
	Runner   procexec.Runner

	// NewRecorder builds the recorder for one dictation. Defaults to pw-record.
	NewRecorder func(*config.Config) (Recorder, error)
	// NewInjector builds the output chain for one dictation.
	NewInjector func(*config.Config) (injection.Injector, error)
	// Notifier replaces the configured notifier.
	Notifier notify.Notifier
	// History replaces the configured history store.
	History *history.Store
}

// run is one in-flight pipeline execution.
type run struct {
	cancel context.CancelFunc
}

type Daemon struct {
	mu       sync.Mutex // guards recorder, current, glossary and history
	recorder Recorder
	current  *run
	glossary *glossary.Store
	history  *history.Store

	cfgMgr   *config.Manager
	opts     Options
	orch     *pipeline.Orchestrator
	notifier *notify.Swappable
	tracker  *notify.FallbackTracker

	// runCfg is the configuration snapshot of the current dictation.
	runCfg atomic.Pointer[config.Config]
	// discarding suppresses progress notifications while a recording is thrown away.
	discarding atomic.Bool
	runs       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfgMgr *config.Manager, opts Options) (*Daemon, error) {
	if cfgMgr == nil {
		return nil, fmt.Errorf("config manager is required")
	}
	if opts.Endpoint.Dir == "" {
		ep, err := bus.DefaultEndpoint()
		if err != nil {
			return nil, err
		}
		opts.Endpoint = ep
	}
	if opts.Runner == nil {
		opts.Runner = procexec.New()
	}
	if opts.NewRecorder == nil {
		opts.NewRecorder = defaultRecorder
	}
	if opts.NewInjector == nil {
		runner := opts.Runner
		opts.NewInjector = func(cfg *config.Config) (injection.Injector, error) {
			return injection.NewInjector(injection.Config{
				Backends: cfg.Output.Backends,
				Timeout:  cfg.Output.WtypeTimeout,
			}, runner)
		}
	}

	cfg := cfgMgr.GetConfig()
	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		cfgMgr:   cfgMgr,
		opts:     opts,
		notifier: notify.NewSwappable(notifierFor(cfg, opts.Notifier)),
		history:  opts.History,
		ctx:      ctx,
		cancel:   cancel,
	}
	d.tracker = notify.NewFallbackTracker(d.notifier, cfg.Notifications.FailureAdvisoryThreshold)
	d.runCfg.Store(cfg)

	gs, err := glossary.NewStore(cfg.PostProcessing.GlossaryFile)
	if err != nil {
		log.Printf("Daemon: glossary disabled until the file is fixed: %v", err)
	}
	d.glossary = gs

	orch, err := pipeline.New(state.New(), pipeline.Options{
		Transcriber:           transcriber.NewAdapter(opts.Runner),
		PostProcessor:         dynamicProcessor{d},
		Sink:                  d,
		TranscriptionRequest:  func() transcriber.Request { return d.runConfig().TranscriptionRequest() },
		PostProcessingEnabled: func() bool { return d.runConfig().IsPostProcessingEnabled() },
		Glossary:              d.currentGlossary,
	})
	if err != nil {
		cancel()
		return nil, err
	}
	orch.Subscribe(d.onTransition)
	d.orch = orch

	cfgMgr.OnReload(d.applyConfig)
	return d, nil
}

func notifierFor(cfg *config.Config, override notify.Notifier) notify.Notifier {
	if override != nil {
		return override
	}
	return notify.New(cfg.NotifierType(), cfg.Notifications.Messages.Resolve())
}

func defaultRecorder(cfg *config.Config) (Recorder, error) {
	dir, err := cfg.RecordingDirectory()
	if err != nil {
		return nil, err
	}
	return recording.NewRecorder(recording.Config{
		Command:     "pw-record",
		SampleRate:  cfg.Recording.SampleRate,
		Channels:    cfg.Recording.Channels,
		Device:      cfg.Recording.Device,
		MaxDuration: cfg.Recording.Timeout,
		MinDuration: cfg.Recording.MinDuration,
		Directory:   dir,
	}), nil
}

func (d *Daemon) runConfig() *config.Config {
	return d.runCfg.Load()
}

// State is the pipeline state right now.
func (d *Daemon) State() state.AppState {
	return d.orch.State()
}

func (d *Daemon) Run() error {
	ep := d.opts.Endpoint
	if err := ep.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := ep.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := ep.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer ep.RemovePidFile()

	if err := d.openHistory(); err != nil {
		log.Printf("Daemon: history disabled: %v", err)
	}
	if err := d.cfgMgr.StartWatching(d.ctx); err != nil {
		log.Printf("Daemon: config hot reload disabled: %v", err)
	}
	d.mu.Lock()
	if err := d.glossary.Watch(d.ctx); err != nil {
		log.Printf("Daemon: glossary hot reload disabled: %v", err)
	}
	d.mu.Unlock()
	defer d.shutdown()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, shutting down gracefully", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	// Close the listener when context is done
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Printf("Daemon started, listening on %s", ep.SockPath())

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("Shutdown requested")
				return nil
			}
			log.Printf("Accept error: %v", err)
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

// Stop asks a running daemon to shut down.
func (d *Daemon) Stop() {
	d.cancel()
}

func (d *Daemon) openHistory() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cfg := d.cfgMgr.GetConfig()
	if d.history != nil || !cfg.Output.History {
		return nil
	}
	path, err := cfg.HistoryFile()
	if err != nil {
		return err
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	d.history = store
	return nil
}

// shutdown discards any recording, cancels the in-flight run through its
// context and waits for it to emit its signal.
func (d *Daemon) shutdown() {
	d.cancel()

	d.mu.Lock()
	if d.recorder != nil {
		d.recorder.Cancel()
		d.recorder = nil
		d.abortRecording()
	}
	if d.current != nil {
		d.current.cancel()
	}
	d.mu.Unlock()

	d.runs.Wait()

	d.cfgMgr.Stop()
	d.mu.Lock()
	d.glossary.Stop()
	if d.history != nil && d.opts.History == nil {
		d.history.Close()
	}
	d.mu.Unlock()
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Printf("Client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	cmd := line[0]

	switch cmd {
	case bus.CmdToggle:
		fmt.Fprintf(c, "%s\n", d.toggle())
	case bus.CmdCancel:
		fmt.Fprintf(c, "%s\n", d.cancelDictation())
	case bus.CmdStatus:
		fmt.Fprintf(c, "STATUS state=%s\n", d.State())
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s version=%s\n", bus.ProtoVer, d.opts.Version)
	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()
	default:
		log.Printf("Unknown command: %c", cmd)
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}

// toggle starts a recording when idle and hands it to the pipeline when
// recording. While a dictation is being processed the request is refused.
func (d *Daemon) toggle() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.orch.State() {
	case state.Idle:
		return d.startRecording()
	case state.Recording:
		if d.recorder == nil {
			// stop already handed the audio to the pipeline
			return d.busy()
		}
		return d.stopRecording()
	default:
		return d.busy()
	}
}

func (d *Daemon) busy() string {
	log.Printf("Daemon: toggle ignored, dictation in progress (%s)", d.orch.State())
	go d.notifier.Ignored("")
	return "ERR busy"
}

func (d *Daemon) startRecording() string {
	cfg := d.cfgMgr.GetConfig()
	rec, err := d.opts.NewRecorder(cfg)
	if err != nil {
		go d.notifier.Failed(fmt.Sprintf("recording: %v", err))
		return fmt.Sprintf("ERR record: %v", err)
	}
	if err := rec.Start(d.ctx); err != nil {
		log.Printf("Daemon: failed to start recording: %v", err)
		go d.notifier.Failed(fmt.Sprintf("recording: %v", err))
		return fmt.Sprintf("ERR record: %v", err)
	}
	if err := d.orch.BeginRecording(); err != nil {
		rec.Cancel()
		return fmt.Sprintf("ERR %v", err)
	}

	d.recorder = rec
	d.runCfg.Store(cfg)
	return "OK recording"
}

func (d *Daemon) stopRecording() string {
	rec := d.recorder
	d.recorder = nil

	path, err := rec.Stop()
	if err != nil {
		d.abortRecording()
		if errors.Is(err, recording.ErrTooShort) {
			log.Printf("Daemon: recording discarded: %v", err)
			go d.notifier.NoSpeech()
			return "OK discarded"
		}
		log.Printf("Daemon: failed to stop recording: %v", err)
		go d.notifier.Failed(fmt.Sprintf("recording: %v", err))
		return fmt.Sprintf("ERR record: %v", err)
	}

	runCtx, cancel := context.WithCancel(d.ctx)
	r := &run{cancel: cancel}
	d.current = r
	d.runs.Add(1)
	go d.process(runCtx, r, path)
	return "OK processing"
}

func (d *Daemon) process(ctx context.Context, r *run, audioPath string) {
	defer d.runs.Done()
	defer r.cancel()

	if err := d.orch.Process(ctx, audioPath); err != nil {
		log.Printf("Daemon: pipeline rejected recording: %v", err)
	}

	if !d.runConfig().Recording.Keep {
		if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
			log.Printf("Daemon: failed to remove %s: %v", audioPath, err)
		}
	}

	d.mu.Lock()
	if d.current == r {
		d.current = nil
	}
	d.mu.Unlock()
}

// cancelDictation discards a recording or cancels the running pipeline.
func (d *Daemon) cancelDictation() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.recorder != nil:
		d.recorder.Cancel()
		d.recorder = nil
		d.abortRecording()
		go d.notifier.Cancelled()
		return "OK cancelled"
	case d.current != nil:
		d.current.cancel()
		return "OK cancelling"
	default:
		return "OK idle"
	}
}

func (d *Daemon) abortRecording() {
	d.discarding.Store(true)
	defer d.discarding.Store(false)
	if err := d.orch.AbortRecording(); err != nil {
		log.Printf("Daemon: %v", err)
	}
}

func (d *Daemon) onTransition(tr state.Transition) {
	if d.discarding.Load() {
		return
	}
	switch tr.To {
	case state.Recording:
		go d.notifier.RecordingStarted()
	case state.Processing:
		go d.notifier.Processing()
	case state.PostProcessing:
		go d.notifier.PostProcessing()
	}
}

func (d *Daemon) currentGlossary() glossary.Map {
	d.mu.Lock()
	gs := d.glossary
	d.mu.Unlock()
	return gs.Current()
}

// applyConfig runs after every successful config reload. The next dictation
// picks up the rest of the configuration through its snapshot.
func (d *Daemon) applyConfig(cfg *config.Config) {
	d.notifier.Set(notifierFor(cfg, d.opts.Notifier))
	d.tracker.SetThreshold(cfg.Notifications.FailureAdvisoryThreshold)

	d.mu.Lock()
	if d.glossary.Path() != cfg.PostProcessing.GlossaryFile {
		d.glossary.Stop()
		gs, err := glossary.NewStore(cfg.PostProcessing.GlossaryFile)
		if err != nil {
			log.Printf("Daemon: glossary %s: %v", cfg.PostProcessing.GlossaryFile, err)
		}
		if err := gs.Watch(d.ctx); err != nil {
			log.Printf("Daemon: glossary hot reload disabled: %v", err)
		}
		d.glossary = gs
	}
	d.mu.Unlock()

	go d.notifier.ConfigReloaded()
}
