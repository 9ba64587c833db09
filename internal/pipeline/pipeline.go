// Package pipeline drives one dictation from a finished recording to a
// single completion or failure signal, keeping the state machine in step.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leonardotrapani/hyprdictate/internal/glossary"
	"github.com/leonardotrapani/hyprdictate/internal/llm"
	"github.com/leonardotrapani/hyprdictate/internal/state"
	"github.com/leonardotrapani/hyprdictate/internal/transcriber"
)

var (
	// ErrBusy rejects a request while another dictation is in flight.
	ErrBusy = errors.New("pipeline busy")
	// ErrNotRecording rejects an abort when nothing is being recorded.
	ErrNotRecording = errors.New("not recording")
)

type Options struct {
	Transcriber   transcriber.Transcriber
	PostProcessor llm.Processor
	Sink          Sink

	// TranscriptionRequest returns the request template for the next run.
	// AudioPath is filled in by the orchestrator.
	TranscriptionRequest func() transcriber.Request
	// PostProcessingEnabled is consulted once per run. Nil means disabled.
	PostProcessingEnabled func() bool
	// Glossary returns the mapping handed to post-processing. Nil means none.
	Glossary func() glossary.Map
}

// Orchestrator is the only caller of the state machine's TransitionTo.
type Orchestrator struct {
	mu      sync.Mutex
	machine *state.Machine
	opts    Options
}

func New(machine *state.Machine, opts Options) (*Orchestrator, error) {
	if machine == nil {
		return nil, fmt.Errorf("state machine is required")
	}
	if opts.Transcriber == nil {
		return nil, fmt.Errorf("transcriber is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if opts.TranscriptionRequest == nil {
		opts.TranscriptionRequest = func() transcriber.Request { return transcriber.Request{} }
	}
	return &Orchestrator{machine: machine, opts: opts}, nil
}

func (o *Orchestrator) State() state.AppState {
	return o.machine.Current()
}

// Subscribe registers fn for every state transition of the pipeline. fn runs
// synchronously and must not call back into the orchestrator.
func (o *Orchestrator) Subscribe(fn func(state.Transition)) {
	o.machine.Subscribe(fn)
}

// BeginRecording moves Idle to Recording.
func (o *Orchestrator) BeginRecording() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if cur := o.machine.Current(); cur != state.Idle {
		return fmt.Errorf("%w: %s", ErrBusy, cur)
	}
	return o.machine.TransitionTo(state.Recording)
}

// AbortRecording discards the current recording and returns to Idle without
// emitting a signal.
func (o *Orchestrator) AbortRecording() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if cur := o.machine.Current(); cur != state.Recording {
		return fmt.Errorf("%w: %s", ErrNotRecording, cur)
	}
	if err := o.machine.TransitionTo(state.Processing); err != nil {
		return err
	}
	log.Printf("Pipeline: recording aborted")
	return o.machine.TransitionTo(state.Idle)
}

// Process runs transcription and optional post-processing for audioPath and
// emits exactly one signal. It must be called from Recording, or from Idle
// for one-shot use; any other state yields ErrBusy and nothing runs.
func (o *Orchestrator) Process(ctx context.Context, audioPath string) error {
	if err := o.enterProcessing(); err != nil {
		return err
	}

	runID := uuid.NewString()
	start := time.Now()
	log.Printf("Pipeline: run %s processing %s", runID, audioPath)

	req := o.opts.TranscriptionRequest()
	req.AudioPath = audioPath

	result, err := o.opts.Transcriber.Transcribe(ctx, req)
	timings := Timings{Transcription: time.Since(start)}

	if err != nil {
		timings.Total = time.Since(start)
		o.transition(state.Idle)
		log.Printf("Pipeline: run %s transcription failed: %v", runID, err)
		o.opts.Sink.DictationFailed(DictationFailed{
			RunID:   runID,
			Kind:    TranscriptionFailure(transcriber.KindOf(err)),
			Err:     err,
			Timings: timings,
		})
		return nil
	}

	if result.Text == "" {
		timings.Total = time.Since(start)
		o.transition(state.Idle)
		log.Printf("Pipeline: run %s detected no speech", runID)
		o.opts.Sink.DictationFailed(DictationFailed{RunID: runID, Kind: NoSpeech, Timings: timings})
		return nil
	}

	completed := DictationCompleted{
		RunID:         runID,
		Text:          result.Text,
		Transcript:    result.Text,
		Language:      result.Language,
		Mode:          llm.Plain,
		AudioDuration: result.Duration(),
	}

	if o.postProcessingEnabled() {
		o.transition(state.PostProcessing)

		ppStart := time.Now()
		outcome := o.opts.PostProcessor.Process(ctx, result.Text, o.currentGlossary())
		timings.PostProcessing = time.Since(ppStart)

		completed.Text = outcome.Text
		completed.Mode = outcome.Mode
		completed.PostProcessed = true
		completed.UsedFallback = !outcome.Succeeded
		completed.GPUUsed = outcome.GPUUsed
		completed.Cancelled = ctx.Err() != nil
	}

	timings.Total = time.Since(start)
	completed.Timings = timings
	o.transition(state.Idle)

	log.Printf("Pipeline: run %s completed in %v (mode %s, fallback %v): %q",
		runID, timings.Total, completed.Mode, completed.UsedFallback, completed.Text)
	o.opts.Sink.DictationCompleted(completed)
	return nil
}

func (o *Orchestrator) enterProcessing() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch cur := o.machine.Current(); cur {
	case state.Idle:
		if err := o.machine.TransitionTo(state.Recording); err != nil {
			return err
		}
	case state.Recording:
	default:
		return fmt.Errorf("%w: %s", ErrBusy, cur)
	}
	return o.machine.TransitionTo(state.Processing)
}

func (o *Orchestrator) transition(target state.AppState) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.machine.TransitionTo(target); err != nil {
		log.Printf("Pipeline: %v", err)
	}
}

func (o *Orchestrator) postProcessingEnabled() bool {
	if o.opts.PostProcessor == nil || o.opts.PostProcessingEnabled == nil {
		return false
	}
	return o.opts.PostProcessingEnabled()
}

func (o *Orchestrator) currentGlossary() glossary.Map {
	if o.opts.Glossary == nil {
		return glossary.Map{}
	}
	return o.opts.Glossary()
}
