package pipeline

import (
	"time"

	"github.com/leonardotrapani/hyprdictate/internal/llm"
	"github.com/leonardotrapani/hyprdictate/internal/transcriber"
)

// Timings are per-stage wall clock durations of one run.
type Timings struct {
	Transcription  time.Duration
	PostProcessing time.Duration
	Total          time.Duration
}

// DictationCompleted is emitted once a run produced text.
type DictationCompleted struct {
	RunID string
	// Text is what the user should receive: the post-processed text, or the
	// transcript when post-processing was off or fell back.
	Text       string
	Transcript string
	Language   string
	Mode       llm.Mode
	// PostProcessed is false when post-processing was disabled for the run.
	PostProcessed bool
	UsedFallback  bool
	// Cancelled is set when the run's context ended during post-processing.
	Cancelled     bool
	GPUUsed       bool
	AudioDuration time.Duration
	Timings       Timings
}

// FailureKind names why a run produced no text.
type FailureKind string

// NoSpeech means the recording transcribed to nothing.
const NoSpeech FailureKind = "no-speech"

// TranscriptionFailure converts a transcription error kind.
func TranscriptionFailure(k transcriber.Kind) FailureKind {
	return FailureKind(k.String())
}

// DictationFailed is emitted when a run produced no text.
type DictationFailed struct {
	RunID   string
	Kind    FailureKind
	Err     error
	Timings Timings
}

func (f DictationFailed) Cancelled() bool {
	return f.Kind == TranscriptionFailure(transcriber.KindCancelled)
}

// Sink consumes the single signal every run emits. Signals are delivered on
// the goroutine that ran the pipeline, after the state is back to Idle.
type Sink interface {
	DictationCompleted(DictationCompleted)
	DictationFailed(DictationFailed)
}

// MultiSink delivers each signal to every sink in order.
type MultiSink []Sink

func (m MultiSink) DictationCompleted(s DictationCompleted) {
	for _, sink := range m {
		sink.DictationCompleted(s)
	}
}

func (m MultiSink) DictationFailed(s DictationFailed) {
	for _, sink := range m {
		sink.DictationFailed(s)
	}
}

// SinkFuncs adapts plain functions to Sink. Nil fields are skipped.
type SinkFuncs struct {
	Completed func(DictationCompleted)
	Failed    func(DictationFailed)
}

func (f SinkFuncs) DictationCompleted(s DictationCompleted) {
	if f.Completed != nil {
		f.Completed(s)
	}
}

func (f SinkFuncs) DictationFailed(s DictationFailed) {
	if f.Failed != nil {
		f.Failed(s)
	}
}
