package daemon

import (
	"context"
	"fmt"
	"log"

	"github.com/leonardotrapani/hyprdictate/internal/glossary"
	"github.com/leonardotrapani/hyprdictate/internal/history"
	"github.com/leonardotrapani/hyprdictate/internal/llm"
	"github.com/leonardotrapani/hyprdictate/internal/pipeline"
	"github.com/leonardotrapani/hyprdictate/internal/transcriber"
)

// dynamicProcessor builds a post-processing adapter from the run's config
// snapshot, so edits to the model or timeout apply to the next dictation.
type dynamicProcessor struct {
	d *Daemon
}

func (p dynamicProcessor) Process(ctx context.Context, transcript string, g glossary.Map) llm.Outcome {
	cfg := p.d.runConfig()
	return llm.NewAdapter(p.d.opts.Runner, cfg.ToLLMConfig()).Process(ctx, transcript, g)
}

// DictationCompleted delivers the text, records it and tells the user.
func (d *Daemon) DictationCompleted(s pipeline.DictationCompleted) {
	cfg := d.runConfig()

	delivered := true
	inj, err := d.opts.NewInjector(cfg)
	if err == nil {
		err = inj.Inject(d.ctx, s.Text)
	}
	if err != nil {
		delivered = false
		log.Printf("Daemon: output failed for run %s: %v", s.RunID, err)
		d.notifier.Failed(fmt.Sprintf("output: %v", err))
	}

	d.mu.Lock()
	store := d.history
	d.mu.Unlock()
	if store != nil {
		_, err := store.Append(context.Background(), history.Entry{
			ID:             s.RunID,
			Text:           s.Text,
			Transcript:     s.Transcript,
			Language:       s.Language,
			Mode:           s.Mode.String(),
			PostProcessed:  s.PostProcessed,
			UsedFallback:   s.UsedFallback,
			AudioSeconds:   s.AudioDuration.Seconds(),
			Transcription:  s.Timings.Transcription,
			PostProcessing: s.Timings.PostProcessing,
		})
		if err != nil {
			log.Printf("Daemon: failed to store history: %v", err)
		}
	}

	if s.PostProcessed && !s.Cancelled {
		d.tracker.Record(s.UsedFallback)
	}
	if delivered {
		d.notifier.Completed(s.Text)
	}
}

func (d *Daemon) DictationFailed(f pipeline.DictationFailed) {
	switch {
	case f.Cancelled():
		d.notifier.Cancelled()
	case f.Kind == pipeline.NoSpeech:
		d.notifier.NoSpeech()
	default:
		d.notifier.Failed(failureReason(f))
	}
}

func failureReason(f pipeline.DictationFailed) string {
	switch transcriber.KindOf(f.Err) {
	case transcriber.KindLaunchFailed:
		return "transcription tool could not be started"
	case transcriber.KindModelNotFound:
		return "transcription model not found"
	case transcriber.KindDeviceError:
		return "transcription device error"
	case transcriber.KindTimeout:
		return "transcription timed out"
	case transcriber.KindInvalidInput:
		return "recording could not be read"
	case transcriber.KindParseError:
		return "transcription output was malformed"
	default:
		return fmt.Sprintf("transcription failed (%s)", f.Kind)
	}
}
