package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/leonardotrapani/hyprdictate/internal/config"
	"github.com/leonardotrapani/hyprdictate/internal/glossary"
	"github.com/leonardotrapani/hyprdictate/internal/injection"
	"github.com/leonardotrapani/hyprdictate/internal/llm"
	"github.com/leonardotrapani/hyprdictate/internal/pipeline"
	"github.com/leonardotrapani/hyprdictate/internal/procexec"
	"github.com/leonardotrapani/hyprdictate/internal/state"
	"github.com/leonardotrapani/hyprdictate/internal/transcriber"
	"github.com/spf13/cobra"
)

type transcribeOptions struct {
	noPostProcess bool
	output        bool
	details       bool
}

func transcribeCmd() *cobra.Command {
	var opts transcribeOptions

	cmd := &cobra.Command{
		Use:   "transcribe <audio.wav>",
		Short: "Run the dictation pipeline once on a recording",
		Long: `Transcribes a WAV file with the configured tool, post-processes it when
enabled and prints the result. Does not need the daemon.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runTranscribe(ctx, cmd.OutOrStdout(), cfg, procexec.New(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.noPostProcess, "no-post-process", false, "print the raw transcript")
	cmd.Flags().BoolVar(&opts.output, "output", false, "also send the text to the configured output backends")
	cmd.Flags().BoolVar(&opts.details, "details", false, "print mode, language and timings")
	return cmd
}

// oneShotSink keeps the single signal of a run.
type oneShotSink struct {
	completed *pipeline.DictationCompleted
	failed    *pipeline.DictationFailed
}

func (s *oneShotSink) DictationCompleted(c pipeline.DictationCompleted) { s.completed = &c }
func (s *oneShotSink) DictationFailed(f pipeline.DictationFailed)       { s.failed = &f }

func runTranscribe(ctx context.Context, out io.Writer, cfg *config.Config, runner procexec.Runner, audioPath string, opts transcribeOptions) error {
	if _, err := os.Stat(audioPath); err != nil {
		return fmt.Errorf("audio file: %w", err)
	}

	g, err := glossary.Load(cfg.PostProcessing.GlossaryFile)
	if err != nil {
		return err
	}

	sink := &oneShotSink{}
	orch, err := pipeline.New(state.New(), pipeline.Options{
		Transcriber:           transcriber.NewAdapter(runner),
		PostProcessor:         llm.NewAdapter(runner, cfg.ToLLMConfig()),
		Sink:                  sink,
		TranscriptionRequest:  cfg.TranscriptionRequest,
		PostProcessingEnabled: func() bool { return !opts.noPostProcess && cfg.IsPostProcessingEnabled() },
		Glossary:              func() glossary.Map { return g },
	})
	if err != nil {
		return err
	}

	if err := orch.Process(ctx, audioPath); err != nil {
		return err
	}

	if f := sink.failed; f != nil {
		switch {
		case f.Kind == pipeline.NoSpeech:
			return errors.New("no speech detected")
		case f.Err != nil:
			return f.Err
		default:
			return fmt.Errorf("transcription failed: %s", f.Kind)
		}
	}

	c := sink.completed
	fmt.Fprintln(out, c.Text)

	if opts.details {
		fmt.Fprintf(out, "\nlanguage: %s, audio: %v, mode: %s\n", c.Language, c.AudioDuration, c.Mode)
		fmt.Fprintf(out, "transcription: %v", c.Timings.Transcription)
		if c.PostProcessed {
			fmt.Fprintf(out, ", post-processing: %v (fallback %v, gpu %v)", c.Timings.PostProcessing, c.UsedFallback, c.GPUUsed)
		}
		fmt.Fprintln(out)
	}

	if opts.output {
		inj, err := injection.NewInjector(injection.Config{
			Backends: cfg.Output.Backends,
			Timeout:  cfg.Output.WtypeTimeout,
		}, runner)
		if err != nil {
			return err
		}
		if err := inj.Inject(ctx, c.Text); err != nil {
			return fmt.Errorf("output: %w", err)
		}
	}
	return nil
}
