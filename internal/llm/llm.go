// Package llm reformats transcripts with a local llama.cpp style text
// generation tool. Every failure resolves to an Outcome carrying the original
// transcript.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/leonardotrapani/hyprdictate/internal/glossary"
	"github.com/leonardotrapani/hyprdictate/internal/procexec"
)

// Fixed generation parameters.
const (
	MaxTokens     = 512
	Temperature   = "0.0"
	TopP          = "0.25"
	RepeatPenalty = "1.05"

	DefaultTimeout   = 5 * time.Second
	DefaultGPULayers = 99
)

// Outcome is the result of one post-processing call. Text is never empty
// when the input was not.
type Outcome struct {
	Succeeded bool
	Text      string
	Mode      Mode
	GPUUsed   bool
	Elapsed   time.Duration
}

// Processor is what the pipeline depends on.
type Processor interface {
	Process(ctx context.Context, transcript string, g glossary.Map) Outcome
}

// Config holds the caller-configured part of the invocation.
type Config struct {
	ExecutablePath string
	ModelPath      string
	// Timeout is the latency budget of one Process call, shared by the GPU
	// attempt and its CPU retry.
	Timeout   time.Duration
	GPU       bool
	GPULayers int
}

type Adapter struct {
	runner procexec.Runner
	config Config
}

func NewAdapter(runner procexec.Runner, cfg Config) *Adapter {
	if runner == nil {
		runner = procexec.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.GPULayers <= 0 {
		cfg.GPULayers = DefaultGPULayers
	}
	return &Adapter{runner: runner, config: cfg}
}

// errGPUFailure marks an attempt whose stderr points at the GPU or its
// memory. It never leaves this package.
var errGPUFailure = errors.New("gpu failure")

// Args builds the argument list for one attempt.
func Args(cfg Config, gpu bool) []string {
	layers := 0
	if gpu {
		layers = cfg.GPULayers
	}
	return []string{
		"-m", cfg.ModelPath,
		"-f", "/dev/stdin",
		"-n", strconv.Itoa(MaxTokens),
		"--temp", Temperature,
		"--top-p", TopP,
		"--repeat-penalty", RepeatPenalty,
		"--no-display-prompt",
		"-no-cnv",
		"-ngl", strconv.Itoa(layers),
	}
}

// Process reformats transcript. It never panics and never returns an empty
// Text for a non-empty transcript.
func (a *Adapter) Process(ctx context.Context, transcript string, g glossary.Map) (out Outcome) {
	start := time.Now()
	mode := Plain

	fallback := func(reason string) Outcome {
		log.Printf("LLM: post-processing fell back to original text: %s", reason)
		return Outcome{Succeeded: false, Text: transcript, Mode: mode, GPUUsed: false, Elapsed: time.Since(start)}
	}

	defer func() {
		if r := recover(); r != nil {
			out = fallback(fmt.Sprintf("panic: %v", r))
		}
	}()

	text, detected, ok := DetectMode(transcript)
	mode = detected
	if !ok {
		return fallback("nothing left after removing the trigger phrase")
	}
	if text == "" {
		return fallback("empty transcript")
	}

	if a.config.ExecutablePath == "" {
		return fallback("no executable configured")
	}
	if _, err := os.Stat(a.config.ModelPath); err != nil {
		return fallback(fmt.Sprintf("model unavailable: %v", err))
	}

	prompt := BuildPrompt(mode, text, g)
	deadline := start.Add(a.config.Timeout)

	gpu := a.config.GPU
	res, err := a.attempt(ctx, prompt, gpu, deadline)
	if errors.Is(err, errGPUFailure) && time.Until(deadline) > 0 {
		log.Printf("LLM: GPU attempt failed, retrying on CPU")
		gpu = false
		res, err = a.attempt(ctx, prompt, gpu, deadline)
	}
	if err != nil {
		return fallback(err.Error())
	}

	cleaned := CleanOutput(res.Stdout)
	if cleaned == "" {
		return fallback("empty output")
	}

	elapsed := time.Since(start)
	log.Printf("LLM: %s post-processing finished in %v (gpu: %v)", mode, elapsed, gpu)
	return Outcome{Succeeded: true, Text: cleaned, Mode: mode, GPUUsed: gpu, Elapsed: elapsed}
}

// attempt runs the tool once. A failed run that looks like a GPU failure
// while GPU was requested returns an error wrapping errGPUFailure.
func (a *Adapter) attempt(ctx context.Context, prompt string, gpu bool, deadline time.Time) (procexec.Result, error) {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return procexec.Result{}, fmt.Errorf("latency budget of %v exhausted", a.config.Timeout)
	}

	spec := procexec.Spec{
		Path:    a.config.ExecutablePath,
		Args:    Args(a.config, gpu),
		Stdin:   prompt,
		Timeout: remaining,
	}
	res, err := a.runner.Invoke(ctx, spec)
	if err != nil {
		return res, err
	}

	if res.TimedOut || res.ExitCode != 0 {
		var failure error
		if res.TimedOut {
			failure = fmt.Errorf("timed out after %v", remaining)
		} else {
			failure = fmt.Errorf("exit code %d", res.ExitCode)
		}
		if gpu && isGPUFailure(res.Stderr) {
			return res, fmt.Errorf("%w: %v", errGPUFailure, failure)
		}
		log.Printf("LLM: %s failed: %v\nstderr: %s", a.config.ExecutablePath, failure, res.Stderr)
		return res, failure
	}
	return res, nil
}
