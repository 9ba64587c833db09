// Package transcriber turns a recorded audio file into text by running a
// local speech-to-text command line tool and interpreting its exit code and
// JSON output.
package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/leonardotrapani/hyprdictate/internal/procexec"
)

const DefaultTimeout = 120 * time.Second

// Request carries everything one transcription needs.
type Request struct {
	AudioPath      string
	Language       string // empty means auto-detect
	ModelPath      string
	ExecutablePath string
	Timeout        time.Duration
	Threads        int // 0 lets the tool decide
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the parsed tool output. Empty Text means no speech was detected.
type Result struct {
	Text            string
	Language        string
	DurationSeconds float64
	Segments        []Segment
	Meta            map[string]any
}

func (r Result) Duration() time.Duration {
	return time.Duration(r.DurationSeconds * float64(time.Second))
}

// Transcriber is what the pipeline depends on.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (Result, error)
}

// Adapter runs the transcription tool through a procexec.Runner.
type Adapter struct {
	runner procexec.Runner
}

func NewAdapter(runner procexec.Runner) *Adapter {
	if runner == nil {
		runner = procexec.New()
	}
	return &Adapter{runner: runner}
}

// Args builds the deterministic argument list for req.
func Args(req Request) []string {
	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = "auto"
	}
	args := []string{
		"--model", req.ModelPath,
		"--language", lang,
		"--output-format", "json",
	}
	if req.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(req.Threads))
	}
	return append(args, req.AudioPath)
}

// Transcribe runs the tool once. Every failure is returned as *Error.
func (a *Adapter) Transcribe(ctx context.Context, req Request) (Result, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	spec := procexec.Spec{
		Path:    req.ExecutablePath,
		Args:    Args(req),
		Timeout: timeout,
	}

	res, err := a.runner.Invoke(ctx, spec)
	if err != nil {
		if errors.Is(err, procexec.ErrLaunchFailed) {
			log.Printf("Transcriber: cannot launch %s: %v", req.ExecutablePath, err)
			return Result{}, &Error{Kind: KindLaunchFailed, Err: err}
		}
		if res.Cancelled || ctx.Err() != nil {
			return Result{}, &Error{Kind: KindCancelled, Stderr: res.Stderr, Err: err}
		}
		return Result{}, &Error{Kind: KindGenericFailure, Stderr: res.Stderr, Err: err}
	}

	if res.TimedOut {
		log.Printf("Transcriber: %s timed out after %v", req.ExecutablePath, timeout)
		return Result{}, &Error{
			Kind:     KindTimeout,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
			Err:      fmt.Errorf("killed after %v", timeout),
		}
	}

	if res.ExitCode != 0 {
		kind := kindForExitCode(res.ExitCode)
		log.Printf("Transcriber: %s exited with %d (%s)\nstderr: %s", req.ExecutablePath, res.ExitCode, kind, res.Stderr)
		return Result{}, &Error{Kind: kind, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}

	result, err := parseOutput(res.Stdout)
	if err != nil {
		log.Printf("Transcriber: unparseable output from %s: %v", req.ExecutablePath, err)
		return Result{}, &Error{Kind: KindParseError, Stderr: res.Stderr, Raw: res.Stdout, Err: err}
	}

	log.Printf("Transcriber: transcribed %s in %v (language %s): %q", req.AudioPath, res.Elapsed, result.Language, result.Text)
	return result, nil
}

type output struct {
	Text        *string        `json:"text"`
	Language    *string        `json:"language"`
	DurationSec *float64       `json:"duration_sec"`
	Segments    []Segment      `json:"segments,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
}

func parseOutput(stdout string) (Result, error) {
	var out output
	if err := json.Unmarshal([]byte(strings.TrimSpace(stdout)), &out); err != nil {
		return Result{}, fmt.Errorf("invalid JSON: %w", err)
	}

	var missing []string
	if out.Text == nil {
		missing = append(missing, "text")
	}
	if out.Language == nil {
		missing = append(missing, "language")
	}
	if out.DurationSec == nil {
		missing = append(missing, "duration_sec")
	}
	if len(missing) > 0 {
		return Result{}, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	return Result{
		Text:            strings.TrimSpace(*out.Text),
		Language:        *out.Language,
		DurationSeconds: *out.DurationSec,
		Segments:        out.Segments,
		Meta:            out.Meta,
	}, nil
}
