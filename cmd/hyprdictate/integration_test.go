//go:build integration

package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprdictate/internal/config"
	"github.com/leonardotrapani/hyprdictate/internal/glossary"
	"github.com/leonardotrapani/hyprdictate/internal/llm"
	"github.com/leonardotrapani/hyprdictate/internal/procexec"
	"github.com/leonardotrapani/hyprdictate/internal/recording"
)

const integrationTimeout = 90 * time.Second

// loadIntegrationConfig uses the user's config so the real tools and models
// are exercised.
func loadIntegrationConfig(t *testing.T) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return config.DefaultConfig()
		}
		t.Logf("warning: could not load config: %v", err)
		return config.DefaultConfig()
	}
	return cfg
}

func requireTool(t *testing.T, path, model string) {
	t.Helper()
	if _, err := exec.LookPath(path); err != nil {
		t.Skipf("%s not installed", path)
	}
	if _, err := os.Stat(model); err != nil {
		t.Skipf("model %s not available", model)
	}
}

// sampleAudio returns $HYPRDICTATE_TEST_AUDIO or a generated tone.
func sampleAudio(t *testing.T) string {
	if p := os.Getenv("HYPRDICTATE_TEST_AUDIO"); p != "" {
		return p
	}
	const rate = 16000
	pcm := make([]byte, rate*2)
	for i := 0; i < rate; i++ {
		v := int16(3000 * math.Sin(2*math.Pi*440*float64(i)/rate))
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(v))
	}
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := recording.WriteWAV(path, pcm, rate, 1); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIntegration_Transcribe(t *testing.T) {
	cfg := loadIntegrationConfig(t)
	requireTool(t, cfg.Transcription.Executable, cfg.Transcription.Model)

	ctx, cancel := context.WithTimeout(context.Background(), integrationTimeout)
	defer cancel()

	audio := sampleAudio(t)
	var out bytes.Buffer
	start := time.Now()
	err := runTranscribe(ctx, &out, cfg, procexec.New(), audio, transcribeOptions{noPostProcess: true, details: true})
	if err != nil && os.Getenv("HYPRDICTATE_TEST_AUDIO") == "" && err.Error() == "no speech detected" {
		t.Logf("tone transcribed to nothing in %v", time.Since(start))
		return
	}
	if err != nil {
		t.Fatalf("transcribe %s: %v", audio, err)
	}
	t.Logf("transcribed in %v:\n%s", time.Since(start), out.String())
}

func TestIntegration_PostProcess(t *testing.T) {
	cfg := loadIntegrationConfig(t)
	requireTool(t, cfg.PostProcessing.Executable, cfg.PostProcessing.Model)

	g, err := glossary.Load(cfg.PostProcessing.GlossaryFile)
	if err != nil {
		t.Fatal(err)
	}

	const transcript = "so um the deploy is done and the tests pass"
	for _, gpu := range []bool{false, true} {
		llmCfg := cfg.ToLLMConfig()
		llmCfg.GPU = gpu
		// a cold model load is slower than the interactive budget
		llmCfg.Timeout = 60 * time.Second

		out := llm.NewAdapter(procexec.New(), llmCfg).Process(context.Background(), transcript, g)
		if out.Text == "" {
			t.Fatalf("gpu=%v: empty text", gpu)
		}
		if !out.Succeeded && out.Text != transcript {
			t.Errorf("gpu=%v: fallback text %q does not match the transcript", gpu, out.Text)
		}
		t.Logf("gpu=%v succeeded=%v gpuUsed=%v elapsed=%v: %q", gpu, out.Succeeded, out.GPUUsed, out.Elapsed, out.Text)
	}
}
