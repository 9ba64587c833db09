package config

import (
	"time"

	"github.com/leonardotrapani/hyprdictate/internal/llm"
	"github.com/leonardotrapani/hyprdictate/internal/transcriber"
)

// DefaultConfig returns the configuration written by `configure` and used as
// the base every config file is decoded on top of.
func DefaultConfig() *Config {
	return &Config{
		Transcription: TranscriptionConfig{
			Executable: "whisper-json",
			Model:      "",
			Language:   "",
			Timeout:    transcriber.DefaultTimeout,
			Threads:    0,
		},
		PostProcessing: PostProcessingConfig{
			Enabled:      false,
			Executable:   "llama-cli",
			Model:        "",
			Timeout:      llm.DefaultTimeout,
			GPU:          true,
			GPULayers:    llm.DefaultGPULayers,
			GlossaryFile: "",
		},
		Recording: RecordingConfig{
			SampleRate:  16000,
			Channels:    1,
			Device:      "",
			Timeout:     5 * time.Minute,
			MinDuration: 200 * time.Millisecond,
			Directory:   "",
			Keep:        false,
		},
		Output: OutputConfig{
			Backends:     []string{"clipboard"},
			WtypeTimeout: 5 * time.Second,
			History:      true,
			HistoryPath:  "",
		},
		Notifications: NotificationsConfig{
			Enabled:                  true,
			Type:                     "desktop",
			FailureAdvisoryThreshold: 3,
		},
	}
}
