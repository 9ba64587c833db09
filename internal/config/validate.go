package config

import (
	"fmt"

	"github.com/leonardotrapani/hyprdictate/internal/language"
)

func (c *Config) Validate() error {
	if c.Transcription.Executable == "" {
		return fmt.Errorf("invalid transcription.executable: empty")
	}
	if c.Transcription.Model == "" {
		return fmt.Errorf("invalid transcription.model: empty (set it or HYPRDICTATE_TRANSCRIPTION_MODEL)")
	}
	if !language.IsValidCode(c.Transcription.Language) {
		return fmt.Errorf("invalid transcription.language: %s (use empty string or \"auto\" for auto-detect, or ISO-639-1 codes like 'en', 'es', 'fr')", c.Transcription.Language)
	}
	if c.Transcription.Timeout <= 0 {
		return fmt.Errorf("invalid transcription.timeout: %v", c.Transcription.Timeout)
	}
	if c.Transcription.Threads < 0 {
		return fmt.Errorf("invalid transcription.threads: %d", c.Transcription.Threads)
	}

	if c.PostProcessing.Enabled {
		if c.PostProcessing.Executable == "" {
			return fmt.Errorf("post_processing.executable required when post_processing.enabled = true")
		}
		if c.PostProcessing.Model == "" {
			return fmt.Errorf("post_processing.model required when post_processing.enabled = true")
		}
	}
	if c.PostProcessing.Timeout <= 0 {
		return fmt.Errorf("invalid post_processing.timeout: %v", c.PostProcessing.Timeout)
	}
	if c.PostProcessing.GPULayers < 0 {
		return fmt.Errorf("invalid post_processing.gpu_layers: %d", c.PostProcessing.GPULayers)
	}

	if c.Recording.SampleRate <= 0 {
		return fmt.Errorf("invalid recording.sample_rate: %d", c.Recording.SampleRate)
	}
	if c.Recording.Channels <= 0 {
		return fmt.Errorf("invalid recording.channels: %d", c.Recording.Channels)
	}
	if c.Recording.Timeout <= 0 {
		return fmt.Errorf("invalid recording.timeout: %v", c.Recording.Timeout)
	}
	if c.Recording.MinDuration < 0 {
		return fmt.Errorf("invalid recording.min_duration: %v", c.Recording.MinDuration)
	}

	if len(c.Output.Backends) == 0 {
		return fmt.Errorf("invalid output.backends: empty (must have at least one backend)")
	}
	validBackends := map[string]bool{"clipboard": true, "wtype": true, "ydotool": true}
	for _, backend := range c.Output.Backends {
		if !validBackends[backend] {
			return fmt.Errorf("invalid output.backends: unknown backend %q (must be clipboard, wtype or ydotool)", backend)
		}
	}
	if c.Output.WtypeTimeout <= 0 {
		return fmt.Errorf("invalid output.wtype_timeout: %v", c.Output.WtypeTimeout)
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}
	if c.Notifications.FailureAdvisoryThreshold < 0 {
		return fmt.Errorf("invalid notifications.failure_advisory_threshold: %d", c.Notifications.FailureAdvisoryThreshold)
	}

	return nil
}
