package tui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprdictate/internal/config"
	"github.com/leonardotrapani/hyprdictate/internal/models"
)

// pickModel offers the installed models of kind and falls back to a path
// prompt.
func pickModel(store models.Store, kind models.Kind, title, current string) (string, error) {
	selected := current
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Description(fmt.Sprintf("Models in %s. Download more with `hyprdictate model download`.", store.Dir)).
				Options(modelOptions(store, kind, current)...).
				Value(&selected),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return current, err
	}
	if selected != customModel {
		return selected, nil
	}

	path := current
	input := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Model path").
				Placeholder("~/models/model.bin").
				Value(&path).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("path is required")
					}
					return nil
				}),
		),
	).WithTheme(getTheme())
	if err := input.Run(); err != nil {
		return current, err
	}
	return config.ExpandHome(path), nil
}

func editTranscription(cfg *config.Config, store models.Store) error {
	model, err := pickModel(store, models.Transcription, "Speech model", cfg.Transcription.Model)
	if err != nil {
		return err
	}

	executable := cfg.Transcription.Executable
	lang := cfg.Transcription.Language
	timeout := cfg.Transcription.Timeout.String()
	threads := strconv.Itoa(cfg.Transcription.Threads)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Transcription tool").
				Description("Executable that prints the transcript as JSON").
				Value(&executable),
			huh.NewSelect[string]().
				Title("Language").
				Options(languageOptions(lang)...).
				Filtering(true).
				Value(&lang),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Timeout").
				Description("Kill the tool after this long (e.g. '30s')").
				Value(&timeout).
				Validate(validateDuration),
			huh.NewInput().
				Title("Threads").
				Description("0 = number of CPUs minus one").
				Value(&threads).
				Validate(validateInt(0)),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Transcription.Model = model
	cfg.Transcription.Executable = config.ExpandHome(executable)
	cfg.Transcription.Language = lang
	cfg.Transcription.Timeout, _ = time.ParseDuration(timeout)
	cfg.Transcription.Threads, _ = strconv.Atoi(threads)
	return nil
}

func editPostProcessing(cfg *config.Config, store models.Store) error {
	enabled := cfg.PostProcessing.Enabled
	enableForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Reformat transcripts with a local language model?").
				Description("Say \"email\", \"list\" or \"message\" at the start to pick a format").
				Value(&enabled),
		),
	).WithTheme(getTheme())
	if err := enableForm.Run(); err != nil {
		return err
	}
	cfg.PostProcessing.Enabled = enabled
	if !enabled {
		return nil
	}

	model, err := pickModel(store, models.PostProcessing, "Language model", cfg.PostProcessing.Model)
	if err != nil {
		return err
	}

	executable := cfg.PostProcessing.Executable
	timeout := cfg.PostProcessing.Timeout.String()
	gpu := cfg.PostProcessing.GPU
	gpuLayers := strconv.Itoa(cfg.PostProcessing.GPULayers)
	glossaryFile := cfg.PostProcessing.GlossaryFile

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Generation tool").
				Description("llama.cpp compatible CLI").
				Value(&executable),
			huh.NewInput().
				Title("Timeout").
				Description("Shared by the GPU attempt and the CPU retry").
				Value(&timeout).
				Validate(validateDuration),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Use the GPU?").
				Description("Falls back to the CPU once when the GPU run fails").
				Value(&gpu),
			huh.NewInput().
				Title("GPU layers").
				Value(&gpuLayers).
				Validate(validateInt(0)),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Glossary file").
				Description("One 'spoken = written' pair per line. Empty = none.").
				Placeholder("~/.config/hyprdictate/glossary.txt").
				Value(&glossaryFile),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.PostProcessing.Model = model
	cfg.PostProcessing.Executable = config.ExpandHome(executable)
	cfg.PostProcessing.Timeout, _ = time.ParseDuration(timeout)
	cfg.PostProcessing.GPU = gpu
	cfg.PostProcessing.GPULayers, _ = strconv.Atoi(gpuLayers)
	cfg.PostProcessing.GlossaryFile = config.ExpandHome(glossaryFile)
	return nil
}

// editRecording handles the recording settings
func editRecording(cfg *config.Config) error {
	sampleRate := strconv.Itoa(cfg.Recording.SampleRate)
	channels := strconv.Itoa(cfg.Recording.Channels)
	device := cfg.Recording.Device
	timeout := cfg.Recording.Timeout.String()
	minDuration := cfg.Recording.MinDuration.String()
	keep := cfg.Recording.Keep

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Sample Rate (Hz)").
				Description("Audio sample rate. 16000 is optimal for speech recognition.").
				Placeholder("16000").
				Value(&sampleRate).
				Validate(validateInt(1)),
			huh.NewSelect[string]().
				Title("Channels").
				Options(
					huh.NewOption("1 (Mono) - Recommended", "1"),
					huh.NewOption("2 (Stereo)", "2"),
				).
				Value(&channels),
			huh.NewInput().
				Title("Device").
				Description("PipeWire device name. Empty = default microphone.").
				Placeholder("(default)").
				Value(&device),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Recording Timeout").
				Description("Max recording duration (e.g., '30s', '2m', '5m'). Prevents runaway recordings.").
				Placeholder("5m").
				Value(&timeout).
				Validate(validateDuration),
			huh.NewInput().
				Title("Minimum Length").
				Description("Shorter recordings are discarded as no speech").
				Placeholder("200ms").
				Value(&minDuration).
				Validate(validateDuration),
			huh.NewConfirm().
				Title("Keep WAV files after processing?").
				Value(&keep),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Recording.SampleRate, _ = strconv.Atoi(sampleRate)
	cfg.Recording.Channels, _ = strconv.Atoi(channels)
	cfg.Recording.Device = device
	cfg.Recording.Timeout, _ = time.ParseDuration(timeout)
	cfg.Recording.MinDuration, _ = time.ParseDuration(minDuration)
	cfg.Recording.Keep = keep
	return nil
}

func editOutput(cfg *config.Config) error {
	backends := append([]string(nil), cfg.Output.Backends...)
	timeout := cfg.Output.WtypeTimeout.String()
	history := cfg.Output.History

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Output backends").
				Description("Tried in order until one succeeds").
				Options(backendOptions(backends)...).
				Value(&backends).
				Validate(func(s []string) error {
					if len(s) == 0 {
						return fmt.Errorf("select at least one backend")
					}
					return nil
				}),
			huh.NewInput().
				Title("Typing timeout").
				Value(&timeout).
				Validate(validateDuration),
			huh.NewConfirm().
				Title("Keep a history of dictations?").
				Value(&history),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Output.Backends = backends
	cfg.Output.WtypeTimeout, _ = time.ParseDuration(timeout)
	cfg.Output.History = history
	return nil
}

func editNotifications(cfg *config.Config) error {
	enabled := cfg.Notifications.Enabled
	notifType := cfg.Notifications.Type
	if notifType == "" {
		notifType = "desktop"
	}
	threshold := strconv.Itoa(cfg.Notifications.FailureAdvisoryThreshold)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications?").
				Value(&enabled),
			huh.NewSelect[string]().
				Title("Notification Type").
				Description("How should notifications be displayed?").
				Options(
					huh.NewOption("Desktop notifications", "desktop"),
					huh.NewOption("Log to console only", "log"),
					huh.NewOption("None (silent)", "none"),
				).
				Value(&notifType),
			huh.NewInput().
				Title("Fallback advisory threshold").
				Description("Suggest disabling post-processing after this many fallbacks in a row. 0 = never.").
				Value(&threshold).
				Validate(validateInt(0)),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Notifications.Enabled = enabled
	cfg.Notifications.Type = notifType
	cfg.Notifications.FailureAdvisoryThreshold, _ = strconv.Atoi(threshold)
	return nil
}
