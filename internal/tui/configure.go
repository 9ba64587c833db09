// Package tui is the interactive `hyprdictate configure` form and the
// styles shared by the CLI's reports.
package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/hyprdictate/internal/config"
	"github.com/leonardotrapani/hyprdictate/internal/models"
	"github.com/muesli/termenv"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// ConfigSection represents a configuration section
type ConfigSection string

const (
	SectionTranscription  ConfigSection = "transcription"
	SectionPostProcessing ConfigSection = "post_processing"
	SectionRecording      ConfigSection = "recording"
	SectionOutput         ConfigSection = "output"
	SectionNotifications  ConfigSection = "notifications"
	SectionSaveExit       ConfigSection = "save_exit"
	SectionDiscardExit    ConfigSection = "discard_exit"
)

// Run edits a copy of cfg section by section until the user saves or
// discards. Models are offered from store.
func Run(cfg *config.Config, store models.Store) (*ConfigureResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg = cfg.Clone()

	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			if err := cfg.Validate(); err != nil {
				fmt.Println(StyleError.Render("Configuration is not valid: " + err.Error()))
				fmt.Println()
				continue
			}
			confirmed, err := showSummary(cfg)
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if confirmed {
				return &ConfigureResult{Config: cfg}, nil
			}
		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil
		case SectionTranscription:
			_ = editTranscription(cfg, store)
		case SectionPostProcessing:
			_ = editPostProcessing(cfg, store)
		case SectionRecording:
			_ = editRecording(cfg)
		case SectionOutput:
			_ = editOutput(cfg)
		case SectionNotifications:
			_ = editNotifications(cfg)
		}
	}
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(transcriptionLabel(cfg), SectionTranscription),
		huh.NewOption(postProcessingLabel(cfg), SectionPostProcessing),
		huh.NewOption(fmt.Sprintf("Recording (rate=%d, max=%s)", cfg.Recording.SampleRate, cfg.Recording.Timeout), SectionRecording),
		huh.NewOption(fmt.Sprintf("Output (%d backends)", len(cfg.Output.Backends)), SectionOutput),
		huh.NewOption(notificationsLabel(cfg), SectionNotifications),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

func transcriptionLabel(cfg *config.Config) string {
	if cfg.Transcription.Model == "" {
		return "Transcription (no model set)"
	}
	return "Transcription"
}

func postProcessingLabel(cfg *config.Config) string {
	if cfg.PostProcessing.Enabled {
		return "Post-processing (enabled)"
	}
	return "Post-processing (disabled)"
}

func notificationsLabel(cfg *config.Config) string {
	if !cfg.Notifications.Enabled {
		return "Notifications (off)"
	}
	return fmt.Sprintf("Notifications (%s)", cfg.Notifications.Type)
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
