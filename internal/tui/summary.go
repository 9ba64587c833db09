package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprdictate/internal/config"
	"github.com/leonardotrapani/hyprdictate/internal/language"
)

// SummaryLines describes cfg for the save confirmation and `doctor`.
func SummaryLines(cfg *config.Config) []string {
	lang := language.FromCode(cfg.Transcription.Language).Label()
	lines := []string{
		KeyValue("Transcription", fmt.Sprintf("%s (%s)", cfg.Transcription.Executable, orNone(cfg.Transcription.Model))),
		KeyValue("Language", lang),
	}

	if cfg.PostProcessing.Enabled {
		device := "cpu"
		if cfg.PostProcessing.GPU {
			device = fmt.Sprintf("gpu, %d layers", cfg.PostProcessing.GPULayers)
		}
		lines = append(lines, KeyValue("Post-processing", fmt.Sprintf("%s (%s, %s)", cfg.PostProcessing.Executable, orNone(cfg.PostProcessing.Model), device)))
		if cfg.PostProcessing.GlossaryFile != "" {
			lines = append(lines, KeyValue("Glossary", cfg.PostProcessing.GlossaryFile))
		}
	} else {
		lines = append(lines, KeyValue("Post-processing", "disabled"))
	}

	lines = append(lines, KeyValue("Backends", strings.Join(cfg.Output.Backends, " -> ")))
	if cfg.Notifications.Enabled {
		lines = append(lines, KeyValue("Notifications", cfg.Notifications.Type))
	} else {
		lines = append(lines, KeyValue("Notifications", "disabled"))
	}
	return lines
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(StyleHeader.Render("Configuration Summary"))
	for _, line := range SummaryLines(cfg) {
		fmt.Println(line)
	}
	fmt.Println()

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}
