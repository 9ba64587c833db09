package tui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprdictate/internal/language"
	"github.com/leonardotrapani/hyprdictate/internal/models"
)

// customModel is the option value that asks for a model path instead.
const customModel = "\x00custom"

// modelOptions lists the installed models of kind, the current model when it
// lives elsewhere, and a custom-path entry.
func modelOptions(store models.Store, kind models.Kind, current string) []huh.Option[string] {
	var options []huh.Option[string]
	seenCurrent := false

	for _, m := range store.Installed(kind) {
		path, err := store.Path(m.ID)
		if err != nil {
			continue
		}
		label := fmt.Sprintf("%s (%s)", m.Name, m.Size)
		if path == current {
			label += " (current)"
			seenCurrent = true
		}
		options = append(options, huh.NewOption(label, path))
	}

	if current != "" && !seenCurrent {
		options = append(options, huh.NewOption(current+" (current)", current))
	}
	options = append(options, huh.NewOption("Custom path...", customModel))
	return options
}

func languageOptions(current string) []huh.Option[string] {
	autoLabel := "Auto-detect (recommended)"
	if current == "" || current == "auto" {
		autoLabel += " (current)"
	}
	options := []huh.Option[string]{huh.NewOption(autoLabel, "")}

	for _, lang := range language.List() {
		label := lang.Label()
		if lang.Code == current {
			label += " (current)"
		}
		options = append(options, huh.NewOption(label, lang.Code))
	}
	return options
}

var backendLabels = map[string]string{
	"clipboard": "Clipboard (wl-copy / xclip)",
	"wtype":     "Type into focused window (wtype)",
	"ydotool":   "Type via uinput (ydotool, needs ydotoold)",
}

// backendOptions keeps the configured order first so re-saving does not
// reorder the chain.
func backendOptions(current []string) []huh.Option[string] {
	selected := make(map[string]bool, len(current))
	order := append([]string(nil), current...)
	for _, b := range current {
		selected[b] = true
	}
	for _, b := range []string{"clipboard", "wtype", "ydotool"} {
		if !selected[b] {
			order = append(order, b)
		}
	}

	options := make([]huh.Option[string], 0, len(order))
	for _, b := range order {
		label, ok := backendLabels[b]
		if !ok {
			continue
		}
		options = append(options, huh.NewOption(label, b).Selected(selected[b]))
	}
	return options
}

func validateInt(min int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("must be a number")
		}
		if n < min {
			return fmt.Errorf("must be at least %d", min)
		}
		return nil
	}
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration format (use '500ms', '30s', '2m', etc.)")
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
