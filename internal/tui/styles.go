package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	// Header style for titles and section headers
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	// Label style for summary and report keys
	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// Muted style for secondary text
	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// Box style for bordered containers
	StyleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(1, 2)
)

const logoASCII = `
 _                          _ _      _        _
| |__  _   _ _ __  _ __ __| (_) ___| |_ __ _| |_ ___
| '_ \| | | | '_ \| '__/ _' | |/ __| __/ _' | __/ _ \
| | | | |_| | |_) | | | (_| | | (__| || (_| | ||  __/
|_| |_|\__, | .__/|_|  \__,_|_|\___|\__\__,_|\__\___|
       |___/|_|                                      `

// Logo returns the hyprdictate ASCII art
func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}

// UseTerminalProfile matches lipgloss colours to what stdout supports, so
// piped output stays plain.
func UseTerminalProfile() {
	lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).EnvColorProfile())
}

// Mark renders a check or a cross.
func Mark(ok bool) string {
	if ok {
		return StyleSuccess.Render("✓")
	}
	return StyleError.Render("✗")
}

// KeyValue renders one "key: value" report line.
func KeyValue(key, value string) string {
	return "  " + StyleLabel.Render(key+":") + " " + value
}
