package tui

import "github.com/charmbracelet/lipgloss"

// Palette shared by the configure form and the plain CLI output.
var (
	ColorPrimary   = lipgloss.Color("#0EA5E9") // sky, headers and focus
	ColorSecondary = lipgloss.Color("#A78BFA") // violet, labels

	ColorSuccess = lipgloss.Color("#22C55E")
	ColorError   = lipgloss.Color("#EF4444")
	ColorWarning = lipgloss.Color("#F59E0B")

	ColorText   = lipgloss.Color("#F1F5F9")
	ColorMuted  = lipgloss.Color("#94A3B8")
	ColorSubtle = lipgloss.Color("#64748B")
)
