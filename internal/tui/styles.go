package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

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

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// Subtle style for hints and descriptions
	StyleSubtle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Italic(true)

	// Interjection cards
	StyleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

const logoASCII = `
 _             _    _             _
| |_ ___ _   _| | _| | _____  _ __ ___  _ __ ___ (_)
| __/ __| | | | |/ / |/ / _ \| '_ ` + "`" + ` _ \| '_ ` + "`" + ` _ \| |
| |_\__ \ |_| |   <|   < (_) | | | | | | | | | | | |
 \__|___/\__,_|_|\_\_|\_\___/|_| |_| |_|_| |_| |_|_|`

// Logo returns the tsukkomi ASCII art
func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}

// statusStyle colors a session status word.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "streaming":
		return StyleSuccess.Bold(true)
	case "connecting", "stopping":
		return StyleWarning
	case "failed":
		return StyleError
	default:
		return StyleMuted
	}
}

// severityStars renders 1..5 as filled and empty stars.
func severityStars(severity int) string {
	if severity < 1 {
		severity = 1
	}
	if severity > 5 {
		severity = 5
	}
	return strings.Repeat("★", severity) + strings.Repeat("☆", 5-severity)
}
