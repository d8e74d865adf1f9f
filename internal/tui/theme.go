package tui

import "github.com/charmbracelet/lipgloss"

// Color palette for the tsukkomi TUI
var (
	// Primary colors
	ColorPrimary   = lipgloss.Color("#E11D48") // Rose - the assertive persona
	ColorSecondary = lipgloss.Color("#EC4899") // Pink - the gentle persona

	// Status colors
	ColorSuccess = lipgloss.Color("#22C55E") // Green
	ColorError   = lipgloss.Color("#EF4444") // Red
	ColorWarning = lipgloss.Color("#F59E0B") // Amber

	// Text colors
	ColorText   = lipgloss.Color("#F8FAFC") // Bright white
	ColorMuted  = lipgloss.Color("#94A3B8") // Slate gray
	ColorSubtle = lipgloss.Color("#64748B") // Darker gray
)

// personaColor picks the accent for a persona label.
func personaColor(persona string) lipgloss.Color {
	if persona == "OTO♡MEちゃん" {
		return ColorSecondary
	}
	return ColorPrimary
}
