package ui

import "github.com/charmbracelet/lipgloss"

// Palette used across table, prompt, and status rendering.
var (
	ColorPass   = lipgloss.Color("42")
	ColorWarn   = lipgloss.Color("214")
	ColorFail   = lipgloss.Color("203")
	ColorAccent = lipgloss.Color("63")
	ColorMuted  = lipgloss.Color("245")
)
