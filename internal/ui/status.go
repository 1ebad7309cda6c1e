package ui

import "github.com/charmbracelet/lipgloss"

var (
	passStyle = lipgloss.NewStyle().Foreground(ColorPass).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(ColorFail).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(ColorWarn).Bold(true)
)

// RenderPass renders s as a success marker, styled only when color is
// appropriate for the current output stream.
func RenderPass(s string) string {
	if !ShouldUseColor() {
		return s
	}
	return passStyle.Render(s)
}

// RenderFail renders s as a failure marker.
func RenderFail(s string) string {
	if !ShouldUseColor() {
		return s
	}
	return failStyle.Render(s)
}

// RenderWarn renders s as a warning marker.
func RenderWarn(s string) string {
	if !ShouldUseColor() {
		return s
	}
	return warnStyle.Render(s)
}
