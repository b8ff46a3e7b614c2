package ui

import "github.com/charmbracelet/lipgloss"

// Adaptive colors for the panel frames, tuned for light and dark
// terminals.
var (
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#1B7A43", Dark: "#50FA7B"}
	ColorBorder  = lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"}
)

// PanelStyle frames one of the main layout panels.
func PanelStyle(r *lipgloss.Renderer, focused bool) lipgloss.Style {
	border := ColorBorder
	if focused {
		border = ColorPrimary
	}
	return r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}
