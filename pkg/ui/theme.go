package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals use the
// terminal's own background instead of a down-converted approximation
// that may clash with palettes like Solarized.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Tree node classes
	Species     lipgloss.AdaptiveColor
	AncestorOld lipgloss.AdaptiveColor
	AncestorMid lipgloss.AdaptiveColor
	AncestorNew lipgloss.AdaptiveColor
	AncestorNA  lipgloss.AdaptiveColor

	// Status
	Success lipgloss.AdaptiveColor
	Warning lipgloss.AdaptiveColor
	Error   lipgloss.AdaptiveColor
	Working lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	// Styles
	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style

	// Pre-computed styles, created once instead of per-frame.
	MutedText     lipgloss.Style // Help lines, timestamps
	SecondaryText lipgloss.Style // Scientific names
	PrimaryBold   lipgloss.Style // Focused panel titles
	SuccessText   lipgloss.Style // Completed steps, full coverage
	WarningText   lipgloss.Style // Partial coverage notices
	ErrorText     lipgloss.Style // Error banners
	WorkingText   lipgloss.Style // In-progress steps, spinners
	DatelifeMark  lipgloss.Style // Age-data marker on species rows
}

// DefaultTheme returns the standard adaptive theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#1B7A43", Dark: "#50FA7B"}, // Green
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},

		Species:     lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}, // Leaves
		AncestorOld: lipgloss.AdaptiveColor{Light: "#7A3B0E", Dark: "#CD853F"}, // Deep time
		AncestorMid: lipgloss.AdaptiveColor{Light: "#9C5A1E", Dark: "#DEB887"},
		AncestorNew: lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFE4B5"}, // Recent
		AncestorNA:  lipgloss.AdaptiveColor{Light: "#888888", Dark: "#7F8C9B"}, // Undated

		Success: lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
		Warning: lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		Error:   lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		Working: lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(t.Primary).
		PaddingLeft(1).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.SecondaryText = r.NewStyle().Foreground(t.Secondary).Italic(true)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.SuccessText = r.NewStyle().Foreground(t.Success)
	t.WarningText = r.NewStyle().Foreground(t.Warning)
	t.ErrorText = r.NewStyle().Foreground(t.Error).Bold(true)
	t.WorkingText = r.NewStyle().Foreground(t.Working)
	t.DatelifeMark = r.NewStyle().Foreground(ThemeFg("#FFD700"))

	return t
}

// NodeTypeColor maps a backend node classification to a theme color.
func (t Theme) NodeTypeColor(nodeType string) lipgloss.AdaptiveColor {
	switch nodeType {
	case "species":
		return t.Species
	case "ancestor_old":
		return t.AncestorOld
	case "ancestor_young":
		return t.AncestorNew
	case "ancestor_no_age":
		return t.AncestorNA
	default:
		if len(nodeType) >= 8 && nodeType[:8] == "ancestor" {
			return t.AncestorMid
		}
		return t.Subtext
	}
}

// TestTheme returns a theme suitable for use in tests (stdout renderer).
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
