package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/model"
)

// gradientSwatchWidth is the cell width of the old→young age gradient bar.
const gradientSwatchWidth = 16

// LegendPanel renders the legend for the current tree.
type LegendPanel struct {
	theme  Theme
	legend model.Legend
	loaded bool
	width  int
}

// NewLegendPanel creates an empty legend panel.
func NewLegendPanel(theme Theme) LegendPanel {
	return LegendPanel{theme: theme}
}

// SetLegend loads legend data.
func (l *LegendPanel) SetLegend(legend model.Legend) {
	l.legend = legend
	l.loaded = true
}

// Clear drops the legend (new generation starting).
func (l *LegendPanel) Clear() {
	l.legend = model.Legend{}
	l.loaded = false
}

// Loaded reports whether legend data is present.
func (l *LegendPanel) Loaded() bool { return l.loaded }

// SetWidth resizes the panel.
func (l *LegendPanel) SetWidth(width int) { l.width = width }

// View renders the legend: a title with subtitle, the age gradient when
// the tree is dated, then the remaining entries as swatch rows.
func (l *LegendPanel) View() string {
	if !l.loaded || len(l.legend.Entries) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(l.theme.PrimaryBold.Render("Legend"))
	if sub := l.legend.Subtitle(); sub != "" {
		sb.WriteString(" ")
		sb.WriteString(l.theme.MutedText.Render("· " + sub))
	}

	if gradient := l.legend.AgeGradientEntries(); len(gradient) >= 2 {
		sb.WriteString("\n")
		sb.WriteString(l.renderGradient(gradient))
	}

	if l.legend.Categorized() {
		if entries := l.legend.ColorEntries(); len(entries) > 0 {
			for _, e := range entries {
				sb.WriteString("\n")
				sb.WriteString(l.renderEntry(e))
			}
		}
		if entries := l.legend.ShapeEntries(); len(entries) > 0 {
			sb.WriteString("\n")
			sb.WriteString(l.theme.MutedText.Render("shapes"))
			for _, e := range entries {
				sb.WriteString("\n")
				sb.WriteString(l.renderEntry(e))
			}
		}
	} else {
		for _, e := range l.legend.PlainEntries() {
			sb.WriteString("\n")
			sb.WriteString(l.renderEntry(e))
		}
	}

	if attrs := l.legend.PhylopicAttributions(); len(attrs) > 0 {
		sb.WriteString("\n")
		credit := "silhouettes: " + strings.Join(attrs, "; ")
		sb.WriteString(l.theme.MutedText.Render(truncate(credit, l.width-2)))
	}

	return sb.String()
}

// renderGradient draws a smooth old→young bar by blending between the
// anchor colors in Luv space, which keeps the midpoints perceptually even.
func (l *LegendPanel) renderGradient(entries []model.LegendEntry) string {
	anchors := make([]colorful.Color, 0, len(entries))
	for _, e := range entries {
		if c, err := colorful.Hex(strings.TrimSpace(e.Color)); err == nil {
			anchors = append(anchors, c)
		}
	}
	if len(anchors) < 2 {
		return ""
	}

	var bar strings.Builder
	segments := len(anchors) - 1
	for i := 0; i < gradientSwatchWidth; i++ {
		pos := float64(i) / float64(gradientSwatchWidth-1) * float64(segments)
		seg := int(pos)
		if seg >= segments {
			seg = segments - 1
		}
		c := anchors[seg].BlendLuv(anchors[seg+1], pos-float64(seg))
		style := l.theme.Renderer.NewStyle().Foreground(ThemeFg(c.Hex()))
		bar.WriteString(style.Render("█"))
	}

	oldLabel := l.theme.MutedText.Render("old ")
	youngLabel := l.theme.MutedText.Render(" young")
	return oldLabel + bar.String() + youngLabel
}

func (l *LegendPanel) renderEntry(e model.LegendEntry) string {
	swatch := "■"
	if e.Shape == "circle" || e.Shape == "" {
		swatch = "●"
	}
	var swatchStyle lipgloss.Style
	if c, err := colorful.Hex(strings.TrimSpace(e.Color)); err == nil {
		swatchStyle = l.theme.Renderer.NewStyle().Foreground(ThemeFg(c.Hex()))
	} else {
		swatchStyle = l.theme.MutedText
	}

	label := e.Label
	if label == "" {
		label = e.NodeType
	}
	line := swatchStyle.Render(swatch) + " " + truncate(label, l.width-6)
	if e.Description != "" && l.width > 40 {
		line += " " + l.theme.MutedText.Render(truncate(e.Description, l.width-lipgloss.Width(line)-3))
	}
	return line
}
