package ui

import (
	"strings"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/model"
)

// infoPaneHeight is the rows reserved beneath the tree for node details.
const infoPaneHeight = 9

// InfoPane renders the encyclopedia block some nodes carry: geologic age,
// a wikipedia extract with its link, and the image credit.
type InfoPane struct {
	theme Theme
	width int
}

// NewInfoPane creates an empty detail pane.
func NewInfoPane(theme Theme) InfoPane {
	return InfoPane{theme: theme}
}

// SetWidth updates the wrap width.
func (p *InfoPane) SetWidth(width int) { p.width = width }

// View renders the details for one node, or an empty string when the node
// carries nothing worth showing.
func (p *InfoPane) View(n *model.Node) string {
	if n == nil || !n.Info.HasContent() {
		return ""
	}
	info := n.Info
	width := p.width
	if width <= 0 {
		width = 80
	}

	var sb strings.Builder
	title := info.WikipediaTitle
	if title == "" {
		title = n.Label
	}
	sb.WriteString(p.theme.PrimaryBold.Render(truncate(title, width)))

	if info.GeologicAge != "" {
		sb.WriteString("\n")
		sb.WriteString(p.theme.MutedText.Render("Geologic age: "))
		sb.WriteString(truncate(strings.TrimSpace(info.GeologicAge), width-14))
	}
	if text := strings.TrimSpace(info.WikipediaText); text != "" {
		sb.WriteString("\n")
		wrapped := p.theme.Base.Width(width).Render(text)
		sb.WriteString(clipLines(wrapped, 4))
	}
	if info.WikipediaURL != "" {
		sb.WriteString("\n")
		sb.WriteString(p.theme.MutedText.Render(truncate("Read more: "+strings.TrimSpace(info.WikipediaURL), width)))
	}
	if info.ImageAttribution != "" {
		sb.WriteString("\n")
		sb.WriteString(p.theme.MutedText.Render(truncate("Image: "+strings.TrimSpace(info.ImageAttribution), width)))
	}
	return sb.String()
}

// clipLines keeps the first max lines, marking the cut with an ellipsis.
func clipLines(s string, max int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= max {
		return s
	}
	return strings.Join(lines[:max], "\n") + "…"
}
