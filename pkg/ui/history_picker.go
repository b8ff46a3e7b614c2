package ui

import (
	"fmt"
	"strings"

	"github.com/jarrodharvey/evolution-mapper-frontend/internal/history"
)

// HistoryPicker is the overlay listing recent generations for re-running.
type HistoryPicker struct {
	theme   Theme
	entries []history.Entry
	cursor  int
	open    bool
	width   int
	height  int
}

// NewHistoryPicker creates a closed picker.
func NewHistoryPicker(theme Theme) HistoryPicker {
	return HistoryPicker{theme: theme}
}

// Open shows the picker with the given entries.
func (h *HistoryPicker) Open(entries []history.Entry) {
	h.entries = entries
	h.cursor = 0
	h.open = true
}

// Close hides the picker.
func (h *HistoryPicker) Close() { h.open = false }

// IsOpen reports whether the picker is showing.
func (h *HistoryPicker) IsOpen() bool { return h.open }

// SetSize resizes the overlay.
func (h *HistoryPicker) SetSize(width, height int) {
	h.width = width
	h.height = height
}

// MoveUp moves the cursor up.
func (h *HistoryPicker) MoveUp() {
	if h.cursor > 0 {
		h.cursor--
	}
}

// MoveDown moves the cursor down.
func (h *HistoryPicker) MoveDown() {
	if h.cursor < len(h.entries)-1 {
		h.cursor++
	}
}

// Selected returns the entry under the cursor, or false.
func (h *HistoryPicker) Selected() (history.Entry, bool) {
	if h.cursor < 0 || h.cursor >= len(h.entries) {
		return history.Entry{}, false
	}
	return h.entries[h.cursor], true
}

// View renders the picker body.
func (h *HistoryPicker) View() string {
	var sb strings.Builder
	sb.WriteString(h.theme.PrimaryBold.Render("Recent trees"))
	sb.WriteString("\n")

	if len(h.entries) == 0 {
		sb.WriteString(h.theme.MutedText.Render("No generations recorded yet."))
		return sb.String()
	}

	maxRows := h.height - 4
	if maxRows < 1 {
		maxRows = len(h.entries)
	}
	for i, e := range h.entries {
		if i >= maxRows {
			sb.WriteString(h.theme.MutedText.Render(
				fmt.Sprintf("… and %d more", len(h.entries)-maxRows)))
			break
		}
		line := fmt.Sprintf("%s  %s", FormatTimeRel(e.CreatedAt), truncate(e.Summary(), h.width-14))
		sb.WriteString("\n")
		if i == h.cursor {
			sb.WriteString(h.theme.Selected.Render(line))
		} else {
			sb.WriteString("  " + line)
		}
	}

	sb.WriteString("\n\n")
	sb.WriteString(h.theme.MutedText.Render("enter: rerun selection · esc: close"))
	return sb.String()
}
