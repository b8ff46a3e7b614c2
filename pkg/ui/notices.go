package ui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Notice display durations. Informational banners clear quickly; errors
// linger long enough to read.
const (
	noticeInfoTTL  = 5 * time.Second
	noticeErrorTTL = 10 * time.Second
)

// NoticeLevel classifies a banner.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

// NoticeExpiredMsg clears a banner after its TTL.
type NoticeExpiredMsg struct {
	Seq uint64
}

// Notices manages the transient banner line. Only the latest notice shows;
// a newer notice supersedes the pending expiry of the old one.
type Notices struct {
	theme Theme
	seq   uint64
	text  string
	level NoticeLevel
}

// NewNotices creates the banner manager.
func NewNotices(theme Theme) Notices {
	return Notices{theme: theme}
}

// Show replaces the current banner and schedules its expiry.
func (n *Notices) Show(level NoticeLevel, text string) tea.Cmd {
	n.seq++
	n.text = text
	n.level = level
	seq := n.seq
	ttl := noticeInfoTTL
	if level == NoticeError || level == NoticeWarning {
		ttl = noticeErrorTTL
	}
	return tea.Tick(ttl, func(time.Time) tea.Msg {
		return NoticeExpiredMsg{Seq: seq}
	})
}

// Update clears the banner when its own expiry fires.
func (n *Notices) Update(msg tea.Msg) {
	if expired, ok := msg.(NoticeExpiredMsg); ok && expired.Seq == n.seq {
		n.text = ""
	}
}

// Clear drops the banner immediately.
func (n *Notices) Clear() {
	n.seq++
	n.text = ""
}

// Active reports whether a banner is showing.
func (n *Notices) Active() bool { return n.text != "" }

// View renders the banner line, or an empty string.
func (n *Notices) View(width int) string {
	if n.text == "" {
		return ""
	}
	text := truncate(n.text, width-2)
	switch n.level {
	case NoticeSuccess:
		return n.theme.SuccessText.Render("✓ " + text)
	case NoticeWarning:
		return n.theme.WarningText.Render("⚠ " + text)
	case NoticeError:
		return n.theme.ErrorText.Render("✗ " + text)
	default:
		return n.theme.MutedText.Render(strings.TrimSpace(text))
	}
}
