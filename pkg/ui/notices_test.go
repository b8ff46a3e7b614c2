package ui

import (
	"strings"
	"testing"
)

func TestNoticeSupersession(t *testing.T) {
	n := NewNotices(TestTheme())

	n.Show(NoticeInfo, "first")
	firstSeq := n.seq
	n.Show(NoticeError, "second")

	// The old notice's expiry must not clear the new one.
	n.Update(NoticeExpiredMsg{Seq: firstSeq})
	if !n.Active() {
		t.Error("stale expiry cleared the current notice")
	}

	n.Update(NoticeExpiredMsg{Seq: n.seq})
	if n.Active() {
		t.Error("own expiry did not clear the notice")
	}
}

func TestNoticeClear(t *testing.T) {
	n := NewNotices(TestTheme())
	expiry := n.Show(NoticeWarning, "watch out")
	n.Clear()
	if n.Active() {
		t.Error("Clear left the notice active")
	}
	// The pending expiry is now stale too.
	_ = expiry
	if n.View(80) != "" {
		t.Error("cleared notice still renders")
	}
}

func TestNoticeViewPrefixes(t *testing.T) {
	cases := []struct {
		level  NoticeLevel
		prefix string
	}{
		{NoticeSuccess, "✓"},
		{NoticeWarning, "⚠"},
		{NoticeError, "✗"},
	}
	for _, tc := range cases {
		n := NewNotices(TestTheme())
		n.Show(tc.level, "message")
		if got := n.View(80); !strings.Contains(got, tc.prefix) {
			t.Errorf("level %v view %q missing prefix %q", tc.level, got, tc.prefix)
		}
	}
}
