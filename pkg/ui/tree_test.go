package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/model"
)

func buildViewTree() *model.Node {
	root := &model.Node{
		Label: "Life", Type: "ancestor_old",
		Children: []*model.Node{
			{
				Label: "Mammalia", Type: "ancestor_mid", PhylopicUUID: "uuid-mammalia",
				Children: []*model.Node{
					{Label: "Dog", Type: "species"},
					{Label: "Cat", Type: "species"},
				},
			},
			{Label: "Goldfish", Type: "species"},
		},
	}
	root.AssignIDs()
	return root
}

// runStep feeds a timed message to the tree and executes the follow-up
// command, returning the message it delivers.
func runStep(t *testing.T, tm *TreeModel, msg tea.Msg) tea.Msg {
	t.Helper()
	cmd := tm.Update(msg)
	if cmd == nil {
		return nil
	}
	return cmd()
}

func TestBuildStartsCollapsed(t *testing.T) {
	tm := NewTreeModel(TestTheme())
	tm.Build(buildViewTree())

	if !tm.Built() {
		t.Fatal("Built() = false after Build")
	}
	if tm.VisibleCount() != 1 {
		t.Errorf("fresh tree should show only the root, got %d rows", tm.VisibleCount())
	}
}

func TestAutoExpandRevealsWholeTreeInOrder(t *testing.T) {
	tm := NewTreeModel(TestTheme())
	tm.Build(buildViewTree())

	cmd := tm.StartAutoExpand()
	if cmd == nil {
		t.Fatal("StartAutoExpand returned nil for an expandable tree")
	}
	if !tm.AutoExpanding() {
		t.Error("AutoExpanding() = false during reveal")
	}

	// Walk the tick chain to completion by executing each returned
	// command in turn.
	var msg tea.Msg = cmd()
	seen := 0
	for msg != nil {
		step, ok := msg.(AutoExpandStepMsg)
		if !ok {
			break
		}
		seen++
		msg = runStep(t, &tm, step)
	}
	if seen != 2 {
		t.Errorf("expected 2 expansion steps, got %d", seen)
	}
	if !tm.FullyExpanded() {
		t.Error("tree not fully expanded after the sequence")
	}
	if tm.VisibleCount() != 5 {
		t.Errorf("expected 5 visible rows, got %d", tm.VisibleCount())
	}

	// The sequence ends by scheduling the silhouette audit.
	audit, ok := msg.(SilhouetteAuditMsg)
	if !ok {
		t.Fatalf("expected SilhouetteAuditMsg after the last step, got %T", msg)
	}
	if !tm.AuditCurrent(audit) {
		t.Error("audit message should belong to the current tree")
	}
}

func TestManualInteractionPreemptsAutoExpand(t *testing.T) {
	tm := NewTreeModel(TestTheme())
	tm.Build(buildViewTree())

	cmd := tm.StartAutoExpand()
	first := cmd().(AutoExpandStepMsg)

	// User toggles before the first tick lands: the scheduled message is
	// now stale and must be dropped.
	tm.Toggle()
	if tm.AutoExpanding() {
		t.Error("manual toggle should stop the timed sequence")
	}
	visible := tm.VisibleCount()

	if next := tm.Update(first); next != nil {
		t.Error("stale expansion step should produce no follow-up")
	}
	if tm.VisibleCount() != visible {
		t.Error("stale expansion step mutated the tree")
	}
}

func TestNewTreeOrphansOldSchedule(t *testing.T) {
	tm := NewTreeModel(TestTheme())
	tm.Build(buildViewTree())
	cmd := tm.StartAutoExpand()
	first := cmd().(AutoExpandStepMsg)

	tm.Build(buildViewTree())
	if next := tm.Update(first); next != nil {
		t.Error("step scheduled for the previous tree should be dropped")
	}
	if tm.VisibleCount() != 1 {
		t.Errorf("new tree should be collapsed, got %d rows", tm.VisibleCount())
	}
}

func TestTimedCollapseFoldsBottomUp(t *testing.T) {
	tm := NewTreeModel(TestTheme())
	tm.Build(buildViewTree())
	tm.ExpandAll()
	if !tm.FullyExpanded() {
		t.Fatal("ExpandAll did not expand")
	}

	cmd := tm.StartCollapse()
	if cmd == nil {
		t.Fatal("StartCollapse returned nil")
	}
	msg := cmd()
	for msg != nil {
		step, ok := msg.(CollapseStepMsg)
		if !ok {
			t.Fatalf("unexpected message %T", msg)
		}
		msg = runStep(t, &tm, step)
	}
	if tm.VisibleCount() != 1 {
		t.Errorf("collapse should end at the root, got %d rows", tm.VisibleCount())
	}
	if tm.AutoExpanding() {
		t.Error("AutoExpanding() = true after collapse finished")
	}
}

func TestNavigationAndSelection(t *testing.T) {
	tm := NewTreeModel(TestTheme())
	tm.Build(buildViewTree())
	tm.ExpandAll()

	if got := tm.Selected(); got == nil || got.Label != "Life" {
		t.Fatalf("initial selection = %v", got)
	}
	tm.MoveDown()
	tm.MoveDown()
	if got := tm.Selected(); got == nil || got.Label != "Dog" {
		t.Errorf("selection after two moves = %v", got)
	}
	tm.MoveUp()
	if got := tm.Selected(); got == nil || got.Label != "Mammalia" {
		t.Errorf("selection after move up = %v", got)
	}

	// Collapsing an ancestor keeps the cursor in bounds.
	tm.Toggle()
	if tm.Selected() == nil {
		t.Error("selection fell out of bounds after collapse")
	}
}

func TestLeafToggleIsNoop(t *testing.T) {
	tm := NewTreeModel(TestTheme())
	tm.Build(buildViewTree())
	tm.ExpandAll()
	for tm.Selected().Label != "Dog" {
		tm.MoveDown()
	}
	before := tm.VisibleCount()
	tm.Toggle()
	if tm.VisibleCount() != before {
		t.Error("toggling a leaf changed the visible rows")
	}
}

func TestSilhouetteStates(t *testing.T) {
	tm := NewTreeModel(TestTheme())
	tm.Build(buildViewTree())

	// Nodes declaring a phylopic uuid start pending.
	if tm.silhouettes["root-0"] != SilhouettePending {
		t.Errorf("root-0 state = %v, want pending", tm.silhouettes["root-0"])
	}
	tm.SetSilhouetteState("root-0", SilhouetteReady)
	if tm.silhouettes["root-0"] != SilhouetteReady {
		t.Error("state update dropped")
	}
}

func TestExpandedCount(t *testing.T) {
	tm := NewTreeModel(TestTheme())
	tm.Build(buildViewTree())

	if open, total := tm.ExpandedCount(); open != 0 || total != 2 {
		t.Errorf("after build: open=%d total=%d, want 0/2", open, total)
	}

	tm.ExpandAll()
	if open, total := tm.ExpandedCount(); open != 2 || total != 2 {
		t.Errorf("after expand all: open=%d total=%d, want 2/2", open, total)
	}

	tm.CollapseAll()
	if open, _ := tm.ExpandedCount(); open != 0 {
		t.Errorf("after collapse all: open=%d, want 0", open)
	}
}

func TestExpandAllSchedulesAudit(t *testing.T) {
	tm := NewTreeModel(TestTheme())
	tm.Build(buildViewTree())

	cmd := tm.ExpandAll()
	if cmd == nil {
		t.Fatal("first full expansion via ExpandAll should schedule the silhouette audit")
	}
	msg := cmd()
	audit, ok := msg.(SilhouetteAuditMsg)
	if !ok {
		t.Fatalf("expected SilhouetteAuditMsg, got %T", msg)
	}
	if !tm.AuditCurrent(audit) {
		t.Error("audit message should belong to the current tree")
	}

	// One-shot per tree: a later manual cycle must not re-arm it.
	tm.CollapseAll()
	if again := tm.ExpandAll(); again != nil {
		t.Error("audit re-armed on a second expansion of the same tree")
	}
}

func TestToggleCompletingExpansionSchedulesAudit(t *testing.T) {
	tm := NewTreeModel(TestTheme())
	tm.Build(buildViewTree())

	// Opening the root alone does not finish the reveal.
	if cmd := tm.Toggle(); cmd != nil {
		t.Fatal("audit scheduled before the tree was fully expanded")
	}
	tm.MoveDown()
	cmd := tm.Toggle()
	if cmd == nil {
		t.Fatal("opening the last ancestor by hand should schedule the audit")
	}
	if _, ok := cmd().(SilhouetteAuditMsg); !ok {
		t.Error("expected SilhouetteAuditMsg from the completing toggle")
	}
}

func TestAuditSurvivesInteractionDuringSettle(t *testing.T) {
	tm := NewTreeModel(TestTheme())
	tm.Build(buildViewTree())

	cmd := tm.StartAutoExpand()
	var msg tea.Msg = cmd()
	for {
		step, ok := msg.(AutoExpandStepMsg)
		if !ok {
			break
		}
		msg = runStep(t, &tm, step)
	}
	audit, ok := msg.(SilhouetteAuditMsg)
	if !ok {
		t.Fatalf("expected SilhouetteAuditMsg, got %T", msg)
	}

	// The user pokes the tree while the settle tick is pending; the audit
	// still belongs to this tree.
	tm.Toggle()
	if !tm.AuditCurrent(audit) {
		t.Error("interaction during the settle window orphaned the audit")
	}
}

func TestAuditStaleAfterRebuild(t *testing.T) {
	tm := NewTreeModel(TestTheme())
	tm.Build(buildViewTree())
	audit := tm.ExpandAll()().(SilhouetteAuditMsg)

	tm.Build(buildViewTree())
	if tm.AuditCurrent(audit) {
		t.Error("audit for a replaced tree should be stale")
	}
	if cmd := tm.ExpandAll(); cmd == nil {
		t.Error("replacement tree should get its own audit")
	}
}

func TestAgedSpeciesRowsCarryMark(t *testing.T) {
	root := buildViewTree()
	root.Children[1].HasAge = true // Goldfish
	tm := NewTreeModel(TestTheme())
	tm.SetSize(80, 20)
	tm.Build(root)
	tm.ExpandAll()

	view := tm.View()
	if !strings.Contains(view, "✦") {
		t.Errorf("aged species row missing its age mark:\n%s", view)
	}
}
