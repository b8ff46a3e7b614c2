package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/model"
)

// Expansion timing. The staged reveal opens ancestors breadth-first, so
// deep time unfolds toward the present; collapse runs the same schedule
// backwards.
const (
	autoExpandInitialDelay = 800 * time.Millisecond
	autoExpandStepDelay    = 1200 * time.Millisecond
	collapseStepDelay      = 600 * time.Millisecond
	silhouetteSettleDelay  = 600 * time.Millisecond
)

// AutoExpandStepMsg reveals the next scheduled ancestor.
type AutoExpandStepMsg struct {
	Gen   uint64
	Index int
}

// CollapseStepMsg folds the next ancestor on the way back to the root.
type CollapseStepMsg struct {
	Gen   uint64
	Index int
}

// SilhouetteAuditMsg fires once after the reveal settles, asking the model
// to re-verify silhouettes that failed during expansion.
type SilhouetteAuditMsg struct {
	Gen uint64
}

// SilhouetteState is what the tree knows about a node's silhouette.
type SilhouetteState int

const (
	SilhouetteNone SilhouetteState = iota // Node declares no silhouette
	SilhouettePending
	SilhouetteReady
	SilhouetteMissing
)

// phyloNode wraps a model.Node with view state.
type phyloNode struct {
	Node     *model.Node
	Children []*phyloNode
	Parent   *phyloNode
	Expanded bool
	Depth    int
}

// TreeModel manages the phylogenetic tree view: cursor movement, manual
// expand/collapse, and the timed reveal sequence.
type TreeModel struct {
	root     *phyloNode
	flatList []*phyloNode // Flattened visible nodes for navigation
	nodeMap  map[string]*phyloNode
	cursor   int
	theme    Theme
	width    int
	height   int
	offset   int // Index of first visible row

	built bool

	// Reveal sequencing. Any manual interaction bumps expandGen, which
	// orphans every pending timed step; treeGen only advances on Build,
	// so the one-shot audit survives interaction but not tree replacement.
	expandGen   uint64
	treeGen     uint64
	schedule    []string // BFS order of internal node ids
	autoActive  bool     // A timed reveal or collapse is running
	auditDone   bool     // The silhouette audit has been scheduled for this tree
	silhouettes map[string]SilhouetteState
}

// NewTreeModel creates an empty tree model.
func NewTreeModel(theme Theme) TreeModel {
	return TreeModel{
		theme:       theme,
		nodeMap:     make(map[string]*phyloNode),
		silhouettes: make(map[string]SilhouetteState),
	}
}

// SetSize updates the visible window.
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.clampScroll()
}

// Built reports whether a tree is loaded.
func (t *TreeModel) Built() bool { return t.built }

// Build loads a new tree collapsed to the root. The reveal (timed or
// manual) happens afterwards.
func (t *TreeModel) Build(root *model.Node) {
	t.root = nil
	t.nodeMap = make(map[string]*phyloNode)
	t.silhouettes = make(map[string]SilhouetteState)
	t.cursor = 0
	t.offset = 0
	t.schedule = nil
	t.autoActive = false
	t.expandGen++
	t.treeGen++
	t.auditDone = false
	t.built = false
	if root == nil {
		t.flatList = nil
		return
	}

	var wrap func(n *model.Node, parent *phyloNode, depth int) *phyloNode
	wrap = func(n *model.Node, parent *phyloNode, depth int) *phyloNode {
		pn := &phyloNode{Node: n, Parent: parent, Depth: depth}
		for _, c := range n.Children {
			pn.Children = append(pn.Children, wrap(c, pn, depth+1))
		}
		t.nodeMap[n.ID] = pn
		return pn
	}
	t.root = wrap(root, nil, 0)
	t.schedule = root.InternalIDsBreadthFirst()
	for _, target := range root.SilhouetteTargets() {
		t.silhouettes[target.NodeID] = SilhouettePending
	}
	t.built = true
	t.rebuildFlatList()
}

// SetSilhouetteState records resolver progress for one node.
func (t *TreeModel) SetSilhouetteState(nodeID string, state SilhouetteState) {
	if _, ok := t.silhouettes[nodeID]; ok || state != SilhouetteNone {
		t.silhouettes[nodeID] = state
	}
}

// --- timed reveal ----------------------------------------------------------

// StartAutoExpand begins the staged reveal. Returns nil when the tree has
// nothing to expand.
func (t *TreeModel) StartAutoExpand() tea.Cmd {
	if !t.built || len(t.schedule) == 0 {
		return nil
	}
	t.autoActive = true
	gen := t.expandGen
	return tea.Tick(autoExpandInitialDelay, func(time.Time) tea.Msg {
		return AutoExpandStepMsg{Gen: gen, Index: 0}
	})
}

// StartCollapse begins the timed fold back to the root, bottom-up.
func (t *TreeModel) StartCollapse() tea.Cmd {
	if !t.built || len(t.schedule) == 0 {
		return nil
	}
	t.autoActive = true
	gen := t.expandGen
	last := len(t.schedule) - 1
	return tea.Tick(collapseStepDelay, func(time.Time) tea.Msg {
		return CollapseStepMsg{Gen: gen, Index: last}
	})
}

// AutoExpanding reports whether a timed sequence is running.
func (t *TreeModel) AutoExpanding() bool { return t.autoActive }

// Update advances the timed sequences. Stale messages (superseded by a
// manual interaction or a newer tree) are dropped.
func (t *TreeModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case AutoExpandStepMsg:
		if msg.Gen != t.expandGen || !t.autoActive {
			return nil
		}
		if msg.Index < len(t.schedule) {
			t.setExpanded(t.schedule[msg.Index], true)
		}
		next := msg.Index + 1
		gen := t.expandGen
		if next < len(t.schedule) {
			return tea.Tick(autoExpandStepDelay, func(time.Time) tea.Msg {
				return AutoExpandStepMsg{Gen: gen, Index: next}
			})
		}
		t.autoActive = false
		return t.maybeScheduleAudit()

	case CollapseStepMsg:
		if msg.Gen != t.expandGen || !t.autoActive {
			return nil
		}
		if msg.Index >= 0 && msg.Index < len(t.schedule) {
			t.setExpanded(t.schedule[msg.Index], false)
		}
		next := msg.Index - 1
		if next >= 0 {
			gen := t.expandGen
			return tea.Tick(collapseStepDelay, func(time.Time) tea.Msg {
				return CollapseStepMsg{Gen: gen, Index: next}
			})
		}
		t.autoActive = false
		t.cursor = 0
		t.offset = 0
		return nil
	}
	return nil
}

// AuditCurrent reports whether an audit message belongs to this tree.
// The audit is keyed to the tree, not the expansion sequence, so manual
// interaction during the settle window does not orphan it.
func (t *TreeModel) AuditCurrent(msg SilhouetteAuditMsg) bool {
	return t.built && msg.Gen == t.treeGen
}

// maybeScheduleAudit arms the one-shot silhouette audit the first time
// this tree reaches full expansion, whether the timed reveal or a manual
// expand got it there.
func (t *TreeModel) maybeScheduleAudit() tea.Cmd {
	if !t.built || t.auditDone || !t.FullyExpanded() {
		return nil
	}
	t.auditDone = true
	gen := t.treeGen
	return tea.Tick(silhouetteSettleDelay, func(time.Time) tea.Msg {
		return SilhouetteAuditMsg{Gen: gen}
	})
}

// interrupt cancels any running timed sequence. Called on every manual
// interaction: the user's hand always wins over the scheduler.
func (t *TreeModel) interrupt() {
	t.expandGen++
	t.autoActive = false
}

// --- manual navigation -----------------------------------------------------

// MoveUp moves the cursor one visible row up.
func (t *TreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
	}
	t.clampScroll()
}

// MoveDown moves the cursor one visible row down.
func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.flatList)-1 {
		t.cursor++
	}
	t.clampScroll()
}

// Toggle flips the node under the cursor. When the flip completes the
// first full expansion, the audit tick comes back as a command.
func (t *TreeModel) Toggle() tea.Cmd {
	node := t.selectedNode()
	if node == nil || len(node.Children) == 0 {
		return nil
	}
	t.interrupt()
	node.Expanded = !node.Expanded
	t.rebuildFlatList()
	return t.maybeScheduleAudit()
}

// ExpandAll reveals the whole tree at once.
func (t *TreeModel) ExpandAll() tea.Cmd {
	if !t.built {
		return nil
	}
	t.interrupt()
	for _, id := range t.schedule {
		if pn, ok := t.nodeMap[id]; ok {
			pn.Expanded = true
		}
	}
	t.rebuildFlatList()
	return t.maybeScheduleAudit()
}

// CollapseAll folds the tree back to the root immediately.
func (t *TreeModel) CollapseAll() {
	if !t.built {
		return
	}
	t.interrupt()
	for _, id := range t.schedule {
		if pn, ok := t.nodeMap[id]; ok {
			pn.Expanded = false
		}
	}
	t.cursor = 0
	t.offset = 0
	t.rebuildFlatList()
}

// FullyExpanded reports whether every internal node is open.
func (t *TreeModel) FullyExpanded() bool {
	if !t.built {
		return false
	}
	for _, id := range t.schedule {
		if pn, ok := t.nodeMap[id]; ok && !pn.Expanded {
			return false
		}
	}
	return true
}

// ExpandedCount returns how many internal nodes are currently open,
// alongside the internal-node total.
func (t *TreeModel) ExpandedCount() (open, total int) {
	if !t.built {
		return 0, 0
	}
	total = len(t.schedule)
	for _, id := range t.schedule {
		if pn, ok := t.nodeMap[id]; ok && pn.Expanded {
			open++
		}
	}
	return open, total
}

// selectedNode returns the view node under the cursor, or nil.
func (t *TreeModel) selectedNode() *phyloNode {
	if t.cursor < 0 || t.cursor >= len(t.flatList) {
		return nil
	}
	return t.flatList[t.cursor]
}

// Selected returns the domain node under the cursor, or nil.
func (t *TreeModel) Selected() *model.Node {
	if pn := t.selectedNode(); pn != nil {
		return pn.Node
	}
	return nil
}

func (t *TreeModel) setExpanded(id string, expanded bool) {
	if pn, ok := t.nodeMap[id]; ok {
		pn.Expanded = expanded
		t.rebuildFlatList()
	}
}

func (t *TreeModel) rebuildFlatList() {
	t.flatList = t.flatList[:0]
	var walk func(pn *phyloNode)
	walk = func(pn *phyloNode) {
		t.flatList = append(t.flatList, pn)
		if !pn.Expanded {
			return
		}
		for _, c := range pn.Children {
			walk(c)
		}
	}
	if t.root != nil {
		walk(t.root)
	}
	if t.cursor >= len(t.flatList) {
		t.cursor = len(t.flatList) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.clampScroll()
}

func (t *TreeModel) clampScroll() {
	if t.height <= 0 {
		return
	}
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if t.cursor >= t.offset+t.height {
		t.offset = t.cursor - t.height + 1
	}
	if t.offset < 0 {
		t.offset = 0
	}
}

// VisibleCount returns the number of rows in the flattened view.
func (t *TreeModel) VisibleCount() int { return len(t.flatList) }

// --- rendering -------------------------------------------------------------

func (t *TreeModel) View() string {
	if !t.built || len(t.flatList) == 0 {
		return t.theme.MutedText.Render("No tree yet. Select species and press g to generate one.")
	}

	var sb strings.Builder
	start := t.offset
	end := len(t.flatList)
	if t.height > 0 && start+t.height < end {
		end = start + t.height
	}

	for i := start; i < end; i++ {
		line := t.renderRow(t.flatList[i], i == t.cursor)
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if t.height > 0 && len(t.flatList) > t.height {
		sb.WriteString(t.theme.MutedText.Render(
			fmt.Sprintf("  %d-%d of %d", start+1, end, len(t.flatList))))
	}

	return sb.String()
}

func (t *TreeModel) renderRow(pn *phyloNode, selected bool) string {
	n := pn.Node
	indent := strings.Repeat("  ", pn.Depth)

	marker := "  "
	if len(pn.Children) > 0 {
		if pn.Expanded {
			marker = "▾ "
		} else {
			marker = "▸ "
		}
	}

	glyph := t.nodeGlyph(n)
	label := n.DisplayLabel()

	labelStyle := t.theme.Renderer.NewStyle().Foreground(t.theme.NodeTypeColor(n.Type))
	if n.Type == "species" {
		labelStyle = labelStyle.Bold(true)
	}

	width := t.width
	if width <= 0 {
		width = 80
	}
	aged := n.Type == "species" && n.HasAge
	avail := width - lipgloss.Width(indent+marker+glyph) - 3
	if aged {
		avail -= 2
	}
	line := indent + marker + glyph + " " + labelStyle.Render(truncate(label, avail))
	if aged {
		line += " " + t.theme.DatelifeMark.Render("✦")
	}

	if selected {
		return t.theme.Selected.Render(line)
	}
	return line
}

// nodeGlyph picks a marker for a node: silhouette status for leaves that
// declare one, a plain shape otherwise.
func (t *TreeModel) nodeGlyph(n *model.Node) string {
	if n.PhylopicUUID != "" {
		switch t.silhouettes[n.ID] {
		case SilhouetteReady:
			return t.theme.SuccessText.Render("◉")
		case SilhouetteMissing:
			return t.theme.MutedText.Render("○")
		default:
			return t.theme.WorkingText.Render("◌")
		}
	}
	if n.Shape == "square" {
		return "■"
	}
	return "●"
}
