package ui

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jarrodharvey/evolution-mapper-frontend/internal/history"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/api"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/config"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/debug"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/export"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/model"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/phylopic"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/watcher"
)

// revealDelay holds a finished tree back so the completed checklist is
// readable before the view switches.
const revealDelay = 3200 * time.Millisecond

type focusArea int

const (
	focusSearch focusArea = iota
	focusSelection
	focusTree
)

// Messages private to the top-level model.

// RevealMsg switches from checklist to tree once the delay elapses.
type RevealMsg struct {
	Gen uint64
}

// SilhouetteResolvedMsg reports one resolver fetch.
type SilhouetteResolvedMsg struct {
	Gen    uint64
	NodeID string
	Err    error
}

// AuditDoneMsg reports the one-shot post-reveal audit.
type AuditDoneMsg struct {
	Gen    uint64
	Result phylopic.AuditResult
}

// ExportDoneMsg reports a snapshot export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// HistoryLoadedMsg carries recent generations for the picker.
type HistoryLoadedMsg struct {
	Entries []history.Entry
	Err     error
}

// ConfigChangedMsg fires when the config file is edited on disk.
type ConfigChangedMsg struct{}

// Model is the main Bubble Tea model for evomap.
type Model struct {
	theme  Theme
	cfg    config.Config
	client *api.Client

	worker   *GenerationWorker
	resolver *phylopic.Resolver
	store    *history.Store   // nil when the state dir is unavailable
	watcher  *watcher.Watcher // nil when config watching is disabled

	width  int
	height int
	focus  focusArea

	search    SearchModel
	selection model.Selection
	selCursor int
	tree      TreeModel
	info      InfoPane
	showInfo  bool
	legend    LegendPanel
	progress  ProgressView
	notices   Notices
	pages     Pages
	picker    HistoryPicker

	phase     GenPhase
	curGen    uint64
	result    *model.TreeResult
	resultSel model.Selection
	quitting  bool
}

// NewModel wires the full UI.
func NewModel(cfg config.Config, client *api.Client, store *history.Store, cfgWatcher *watcher.Watcher) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	m := Model{
		theme:    theme,
		cfg:      cfg,
		client:   client,
		worker:   NewGenerationWorker(client),
		resolver: phylopic.NewResolver(client, cfg.UI.SilhouetteSize),
		store:    store,
		watcher:  cfgWatcher,
		search:   NewSearchModel(theme, client),
		tree:     NewTreeModel(theme),
		info:     NewInfoPane(theme),
		legend:   NewLegendPanel(theme),
		progress: NewProgressView(theme),
		notices:  NewNotices(theme),
		pages:    NewPages(theme, client),
		picker:   NewHistoryPicker(theme),
	}
	return m
}

// Init starts the message pumps.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.search.Focus(),
		m.progress.Tick(),
		WaitForWorkerMsgCmd(m.worker),
	}
	if m.watcher != nil {
		cmds = append(cmds, waitForConfigChangeCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

func waitForConfigChangeCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return ConfigChangedMsg{}
	}
}

// Update is the central event loop.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	// --- worker messages ---------------------------------------------------

	case TokenObtainedMsg:
		if msg.Gen == m.worker.Generation() {
			m.phase = PhaseGenerating
			m.progress.SetPhase(m.phase)
		}
		return m, WaitForWorkerMsgCmd(m.worker)

	case ProgressMsg:
		if msg.Gen == m.worker.Generation() {
			m.progress.SetSnapshot(msg.Snapshot)
		}
		return m, WaitForWorkerMsgCmd(m.worker)

	case RandomPickMsg:
		cmds = append(cmds, WaitForWorkerMsgCmd(m.worker))
		if msg.Gen != m.worker.Generation() {
			return m, tea.Batch(cmds...)
		}
		if msg.Err != nil {
			m.phase = PhaseIdle
			m.progress.SetPhase(m.phase)
			cmds = append(cmds, m.notices.Show(NoticeError, UserFacingError(msg.Err)))
			return m, tea.Batch(cmds...)
		}
		m.selection = msg.Selection
		m.selCursor = 0
		cmds = append(cmds, m.startGeneration())
		return m, tea.Batch(cmds...)

	case GenerationDoneMsg:
		cmds = append(cmds, WaitForWorkerMsgCmd(m.worker))
		if msg.Gen != m.worker.Generation() {
			return m, tea.Batch(cmds...)
		}
		cmds = append(cmds, m.handleGenerationDone(msg)...)
		return m, tea.Batch(cmds...)

	// --- reveal and tree ----------------------------------------------------

	case RevealMsg:
		if msg.Gen != m.curGen || m.result == nil {
			return m, nil
		}
		return m, tea.Batch(m.revealTree()...)

	case AutoExpandStepMsg, CollapseStepMsg:
		if cmd := m.tree.Update(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case SilhouetteAuditMsg:
		if !m.tree.AuditCurrent(msg) || m.result == nil || m.result.Tree == nil {
			return m, nil
		}
		return m, m.auditCmd()

	case SilhouetteResolvedMsg:
		if msg.Gen == m.curGen {
			state := SilhouetteReady
			if msg.Err != nil {
				state = SilhouetteMissing
			}
			m.tree.SetSilhouetteState(msg.NodeID, state)
		}
		return m, nil

	case AuditDoneMsg:
		if msg.Gen == m.curGen && m.result != nil && m.result.Tree != nil {
			for _, target := range m.result.Tree.SilhouetteTargets() {
				if _, ok := m.resolver.Cached(target.UUID, target.Color); ok {
					m.tree.SetSilhouetteState(target.NodeID, SilhouetteReady)
				} else {
					m.tree.SetSilhouetteState(target.NodeID, SilhouetteMissing)
				}
			}
			if msg.Result.Recovered > 0 {
				debug.Log("audit recovered %d silhouettes", msg.Result.Recovered)
			}
		}
		return m, nil

	// --- async odds and ends ------------------------------------------------

	case ExportDoneMsg:
		if msg.Err != nil {
			return m, m.notices.Show(NoticeError, "Export failed: "+msg.Err.Error())
		}
		return m, m.notices.Show(NoticeSuccess, "Snapshot saved to "+msg.Path)

	case HistoryLoadedMsg:
		if msg.Err != nil {
			return m, m.notices.Show(NoticeError, "Could not load history: "+msg.Err.Error())
		}
		m.picker.Open(msg.Entries)
		return m, nil

	case ConfigChangedMsg:
		cmds = append(cmds, waitForConfigChangeCmd(m.watcher))
		if cfg, err := config.Load(); err == nil {
			m.cfg = cfg
			m.client.SetCredentials(cfg.Backend.URL, cfg.Backend.APIKey)
			cmds = append(cmds, m.notices.Show(NoticeInfo, "Configuration reloaded"))
		} else {
			cmds = append(cmds, m.notices.Show(NoticeWarning, "Config reload failed: "+err.Error()))
		}
		return m, tea.Batch(cmds...)

	case NoticeExpiredMsg:
		m.notices.Update(msg)
		return m, nil

	case SearchDebounceMsg, SearchResultsMsg:
		if cmd := m.search.Update(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case AcknowledgementsMsg:
		if cmd := m.pages.Update(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	// Spinner frames and viewport scrolling.
	if cmd := m.progress.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if cmd := m.pages.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// --- generation lifecycle ---------------------------------------------------

func (m *Model) startGeneration() tea.Cmd {
	if err := m.selection.Validate(); err != nil {
		return m.notices.Show(NoticeWarning, err.Error())
	}
	m.phase = PhaseTokenRequested
	m.progress.SetPhase(m.phase)
	m.legend.Clear()
	m.result = nil
	m.curGen = m.worker.StartGeneration(m.selection, true)
	return nil
}

func (m *Model) handleGenerationDone(msg GenerationDoneMsg) []tea.Cmd {
	var cmds []tea.Cmd
	switch msg.Outcome {
	case OutcomeSuccess, OutcomePartial:
		m.result = msg.Result
		m.resultSel = msg.Selection
		m.phase = PhaseRevealPending
		m.progress.SetPhase(m.phase)
		if msg.HasLegend {
			m.legend.SetLegend(msg.Legend)
		}
		gen := m.curGen
		cmds = append(cmds, tea.Tick(revealDelay, func(time.Time) tea.Msg {
			return RevealMsg{Gen: gen}
		}))
		if msg.Outcome == OutcomePartial {
			missing := append([]string{}, msg.Result.MissingCommon...)
			missing = append(missing, msg.Result.DroppedCommon...)
			cmds = append(cmds, m.notices.Show(NoticeWarning,
				"Tree built without: "+summarizeNames(missing, 3)))
		}
		if m.store != nil {
			store, sel := m.store, msg.Selection
			legendType, coverage := msg.Result.LegendType, msg.Result.Coverage
			cmds = append(cmds, func() tea.Msg {
				if err := store.Record(sel, legendType, coverage); err != nil {
					debug.Log("history record failed: %v", err)
				}
				return nil
			})
		}

	case OutcomeNoCoverage:
		m.phase = PhaseIdle
		m.progress.SetPhase(m.phase)
		text := "No dated evolutionary tree could be built for that selection. Try different species."
		if msg.Result != nil && msg.Result.ErrMessage != "" {
			text = msg.Result.ErrMessage
		}
		cmds = append(cmds, m.notices.Show(NoticeWarning, text))

	default:
		m.phase = PhaseIdle
		m.progress.SetPhase(m.phase)
		cmds = append(cmds, m.notices.Show(NoticeError, UserFacingError(msg.Err)))
	}
	return cmds
}

// revealTree swaps the checklist for the tree and kicks off the staged
// expansion plus silhouette resolution.
func (m *Model) revealTree() []tea.Cmd {
	m.phase = PhaseIdle
	m.progress.SetPhase(m.phase)
	m.tree.Build(m.result.Tree)
	m.focus = focusTree
	m.search.Blur()

	var cmds []tea.Cmd
	if m.result.Tree != nil {
		gen := m.curGen
		for _, target := range m.result.Tree.SilhouetteTargets() {
			resolver, t := m.resolver, target
			cmds = append(cmds, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				_, err := resolver.Resolve(ctx, t.UUID, t.Color)
				return SilhouetteResolvedMsg{Gen: gen, NodeID: t.NodeID, Err: err}
			})
		}
		if m.cfg.AutoExpandEnabled() {
			if cmd := m.tree.StartAutoExpand(); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
	} else if m.result.HTML != "" {
		// Opaque pre-rendered document; never parsed, only saved.
		cmds = append(cmds, m.notices.Show(NoticeInfo,
			"Backend sent a pre-rendered document · press s to save it"))
	}
	return cmds
}

func (m *Model) auditCmd() tea.Cmd {
	gen := m.curGen
	resolver := m.resolver
	var targets []phylopic.AuditTarget
	for _, t := range m.result.Tree.SilhouetteTargets() {
		targets = append(targets, phylopic.AuditTarget{UUID: t.UUID, Color: t.Color})
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		result, _ := resolver.Audit(ctx, targets)
		return AuditDoneMsg{Gen: gen, Result: result}
	}
}

// --- key handling -----------------------------------------------------------

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Overlays swallow keys first.
	if m.picker.IsOpen() {
		return m.handlePickerKey(key)
	}
	if m.pages.Current() != PageNone {
		switch key {
		case "esc", "q":
			m.pages.Close()
			return m, nil
		}
		return m, m.pages.Update(msg)
	}

	switch key {
	case "ctrl+c":
		m.quitting = true
		m.worker.Stop()
		return m, tea.Quit
	case "q":
		if m.focus != focusSearch || !m.search.Focused() {
			m.quitting = true
			m.worker.Stop()
			return m, tea.Quit
		}
	case "esc":
		if m.phase == PhaseTokenRequested || m.phase == PhaseGenerating {
			m.worker.Cancel()
			m.phase = PhaseIdle
			m.progress.SetPhase(m.phase)
			return m, m.notices.Show(NoticeInfo, "Generation cancelled")
		}
		if m.focus == focusSearch && m.search.Focused() {
			m.search.Blur()
			return m, nil
		}
	case "tab":
		m.cycleFocus()
		return m, nil
	}

	if m.focus == focusSearch && m.search.Focused() {
		return m.handleSearchKey(msg, key)
	}

	switch key {
	case "/":
		m.focus = focusSearch
		return m, m.search.Focus()
	case "g":
		return m, m.startGeneration()
	case "r":
		count := RandomMin + rand.IntN(RandomMax-RandomMin+1)
		m.phase = PhaseTokenRequested
		m.progress.SetPhase(m.phase)
		m.curGen = m.worker.StartRandom(count)
		return m, nil
	case "h":
		return m, m.loadHistoryCmd()
	case "a":
		return m, m.pages.OpenAcknowledgements()
	case "i", "?":
		// On the tree "i" belongs to the node detail pane, not the
		// about page.
		if key == "i" && m.focus == focusTree && m.tree.Built() {
			break
		}
		m.pages.OpenAbout()
		return m, nil
	case "s":
		return m, m.exportCmd()
	}

	switch m.focus {
	case focusSelection:
		return m.handleSelectionKey(key)
	case focusTree:
		return m.handleTreeKey(key)
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg, key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up":
		m.search.MoveUp()
		return m, nil
	case "down":
		m.search.MoveDown()
		return m, nil
	case "enter":
		sp, ok := m.search.Highlighted()
		if !ok {
			return m, nil
		}
		if m.selection.Contains(sp.Common) {
			return m, m.notices.Show(NoticeInfo, sp.Common+" is already selected")
		}
		if len(m.selection) >= model.MaxSpecies {
			return m, m.notices.Show(NoticeWarning,
				fmt.Sprintf("Selection is full (%d species max)", model.MaxSpecies))
		}
		m.selection = append(m.selection, sp)
		return m, nil
	}
	return m, m.search.HandleInput(msg)
}

func (m Model) handleSelectionKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		if m.selCursor > 0 {
			m.selCursor--
		}
	case "down", "j":
		if m.selCursor < len(m.selection)-1 {
			m.selCursor++
		}
	case "d", "backspace", "delete":
		if m.selCursor >= 0 && m.selCursor < len(m.selection) {
			m.selection = append(m.selection[:m.selCursor], m.selection[m.selCursor+1:]...)
			if m.selCursor >= len(m.selection) && m.selCursor > 0 {
				m.selCursor--
			}
		}
	case "x":
		m.selection = nil
		m.selCursor = 0
	case "Y":
		if len(m.selection) > 0 {
			text := strings.Join(m.selection.CommonNames(), ", ")
			if err := clipboard.WriteAll(text); err == nil {
				return m, m.notices.Show(NoticeInfo, "Selection copied")
			}
		}
	}
	return m, nil
}

func (m Model) handleTreeKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.tree.MoveUp()
	case "down", "j":
		m.tree.MoveDown()
	case "enter", " ":
		return m, m.tree.Toggle()
	case "e":
		return m, m.tree.ExpandAll()
	case "c":
		if m.tree.FullyExpanded() {
			if cmd := m.tree.StartCollapse(); cmd != nil {
				return m, cmd
			}
		}
		m.tree.CollapseAll()
	case "y":
		if node := m.tree.Selected(); node != nil {
			if err := clipboard.WriteAll(node.DisplayLabel()); err == nil {
				return m, m.notices.Show(NoticeInfo, "Copied "+node.DisplayLabel())
			}
		}
	case "i":
		node := m.tree.Selected()
		if node == nil || !node.Info.HasContent() {
			return m, m.notices.Show(NoticeInfo, "No details for this node")
		}
		m.showInfo = !m.showInfo
		m.layout()
	}
	return m, nil
}

func (m Model) handlePickerKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc", "q":
		m.picker.Close()
	case "up", "k":
		m.picker.MoveUp()
	case "down", "j":
		m.picker.MoveDown()
	case "enter":
		if entry, ok := m.picker.Selected(); ok {
			m.picker.Close()
			m.selection = entry.Selection()
			m.selCursor = 0
			return m, m.startGeneration()
		}
	}
	return m, nil
}

func (m *Model) cycleFocus() {
	switch m.focus {
	case focusSearch:
		m.search.Blur()
		m.focus = focusSelection
	case focusSelection:
		if m.tree.Built() {
			m.focus = focusTree
		} else {
			m.focus = focusSearch
		}
	default:
		m.focus = focusSearch
	}
}

// --- async commands ---------------------------------------------------------

func (m *Model) loadHistoryCmd() tea.Cmd {
	if m.store == nil {
		return m.notices.Show(NoticeWarning, "History is unavailable")
	}
	store := m.store
	return func() tea.Msg {
		entries, err := store.Recent(0)
		return HistoryLoadedMsg{Entries: entries, Err: err}
	}
}

func (m *Model) exportCmd() tea.Cmd {
	if m.result == nil || (m.result.Tree == nil && m.result.HTML == "") {
		return m.notices.Show(NoticeWarning, "Nothing to export yet")
	}
	if m.result.Tree == nil {
		// HTML-only payload: written out verbatim.
		html, dir := m.result.HTML, m.cfg.ExportDirOrDefault()
		return func() tea.Msg {
			path := filepath.Join(dir, fmt.Sprintf("evomap-%s.html", time.Now().Format("20060102-150405")))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return ExportDoneMsg{Path: path, Err: err}
			}
			err := os.WriteFile(path, []byte(html), 0o644)
			return ExportDoneMsg{Path: path, Err: err}
		}
	}
	tree := m.result.Tree
	legend := m.legend.legend
	title := strings.Join(m.resultSel.CommonNames(), ", ")
	dir := m.cfg.ExportDirOrDefault()
	resolver := m.resolver

	return func() tea.Msg {
		silhouettes := make(map[string]string)
		for _, t := range tree.SilhouetteTargets() {
			if dataURL, ok := resolver.Cached(t.UUID, t.Color); ok {
				silhouettes[t.NodeID] = dataURL
			}
		}
		path := filepath.Join(dir, fmt.Sprintf("evomap-%s.svg", time.Now().Format("20060102-150405")))
		err := export.SaveTreeSnapshot(export.SnapshotOptions{
			Path:        path,
			Title:       title,
			Root:        tree,
			Legend:      legend,
			Silhouettes: silhouettes,
		})
		return ExportDoneMsg{Path: path, Err: err}
	}
}

// --- view -------------------------------------------------------------------

func (m *Model) layout() {
	sidebar := m.sidebarWidth()
	m.search.SetWidth(sidebar - 4)
	m.legend.SetWidth(sidebar - 4)
	m.info.SetWidth(m.width - sidebar - 8)
	treeH := m.bodyHeight() - 2
	if m.showInfo {
		treeH -= infoPaneHeight
		if treeH < 3 {
			treeH = 3
		}
	}
	m.tree.SetSize(m.width-sidebar-6, treeH)
	m.pages.SetSize(m.width-4, m.bodyHeight())
	m.picker.SetSize(m.width-4, m.bodyHeight())
}

func (m *Model) sidebarWidth() int {
	w := m.width / 3
	if w < 32 {
		w = 32
	}
	if w > 48 {
		w = 48
	}
	return w
}

func (m *Model) bodyHeight() int {
	h := m.height - 4 // header + notice + footer
	if h < 5 {
		h = 5
	}
	return h
}

// View renders the whole screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "loading…"
	}

	header := m.theme.Header.Render("Evolution Mapper") + " " +
		m.theme.MutedText.Render(m.phaseLine())

	var body string
	switch {
	case m.picker.IsOpen():
		body = PanelStyle(m.theme.Renderer, true).Width(m.width - 4).Render(m.picker.View())
	case m.pages.Current() != PageNone:
		body = m.pages.View()
	default:
		body = m.mainBody()
	}

	notice := m.notices.View(m.width)
	footer := m.theme.MutedText.Render(m.footerHelp())

	sections := []string{header, body}
	if notice != "" {
		sections = append(sections, notice)
	}
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (m Model) phaseLine() string {
	switch m.phase {
	case PhaseTokenRequested, PhaseGenerating:
		return "generating…"
	case PhaseRevealPending:
		return "almost there…"
	default:
		if m.tree.Built() {
			open, total := m.tree.ExpandedCount()
			line := fmt.Sprintf("%d species · %d/%d expanded", len(m.resultSel), open, total)
			if m.result != nil && m.result.Tree != nil {
				if stats := m.result.Tree.AncestorAgeStats(); stats.Count > 0 {
					line += fmt.Sprintf(" · ancestor ages: mean %.0f Ma, median %.0f Ma", stats.Mean, stats.Median)
				}
			}
			return line
		}
		return ""
	}
}

func (m Model) mainBody() string {
	sidebar := m.renderSidebar()

	var main string
	if m.phase == PhaseTokenRequested || m.phase == PhaseGenerating || m.phase == PhaseRevealPending {
		main = m.progress.View()
	} else {
		main = m.tree.View()
		if m.showInfo {
			if detail := m.info.View(m.tree.Selected()); detail != "" {
				rule := strings.Repeat("─", max(m.width-m.sidebarWidth()-8, 8))
				main += "\n" + m.theme.MutedText.Render(rule) + "\n" + detail
			}
		}
	}
	mainPanel := PanelStyle(m.theme.Renderer, m.focus == focusTree).
		Width(m.width - m.sidebarWidth() - 4).
		Height(m.bodyHeight()).
		Render(main)

	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, mainPanel)
}

func (m Model) renderSidebar() string {
	var sb strings.Builder

	sb.WriteString(m.theme.PrimaryBold.Render("Search"))
	sb.WriteString("\n")
	sb.WriteString(m.search.View(m.selection))
	sb.WriteString("\n\n")

	sb.WriteString(m.theme.PrimaryBold.Render(
		fmt.Sprintf("Selection (%d/%d)", len(m.selection), model.MaxSpecies)))
	if len(m.selection) > 0 && len(m.selection) < model.MinSpecies {
		sb.WriteString(m.theme.MutedText.Render(
			fmt.Sprintf("  need %d more", model.MinSpecies-len(m.selection))))
	}
	sb.WriteString("\n")
	if len(m.selection) == 0 {
		sb.WriteString(m.theme.MutedText.Render("empty — search and press enter"))
	}
	for i, sp := range m.selection {
		line := truncate(sp.Label(), m.sidebarWidth()-6)
		sb.WriteString("\n")
		if m.focus == focusSelection && i == m.selCursor {
			sb.WriteString(m.theme.Selected.Render(line))
		} else {
			sb.WriteString("  " + line)
		}
	}

	if legend := m.legend.View(); legend != "" && m.tree.Built() {
		sb.WriteString("\n\n")
		sb.WriteString(legend)
	}

	return PanelStyle(m.theme.Renderer, m.focus != focusTree).
		Width(m.sidebarWidth()).
		Height(m.bodyHeight()).
		Render(sb.String())
}

func (m Model) footerHelp() string {
	if m.picker.IsOpen() {
		return "enter: rerun · esc: close"
	}
	if m.pages.Current() != PageNone {
		return "esc: close"
	}
	switch m.focus {
	case focusTree:
		return "↑/↓ move · enter: toggle · e/c: expand/collapse · i: details · s: export · y: copy · /: search · q: quit"
	case focusSelection:
		return "↑/↓ move · d: remove · x: clear · g: generate · tab: focus · q: quit"
	default:
		return "type to search · enter: add · g: generate · r: random · h: history · ?: help · tab: focus"
	}
}

// Selection returns the current working selection (test hook).
func (m Model) Selection() model.Selection { return m.selection }

// Phase returns the current lifecycle phase (test hook).
func (m Model) Phase() GenPhase { return m.phase }

// Compile-time checks that the client covers every service surface the
// UI consumes.
var _ TreeService = (*api.Client)(nil)
var _ SpeciesSearcher = (*api.Client)(nil)
var _ AcknowledgementsLoader = (*api.Client)(nil)
