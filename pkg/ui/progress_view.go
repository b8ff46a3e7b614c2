package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/model"
)

// ProgressView renders the generation checklist while the backend works.
type ProgressView struct {
	theme    Theme
	spinner  spinner.Model
	snapshot model.ProgressSnapshot
	hasData  bool
	phase    GenPhase
}

// NewProgressView creates the checklist panel.
func NewProgressView(theme Theme) ProgressView {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.WorkingText
	return ProgressView{theme: theme, spinner: sp}
}

// Tick returns the spinner's animation command.
func (p *ProgressView) Tick() tea.Cmd {
	return p.spinner.Tick
}

// Update advances the spinner.
func (p *ProgressView) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	p.spinner, cmd = p.spinner.Update(msg)
	return cmd
}

// SetPhase records the lifecycle phase shown above the checklist.
func (p *ProgressView) SetPhase(phase GenPhase) {
	p.phase = phase
	if phase == PhaseIdle || phase == PhaseTokenRequested {
		p.snapshot = model.ProgressSnapshot{}
		p.hasData = false
	}
}

// SetSnapshot records the latest poll result.
func (p *ProgressView) SetSnapshot(snap model.ProgressSnapshot) {
	p.snapshot = snap
	p.hasData = true
}

// View renders the phase line and the reconciled step checklist.
func (p *ProgressView) View() string {
	var sb strings.Builder

	switch p.phase {
	case PhaseTokenRequested:
		sb.WriteString(p.spinner.View())
		sb.WriteString(p.theme.WorkingText.Render(" Contacting backend…"))
	case PhaseGenerating:
		sb.WriteString(p.spinner.View())
		sb.WriteString(p.theme.WorkingText.Render(" Growing your evolutionary tree…"))
	case PhaseRevealPending:
		sb.WriteString(p.theme.SuccessText.Render("✓ Tree ready"))
	default:
		return ""
	}
	sb.WriteString("\n")

	if !p.hasData {
		return sb.String()
	}

	for _, step := range p.snapshot.Reconcile() {
		sb.WriteString("\n")
		name := model.StepDisplayName(step.Name)
		if step.Completed() {
			line := "  ✓ " + name
			if step.HasDuration {
				line += fmt.Sprintf(" (%s)", FormatDuration(step.DurationSeconds))
			}
			sb.WriteString(p.theme.SuccessText.Render(line))
		} else {
			sb.WriteString("  " + p.spinner.View() + p.theme.WorkingText.Render(" "+name))
		}
	}

	if total, ok := p.snapshot.TotalDuration(); ok {
		sb.WriteString("\n\n")
		sb.WriteString(p.theme.MutedText.Render(
			fmt.Sprintf("  total: %s", FormatDuration(total))))
	}

	return sb.String()
}
