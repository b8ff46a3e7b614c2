package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/model"
)

// searchDebounce is how long typing must pause before a query fires.
const searchDebounce = 300 * time.Millisecond

// searchMinChars matches the backend's minimum query length.
const searchMinChars = 2

const searchResultLimit = 10

// SpeciesSearcher is the search surface of the backend client.
type SpeciesSearcher interface {
	SearchSpecies(ctx context.Context, query string, limit int) ([]model.Species, error)
}

// SearchDebounceMsg fires when the typing pause elapses.
type SearchDebounceMsg struct {
	Gen uint64
}

// SearchResultsMsg carries one completed search.
type SearchResultsMsg struct {
	Gen     uint64
	Query   string
	Results []model.Species
	Err     error
}

// SearchModel is the species search panel: a text input with debounced
// remote lookup and a navigable result list.
type SearchModel struct {
	input   textinput.Model
	theme   Theme
	service SpeciesSearcher

	gen       uint64 // Bumped per keystroke; stale async results are dropped
	results   []model.Species
	cursor    int
	searching bool
	errText   string
	width     int
}

// NewSearchModel creates the search panel.
func NewSearchModel(theme Theme, service SpeciesSearcher) SearchModel {
	input := textinput.New()
	input.Placeholder = "Type a species name (e.g. wombat)"
	input.CharLimit = 80
	input.Prompt = "/ "
	return SearchModel{
		input:   input,
		theme:   theme,
		service: service,
	}
}

// Focus activates the text input.
func (s *SearchModel) Focus() tea.Cmd {
	return s.input.Focus()
}

// Blur deactivates the text input.
func (s *SearchModel) Blur() {
	s.input.Blur()
}

// Focused reports whether the input is active.
func (s *SearchModel) Focused() bool {
	return s.input.Focused()
}

// SetWidth resizes the panel.
func (s *SearchModel) SetWidth(width int) {
	s.width = width
	if width > 6 {
		s.input.Width = width - 6
	}
}

// Query returns the trimmed current query.
func (s *SearchModel) Query() string {
	return strings.TrimSpace(s.input.Value())
}

// Results returns the current result list.
func (s *SearchModel) Results() []model.Species {
	return s.results
}

// Highlighted returns the species under the result cursor, or false.
func (s *SearchModel) Highlighted() (model.Species, bool) {
	if s.cursor < 0 || s.cursor >= len(s.results) {
		return model.Species{}, false
	}
	return s.results[s.cursor], true
}

// MoveUp moves the result cursor up.
func (s *SearchModel) MoveUp() {
	if s.cursor > 0 {
		s.cursor--
	}
}

// MoveDown moves the result cursor down.
func (s *SearchModel) MoveDown() {
	if s.cursor < len(s.results)-1 {
		s.cursor++
	}
}

// Reset clears the query and results.
func (s *SearchModel) Reset() {
	s.input.SetValue("")
	s.results = nil
	s.cursor = 0
	s.searching = false
	s.errText = ""
	s.gen++
}

// HandleInput feeds a key to the text input and schedules the debounce.
func (s *SearchModel) HandleInput(msg tea.Msg) tea.Cmd {
	before := s.input.Value()
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	if s.input.Value() == before {
		return cmd
	}

	s.gen++
	gen := s.gen
	s.errText = ""
	if len(s.Query()) < searchMinChars {
		// Below the minimum the list clears without a network call.
		s.results = nil
		s.cursor = 0
		s.searching = false
		return cmd
	}
	s.searching = true
	return tea.Batch(cmd, tea.Tick(searchDebounce, func(time.Time) tea.Msg {
		return SearchDebounceMsg{Gen: gen}
	}))
}

// Update handles debounce and result messages. Stale generations are
// dropped so a slow response never overwrites a newer query's results.
func (s *SearchModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case SearchDebounceMsg:
		if msg.Gen != s.gen {
			return nil
		}
		query := s.Query()
		if len(query) < searchMinChars {
			return nil
		}
		gen := s.gen
		service := s.service
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			results, err := service.SearchSpecies(ctx, query, searchResultLimit)
			return SearchResultsMsg{Gen: gen, Query: query, Results: results, Err: err}
		}

	case SearchResultsMsg:
		if msg.Gen != s.gen {
			return nil
		}
		s.searching = false
		if msg.Err != nil {
			s.errText = UserFacingError(msg.Err)
			s.results = nil
			s.cursor = 0
			return nil
		}
		s.results = msg.Results
		s.cursor = 0
	}
	return nil
}

// View renders the input and result rows.
func (s *SearchModel) View(selection model.Selection) string {
	var sb strings.Builder
	sb.WriteString(s.input.View())
	sb.WriteString("\n")

	switch {
	case s.errText != "":
		sb.WriteString(s.theme.ErrorText.Render(s.errText))
	case s.searching:
		sb.WriteString(s.theme.WorkingText.Render("searching…"))
	case len(s.results) == 0 && len(s.Query()) >= searchMinChars:
		sb.WriteString(s.theme.MutedText.Render("no matches"))
	case len(s.Query()) < searchMinChars && s.Query() != "":
		sb.WriteString(s.theme.MutedText.Render(
			fmt.Sprintf("type at least %d characters", searchMinChars)))
	}

	for i, sp := range s.results {
		sb.WriteString("\n")
		prefix := "  "
		if selection.Contains(sp.Common) {
			prefix = "✓ "
		}
		if i == s.cursor && s.input.Focused() {
			sb.WriteString(s.theme.Selected.Render(truncate(prefix+sp.Label(), s.width-4)))
			continue
		}
		line := prefix + truncate(sp.Common, s.width-6)
		if sci := sp.Scientific; sci != "" && sci != sp.Common &&
			runewidth.StringWidth(prefix+sp.Common+sci)+3 <= s.width-4 {
			line += " " + s.theme.SecondaryText.Render("("+sci+")")
		}
		sb.WriteString(" " + line)
	}
	return sb.String()
}
