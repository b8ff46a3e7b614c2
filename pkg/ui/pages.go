package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/api"
	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/version"
)

// Page identifies a markdown overlay page.
type Page int

const (
	PageNone Page = iota
	PageAbout
	PageAcknowledgements
)

// AcknowledgementsLoader fetches citations and attributions.
type AcknowledgementsLoader interface {
	Citations(ctx context.Context) ([]api.Citation, error)
	Attributions(ctx context.Context) ([]api.Attribution, error)
}

// AcknowledgementsMsg carries the fetched acknowledgement lists.
type AcknowledgementsMsg struct {
	Citations    []api.Citation
	Attributions []api.Attribution
	Err          error
}

// Pages renders the about and acknowledgements overlays through glamour.
type Pages struct {
	theme    Theme
	viewport viewport.Model
	current  Page
	loader   AcknowledgementsLoader

	citations    []api.Citation
	attributions []api.Attribution
	ackLoaded    bool
	ackErr       string
}

// NewPages creates the overlay pages.
func NewPages(theme Theme, loader AcknowledgementsLoader) Pages {
	return Pages{
		theme:    theme,
		viewport: viewport.New(80, 20),
		loader:   loader,
	}
}

// SetSize resizes the page viewport.
func (p *Pages) SetSize(width, height int) {
	p.viewport.Width = width
	p.viewport.Height = height
	if p.current != PageNone {
		p.render()
	}
}

// Current returns the page being shown.
func (p *Pages) Current() Page { return p.current }

// Close hides the overlay.
func (p *Pages) Close() { p.current = PageNone }

// OpenAbout shows the about page.
func (p *Pages) OpenAbout() {
	p.current = PageAbout
	p.render()
}

// OpenAcknowledgements shows the acknowledgements page, fetching its data
// on first open.
func (p *Pages) OpenAcknowledgements() tea.Cmd {
	p.current = PageAcknowledgements
	p.render()
	if p.ackLoaded || p.loader == nil {
		return nil
	}
	loader := p.loader
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		citations, err := loader.Citations(ctx)
		if err != nil {
			return AcknowledgementsMsg{Err: err}
		}
		attributions, err := loader.Attributions(ctx)
		if err != nil {
			return AcknowledgementsMsg{Citations: citations, Err: err}
		}
		return AcknowledgementsMsg{Citations: citations, Attributions: attributions}
	}
}

// Update handles page data and scrolling.
func (p *Pages) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case AcknowledgementsMsg:
		p.ackLoaded = true
		p.citations = msg.Citations
		p.attributions = msg.Attributions
		if msg.Err != nil {
			p.ackErr = UserFacingError(msg.Err)
		}
		if p.current == PageAcknowledgements {
			p.render()
		}
		return nil
	}
	if p.current == PageNone {
		return nil
	}
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return cmd
}

// View renders the current page.
func (p *Pages) View() string {
	if p.current == PageNone {
		return ""
	}
	footer := p.theme.MutedText.Render("↑/↓ scroll · esc: close")
	return p.viewport.View() + "\n" + footer
}

func (p *Pages) render() {
	var md string
	switch p.current {
	case PageAbout:
		md = aboutMarkdown()
	case PageAcknowledgements:
		md = p.acknowledgementsMarkdown()
	default:
		return
	}

	width := p.viewport.Width
	if width < 20 {
		width = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		p.viewport.SetContent(md)
		return
	}
	out, err := renderer.Render(md)
	if err != nil {
		p.viewport.SetContent(md)
		return
	}
	// Strip trailing whitespace/newlines that glamour adds
	p.viewport.SetContent(strings.TrimRight(out, "\n") + "\n")
	p.viewport.GotoTop()
}

func aboutMarkdown() string {
	return fmt.Sprintf(`# Evolution Mapper %s

Pick between 3 and 20 species and Evolution Mapper builds their dated
evolutionary tree: the ancestors they share, roughly when those
ancestors lived, and silhouettes of the modern species.

## How to read the tree

- **Species** are the leaves — the names you picked.
- **Ancestors** are the internal nodes. An age like *66 Ma* means the
  lineages split about 66 million years ago.
- A ◆ next to a search result means age data likely exists for it.

## Keys

| Key | Action |
|-----|--------|
| /   | search species |
| g   | generate tree |
| r   | random tree |
| e / c | expand / collapse all |
| s   | export snapshot |
| h   | recent trees |
| a   | acknowledgements |
| q   | quit |

Tree construction runs on a remote backend; nothing is computed locally.
`, version.Version)
}

func (p *Pages) acknowledgementsMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# Acknowledgements\n\n")

	if p.ackErr != "" {
		sb.WriteString("> " + p.ackErr + "\n\n")
	}
	if !p.ackLoaded && p.ackErr == "" {
		sb.WriteString("Loading…\n")
		return sb.String()
	}

	if len(p.citations) > 0 {
		sb.WriteString("## Data sources\n\n")
		for _, c := range p.citations {
			sb.WriteString(fmt.Sprintf("- **%s**", c.Title.String()))
			if a := c.Authors.String(); a != "" {
				sb.WriteString(" — " + a)
			}
			if j := c.Journal.String(); j != "" {
				sb.WriteString(", *" + j + "*")
			}
			if y := c.Year.String(); y != "" {
				sb.WriteString(" (" + y + ")")
			}
			if d := c.DOI.String(); d != "" {
				sb.WriteString(". doi:" + d)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(p.attributions) > 0 {
		sb.WriteString("## Image attributions\n\n")
		for _, a := range p.attributions {
			sb.WriteString(fmt.Sprintf("- %s", a.Name.String()))
			if c := a.Creator.String(); c != "" {
				sb.WriteString(" by " + c)
			}
			if l := a.License.String(); l != "" {
				sb.WriteString(" (" + l + ")")
			}
			sb.WriteString("\n")
		}
	}

	if len(p.citations) == 0 && len(p.attributions) == 0 && p.ackErr == "" {
		sb.WriteString("The backend returned no acknowledgement data.\n")
	}
	return sb.String()
}
