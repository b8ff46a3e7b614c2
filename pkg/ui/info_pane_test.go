package ui

import (
	"strings"
	"testing"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/model"
)

func TestInfoPaneRendersNodeDetails(t *testing.T) {
	p := NewInfoPane(TestTheme())
	p.SetWidth(60)

	node := &model.Node{
		Label: "Mammalia",
		Info: &model.InfoPanel{
			WikipediaTitle:   "Mammal",
			WikipediaText:    "Mammals are vertebrates characterised by milk glands.",
			WikipediaURL:     "https://en.wikipedia.org/wiki/Mammal",
			GeologicAge:      "225 Ma (Triassic)",
			ImageAttribution: "Silhouette by A. Painter (CC0)",
		},
	}

	view := p.View(node)
	for _, want := range []string{
		"Mammal",
		"Geologic age: ",
		"225 Ma (Triassic)",
		"Read more: https://en.wikipedia.org/wiki/Mammal",
		"Image: Silhouette by A. Painter (CC0)",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestInfoPaneFallsBackToNodeLabel(t *testing.T) {
	p := NewInfoPane(TestTheme())
	p.SetWidth(60)

	node := &model.Node{
		Label: "Carnivora",
		Info:  &model.InfoPanel{GeologicAge: "42 Ma"},
	}
	if view := p.View(node); !strings.Contains(view, "Carnivora") {
		t.Errorf("View() did not fall back to the node label:\n%s", view)
	}
}

func TestInfoPaneEmptyForBareNodes(t *testing.T) {
	p := NewInfoPane(TestTheme())
	p.SetWidth(60)

	if view := p.View(nil); view != "" {
		t.Errorf("View(nil) = %q, want empty", view)
	}
	if view := p.View(&model.Node{Label: "Dog"}); view != "" {
		t.Errorf("View() for node without details = %q, want empty", view)
	}
}

func TestClipLines(t *testing.T) {
	in := "a\nb\nc\nd\ne"
	if got := clipLines(in, 3); got != "a\nb\nc…" {
		t.Errorf("clipLines = %q", got)
	}
	if got := clipLines("a\nb", 3); got != "a\nb" {
		t.Errorf("clipLines under limit = %q", got)
	}
}
