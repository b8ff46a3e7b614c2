package model

import (
	"sort"
	"strings"
)

// LegendEntry is one normalized legend item.
type LegendEntry struct {
	ID          string
	NodeType    string
	Label       string
	Color       string
	ColorName   string
	Description string
	Shape       string
	Phylopic    *LegendPhylopic
}

// LegendPhylopic is the neutral silhouette attached to a legend entry.
type LegendPhylopic struct {
	DataURL        string
	TaxonomicGroup string
	Attribution    string
}

// Legend is the legend for one tree, classified by the backend.
type Legend struct {
	Type    string // "no_dates", "mixed", "dated", "all_dates", "hybrid"
	Entries []LegendEntry
}

// Subtitle returns the descriptive subtitle for the legend's type.
func (l Legend) Subtitle() string {
	switch l.Type {
	case "no_dates":
		return "Basic tree structure"
	case "mixed":
		return "Age data + topology"
	case "dated":
		return "Full age information"
	case "hybrid":
		return "Combined data sources"
	default:
		return ""
	}
}

// PhylopicAttributions returns the distinct silhouette credit lines, in
// entry order.
func (l Legend) PhylopicAttributions() []string {
	seen := make(map[string]bool)
	var attrs []string
	for _, e := range l.Entries {
		if e.Phylopic == nil || e.Phylopic.Attribution == "" {
			continue
		}
		if seen[e.Phylopic.Attribution] {
			continue
		}
		seen[e.Phylopic.Attribution] = true
		attrs = append(attrs, e.Phylopic.Attribution)
	}
	return attrs
}

// Categorized reports whether entries should split into color and shape
// columns (dated-style trees) rather than render as a flat list.
func (l Legend) Categorized() bool {
	return l.Type == "dated" || l.Type == "mixed" || l.Type == "all_dates"
}

func (e LegendEntry) isAgeGradient() bool {
	return strings.Contains(e.NodeType, "ancestor") &&
		(strings.Contains(e.NodeType, "old") || strings.Contains(e.NodeType, "young"))
}

func (e LegendEntry) isShapeEntry() bool {
	return strings.Contains(e.Label, "Ancestor within Named Taxonomic Group") ||
		strings.Contains(e.Label, "Ancestor not in a named taxonomic group")
}

// AgeGradientEntries returns the entries that form the old→young color
// gradient, sorted oldest first. ancestor_no_age stays out of the gradient
// and renders as a regular item.
func (l Legend) AgeGradientEntries() []LegendEntry {
	var items []LegendEntry
	for _, e := range l.Entries {
		if e.isAgeGradient() {
			items = append(items, e)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return gradientRank(items[i].NodeType) < gradientRank(items[j].NodeType)
	})
	return items
}

// gradientRank orders "old" before other ancestor types before "young".
func gradientRank(nodeType string) int {
	switch {
	case strings.Contains(nodeType, "old"):
		return 0
	case strings.Contains(nodeType, "young"):
		return 2
	default:
		return 1
	}
}

// PlainEntries returns the non-gradient entries.
func (l Legend) PlainEntries() []LegendEntry {
	var items []LegendEntry
	for _, e := range l.Entries {
		if !e.isAgeGradient() {
			items = append(items, e)
		}
	}
	return items
}

// ColorEntries and ShapeEntries split the plain entries into the two
// columns used by categorized legend types.
func (l Legend) ColorEntries() []LegendEntry {
	var items []LegendEntry
	for _, e := range l.PlainEntries() {
		if !e.isShapeEntry() {
			items = append(items, e)
		}
	}
	return items
}

func (l Legend) ShapeEntries() []LegendEntry {
	var items []LegendEntry
	for _, e := range l.PlainEntries() {
		if e.isShapeEntry() {
			items = append(items, e)
		}
	}
	return items
}
