// Package model holds the domain types shared by the API client, the
// orchestration layer, and the UI: species selections, the phylogenetic
// node tree, progress snapshots, and legend entries.
package model

import "fmt"

// Selection size limits enforced before any tree-generation request.
const (
	MinSpecies = 3
	MaxSpecies = 20
)

// Species is one selectable species, as produced by search or random pick.
type Species struct {
	Common      string // Common name; unique within a selection
	Scientific  string // Scientific name; falls back to Common when absent
	HasDatelife bool   // Whether ancestral-age data is known to exist
}

// Label returns the display label "common (scientific)", with a marker when
// age data is available.
func (s Species) Label() string {
	label := s.Common
	if s.Scientific != "" && s.Scientific != s.Common {
		label = fmt.Sprintf("%s (%s)", s.Common, s.Scientific)
	}
	if s.HasDatelife {
		label += " ◆"
	}
	return label
}

// Selection is an ordered set of species, unique by common name.
type Selection []Species

// CommonNames returns the common names in selection order.
func (sel Selection) CommonNames() []string {
	out := make([]string, len(sel))
	for i, s := range sel {
		out[i] = s.Common
	}
	return out
}

// ScientificNames returns the scientific names in selection order,
// substituting the common name where no scientific name is known.
func (sel Selection) ScientificNames() []string {
	out := make([]string, len(sel))
	for i, s := range sel {
		if s.Scientific != "" {
			out[i] = s.Scientific
		} else {
			out[i] = s.Common
		}
	}
	return out
}

// Contains reports whether the selection already has a species with the
// given common name.
func (sel Selection) Contains(common string) bool {
	for _, s := range sel {
		if s.Common == common {
			return true
		}
	}
	return false
}

// Validate checks the selection size bounds. It returns nil when a tree can
// be requested for this selection.
func (sel Selection) Validate() error {
	if len(sel) < MinSpecies {
		return fmt.Errorf("select at least %d species to generate a tree (have %d)", MinSpecies, len(sel))
	}
	if len(sel) > MaxSpecies {
		return fmt.Errorf("select no more than %d species (have %d)", MaxSpecies, len(sel))
	}
	return nil
}
