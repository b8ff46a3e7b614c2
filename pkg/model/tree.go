package model

import (
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// Node is one node of the phylogenetic tree, fully normalized: every field
// is a plain scalar regardless of how the backend serialized it.
type Node struct {
	ID           string // Stable path-derived id: "root", "root-0", "root-0-1", ...
	Label        string
	Type         string // "species" or an ancestor classification
	Color        string // Hex color assigned by the backend
	HasAge       bool
	AgeInfo      string  // Human-readable age ("66 Ma", "present", "age unavailable")
	AgeNumeric   float64 // Millions of years; zero when AgeValid is false
	AgeValid     bool
	Shape        string // "circle", "phylopic", ...
	PhylopicUUID string
	PhylopicURL  string
	Info         *InfoPanel
	Children     []*Node
}

// InfoPanel is the optional per-node encyclopedia content.
type InfoPanel struct {
	ImageURL         string
	ImageType        string
	ImageAttribution string
	WikipediaText    string
	WikipediaURL     string
	WikipediaTitle   string
	GeologicAge      string
}

// HasContent reports whether the panel has anything worth showing.
func (p *InfoPanel) HasContent() bool {
	return p != nil && (p.ImageURL != "" || p.WikipediaText != "" || p.GeologicAge != "")
}

// IsInternal reports whether the node has children (an ancestor node).
// Leaves are the selected species themselves and are never expanded.
func (n *Node) IsInternal() bool {
	return n != nil && len(n.Children) > 0
}

// DisplayLabel returns the label with age info appended when meaningful.
func (n *Node) DisplayLabel() string {
	if n.HasAge && n.AgeInfo != "" && n.AgeInfo != "age unavailable" && n.AgeInfo != "present" {
		return n.Label + " (" + n.AgeInfo + ")"
	}
	return n.Label
}

// AssignIDs walks the tree assigning path-derived ids. The root is "root";
// a child's id is its parent's id plus "-<index>". Ids are therefore stable
// for a given tree shape, which the expansion controller relies on.
func (n *Node) AssignIDs() {
	if n == nil {
		return
	}
	n.assignIDs("root")
}

func (n *Node) assignIDs(id string) {
	n.ID = id
	for i, c := range n.Children {
		if c != nil {
			c.assignIDs(id + "-" + strconv.Itoa(i))
		}
	}
}

// Walk visits every node in depth-first order.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// CountNodes returns the total number of nodes in the tree.
func (n *Node) CountNodes() int {
	count := 0
	n.Walk(func(*Node) { count++ })
	return count
}

// InternalIDsBreadthFirst returns the ids of all child-bearing nodes in
// breadth-first order. This is the automatic-expansion schedule: ancestors
// closer to the root reveal first.
func (n *Node) InternalIDsBreadthFirst() []string {
	if n == nil {
		return nil
	}
	var ids []string
	queue := []*Node{n}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == nil {
			continue
		}
		if cur.IsInternal() {
			ids = append(ids, cur.ID)
		}
		queue = append(queue, cur.Children...)
	}
	return ids
}

// Find returns the node with the given id, or nil.
func (n *Node) Find(id string) *Node {
	var found *Node
	n.Walk(func(node *Node) {
		if found == nil && node.ID == id {
			found = node
		}
	})
	return found
}

// SilhouetteTarget identifies a node that declares a silhouette.
type SilhouetteTarget struct {
	NodeID string
	UUID   string
	Color  string
}

// SilhouetteTargets returns every node that declares a phylopic uuid,
// paired with its assigned color. Input for the silhouette resolver.
func (n *Node) SilhouetteTargets() []SilhouetteTarget {
	var targets []SilhouetteTarget
	n.Walk(func(node *Node) {
		if node.PhylopicUUID != "" {
			targets = append(targets, SilhouetteTarget{
				NodeID: node.ID,
				UUID:   node.PhylopicUUID,
				Color:  node.Color,
			})
		}
	})
	return targets
}

// AgeStats summarizes the numeric ages of a tree's dated ancestor nodes.
type AgeStats struct {
	Count  int
	Mean   float64
	Median float64
	Oldest float64
}

// AncestorAgeStats computes summary statistics over the dated internal
// nodes. Returns a zero-count result when no node carries a numeric age.
func (n *Node) AncestorAgeStats() AgeStats {
	var ages []float64
	n.Walk(func(node *Node) {
		if node.IsInternal() && node.AgeValid {
			ages = append(ages, node.AgeNumeric)
		}
	})
	if len(ages) == 0 {
		return AgeStats{}
	}
	sort.Float64s(ages)
	return AgeStats{
		Count:  len(ages),
		Mean:   stat.Mean(ages, nil),
		Median: stat.Quantile(0.5, stat.Empirical, ages, nil),
		Oldest: ages[len(ages)-1],
	}
}

// TreeResult is the normalized outcome of one tree-generation call.
type TreeResult struct {
	Success       bool
	HTML          string // Opaque pre-rendered document; stored, never parsed
	Tree          *Node  // Native node tree, when the backend provides one
	Coverage      string // "", "full", "partial", "none"
	MissingCommon []string
	MissingSci    []string
	DroppedCommon []string
	LegendType    string
	ErrMessage    string
}

// HasRenderableContent reports whether the response already carries tree
// content. Used to discriminate the one-call backend contract from the
// older check-then-generate contract.
func (r *TreeResult) HasRenderableContent() bool {
	return r != nil && (r.HTML != "" || r.Tree != nil)
}
