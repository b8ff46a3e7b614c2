package model

import (
	"sort"
	"strings"
	"time"
)

// ProgressStatus is the overall status of a backend computation.
type ProgressStatus string

const (
	ProgressPending    ProgressStatus = "pending"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressError      ProgressStatus = "error"
)

// Terminal reports whether polling should stop for this status.
func (s ProgressStatus) Terminal() bool {
	return s == ProgressCompleted || s == ProgressError
}

// Step is one step event from the progress endpoint. The backend emits the
// same step name twice (in_progress, then completed), so a raw step list
// contains duplicates that Reconcile collapses.
type Step struct {
	Name            string
	Status          string // "in_progress" or "completed"
	Timestamp       time.Time
	DurationSeconds float64
	HasDuration     bool
	TotalSeconds    float64 // Set on the final step of a completed run
	HasTotal        bool
}

// Completed reports whether this step has finished.
func (s Step) Completed() bool { return s.Status == "completed" }

// ProgressSnapshot is one poll result.
type ProgressSnapshot struct {
	Status ProgressStatus
	Steps  []Step
}

// Reconcile collapses duplicate step emissions: for each step name the
// latest status wins, completed steps sort by completion time, and
// in-progress steps follow, ordered by their own timestamps. Reconciling
// an already-reconciled list yields the same list.
func (p ProgressSnapshot) Reconcile() []Step {
	type group struct {
		latest      Step
		completedAt time.Time
	}
	groups := make(map[string]*group)
	var order []string
	for _, s := range p.Steps {
		if s.Name == "" {
			continue
		}
		g, ok := groups[s.Name]
		if !ok {
			g = &group{}
			groups[s.Name] = g
			order = append(order, s.Name)
		}
		g.latest = s
		if s.Completed() {
			g.completedAt = s.Timestamp
		}
	}

	out := make([]Step, 0, len(order))
	for _, name := range order {
		g := groups[name]
		step := g.latest
		if step.Completed() && !g.completedAt.IsZero() {
			step.Timestamp = g.completedAt
		}
		out = append(out, step)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Completed() && b.Completed():
			return a.Timestamp.Before(b.Timestamp)
		case a.Completed():
			return true
		case b.Completed():
			return false
		default:
			return a.Timestamp.Before(b.Timestamp)
		}
	})
	return out
}

// TotalDuration returns the run's total duration when the snapshot carries
// a completed final step with one, else zero.
func (p ProgressSnapshot) TotalDuration() (float64, bool) {
	for _, s := range p.Steps {
		if s.HasTotal {
			return s.TotalSeconds, true
		}
	}
	return 0, false
}

// stepDisplayNames maps backend step identifiers to human-readable labels.
var stepDisplayNames = map[string]string{
	"request_started":        "Request Started",
	"validating_input":       "Validating Input",
	"database_lookup":        "Database Lookup",
	"parallel_queries":       "ROTL and DateLife Queries",
	"datelife_processing":    "Processing DateLife Age Data",
	"network_conversion":     "Converting Tree to Network Format",
	"creating_visualization": "Creating Tree Visualization",
	"request_completed":      "Request Completed",
}

// StepDisplayName returns a human-readable label for a backend step name.
// Unknown names are title-cased with underscores turned into spaces.
func StepDisplayName(step string) string {
	if name, ok := stepDisplayNames[step]; ok {
		return name
	}
	words := strings.Split(strings.ReplaceAll(step, "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
