package api

import (
	"sort"
	"time"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/model"
)

// Wire→model conversion. Everything past this file sees normalized types
// only; the Flex* shapes never leak out of the api package.

func toSnapshot(resp progressResponse) model.ProgressSnapshot {
	snap := model.ProgressSnapshot{
		Status: model.ProgressStatus(resp.Status.String()),
		Steps:  make([]model.Step, 0, len(resp.Steps)),
	}
	for _, ws := range resp.Steps {
		snap.Steps = append(snap.Steps, model.Step{
			Name:            ws.Step.String(),
			Status:          ws.Status.String(),
			Timestamp:       parseTimestamp(ws.Timestamp.String()),
			DurationSeconds: ws.DurationSeconds.Value,
			HasDuration:     ws.DurationSeconds.Valid,
			TotalSeconds:    ws.TotalDurationSeconds.Value,
			HasTotal:        ws.TotalDurationSeconds.Valid,
		})
	}
	return snap
}

// parseTimestamp accepts the timestamp formats the backend has been seen
// to emit. A zero time means the timestamp was absent or unparseable.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func toNode(w *WireNode) *model.Node {
	root := convertNode(w)
	root.AssignIDs()
	return root
}

func convertNode(w *WireNode) *model.Node {
	if w == nil {
		return nil
	}
	n := &model.Node{
		Label:        w.NodeLabel.String(),
		Type:         w.NodeType.String(),
		Color:        w.Color.String(),
		HasAge:       w.HasAge.Bool(),
		AgeInfo:      w.AgeInfo.String(),
		AgeNumeric:   w.AgeNumeric.Value,
		AgeValid:     w.AgeNumeric.Valid,
		Shape:        w.NodeShape.String(),
		PhylopicUUID: w.PhylopicUUID.String(),
		PhylopicURL:  w.PhylopicURL.String(),
	}
	if p := w.InfoPanel; p != nil {
		n.Info = &model.InfoPanel{
			ImageURL:         p.ImageURL.String(),
			ImageType:        p.ImageType.String(),
			ImageAttribution: p.ImageAttribution.String(),
			WikipediaText:    p.WikipediaText.String(),
			WikipediaURL:     p.WikipediaURL.String(),
			WikipediaTitle:   p.WikipediaTitle.String(),
			GeologicAge:      p.GeologicAge.String(),
		}
	}
	for _, c := range w.Children {
		if child := convertNode(c); child != nil {
			n.Children = append(n.Children, child)
		}
	}
	return n
}

func toLegend(resp legendResponse) model.Legend {
	legend := model.Legend{
		Type:    resp.Type.String(),
		Entries: make([]model.LegendEntry, 0, len(resp.Legend)),
	}
	// Map iteration order is random; sort by key for a stable display.
	keys := make([]string, 0, len(resp.Legend))
	for k := range resp.Legend {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		we := resp.Legend[k]
		entry := model.LegendEntry{
			ID:          k,
			NodeType:    we.NodeType.String(),
			Label:       we.Label.String(),
			Color:       we.Color.String(),
			ColorName:   we.ColorName.String(),
			Description: we.Description.String(),
			Shape:       we.Shape.String(),
		}
		if entry.NodeType == "" {
			entry.NodeType = k
		}
		if pd := we.PhylopicData; pd != nil {
			entry.Phylopic = &model.LegendPhylopic{
				DataURL:        pd.DataURL.String(),
				TaxonomicGroup: pd.TaxonomicGroup.String(),
				Attribution:    pd.Attribution.String(),
			}
		}
		legend.Entries = append(legend.Entries, entry)
	}
	return legend
}
