// Package export renders static snapshots of a generated phylogenetic
// tree. The terminal view cannot show raster silhouettes, so exports are
// where resolved silhouette images become visible.
package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/basicfont"

	"github.com/jarrodharvey/evolution-mapper-frontend/pkg/model"
)

// SnapshotOptions controls tree snapshot export behaviour.
type SnapshotOptions struct {
	Path        string            // Output path; format inferred from extension when Format empty
	Format      string            // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title       string            // Optional title rendered in the summary block
	Root        *model.Node       // Tree to render
	Legend      model.Legend      // Legend entries for the tree's type
	Silhouettes map[string]string // Node ID -> resolved data-URL; optional
}

// SaveTreeSnapshot renders a static tree snapshot (SVG or PNG) with a
// summary block and legend. Silhouette data-URLs are embedded directly in
// SVG output and decoded into the raster for PNG output.
func SaveTreeSnapshot(opts SnapshotOptions) error {
	if opts.Root == nil {
		return fmt.Errorf("no tree to export")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg" // safe default
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildTreeLayout(opts)

	switch format {
	case "svg":
		return renderTreeSVG(opts, layout)
	default:
		return renderTreePNG(opts, layout)
	}
}

// --- layout computation ----------------------------------------------------

type treeLayoutNode struct {
	ID      string
	Label   string
	Color   string // hex fill for the node marker
	Shape   string
	Leaf    bool
	X, Y    float64
	DataURL string // silhouette, when resolved
}

type treeLayoutEdge struct {
	X1, Y1 float64
	X2, Y2 float64
}

type treeLayout struct {
	Nodes   []treeLayoutNode
	Edges   []treeLayoutEdge
	Width   int
	Height  int
	Header  float64
	Summary treeSummary
	Legend  []model.LegendEntry
}

type treeSummary struct {
	Title      string
	LegendType string
	Species    int
	Ancestors  int
	AgeStats   model.AgeStats
}

func buildTreeLayout(opts SnapshotOptions) treeLayout {
	const (
		colGap       = 150.0
		rowGap       = 46.0
		padding      = 36.0
		headerHeight = 120.0
		labelSpace   = 260.0
		silhouette   = 28.0
	)

	depth := func(n *model.Node) int { return strings.Count(n.ID, "-") }
	maxDepth := 0
	leaves := 0
	opts.Root.Walk(func(n *model.Node) {
		if d := depth(n); d > maxDepth {
			maxDepth = d
		}
		if !n.IsInternal() {
			leaves++
		}
	})

	// Classic cladogram placement: leaves stack top to bottom in
	// depth-first order, an internal node sits at the mean of its
	// children's rows, and depth maps to the x axis.
	yByID := make(map[string]float64)
	nextRow := 0
	var place func(n *model.Node) float64
	place = func(n *model.Node) float64 {
		if !n.IsInternal() {
			y := padding + headerHeight + float64(nextRow)*rowGap
			nextRow++
			yByID[n.ID] = y
			return y
		}
		var sum float64
		for _, c := range n.Children {
			sum += place(c)
		}
		y := sum / float64(len(n.Children))
		yByID[n.ID] = y
		return y
	}
	place(opts.Root)

	var nodes []treeLayoutNode
	var edges []treeLayoutEdge
	opts.Root.Walk(func(n *model.Node) {
		x := padding + float64(depth(n))*colGap
		node := treeLayoutNode{
			ID:      n.ID,
			Label:   truncateLabel(n.DisplayLabel(), 42),
			Color:   n.Color,
			Shape:   n.Shape,
			Leaf:    !n.IsInternal(),
			X:       x,
			Y:       yByID[n.ID],
			DataURL: opts.Silhouettes[n.ID],
		}
		nodes = append(nodes, node)
		for _, c := range n.Children {
			edges = append(edges, treeLayoutEdge{
				X1: x, Y1: yByID[n.ID],
				X2: padding + float64(depth(c))*colGap, Y2: yByID[c.ID],
			})
		}
	})

	width := int(padding*2 + float64(maxDepth)*colGap + labelSpace + silhouette)
	if width < 640 {
		width = 640
	}
	height := int(padding*2 + headerHeight + float64(leaves)*rowGap)
	if height < 480 {
		height = 480
	}

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Evolution Map"
	}

	legendRows := opts.Legend.Entries
	if len(legendRows) > maxLegendRows {
		legendRows = legendRows[:maxLegendRows]
	}

	return treeLayout{
		Nodes:  nodes,
		Edges:  edges,
		Width:  width,
		Height: height,
		Header: headerHeight,
		Legend: legendRows,
		Summary: treeSummary{
			Title:      title,
			LegendType: opts.Legend.Type,
			Species:    leaves,
			Ancestors:  opts.Root.CountNodes() - leaves,
			AgeStats:   opts.Root.AncestorAgeStats(),
		},
	}
}

// --- rendering -------------------------------------------------------------

var (
	treeBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	treeHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	treeLegendBG = color.RGBA{0xee, 0xee, 0xee, 0xff}
	treeStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	treeEdge     = color.RGBA{0x8a, 0x93, 0xa6, 0xff}
	treeText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	treeSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	treeFallback = color.RGBA{0x4c, 0xaf, 0x50, 0xff}
)

// nodeFill parses the backend-assigned hex color, falling back to a
// neutral green for absent or malformed values.
func nodeFill(hex string) color.RGBA {
	c, err := colorful.Hex(strings.TrimSpace(hex))
	if err != nil {
		return treeFallback
	}
	r, g, b := c.RGB255()
	return color.RGBA{r, g, b, 0xff}
}

func renderTreeSVG(opts SnapshotOptions, layout treeLayout) error {
	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	return renderTreeSVGToWriter(file, layout)
}

func renderTreeSVGToWriter(w io.Writer, layout treeLayout) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", cssColor(treeBackdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, int(layout.Header-24), 10, 10, fmt.Sprintf("fill:%s", cssColor(treeHeaderBG)))

	drawTreeSummarySVG(canvas, layout)
	drawTreeLegendSVG(canvas, layout)

	// Right-angled connectors read better than diagonals for cladograms.
	edgeStyle := fmt.Sprintf("stroke:%s;stroke-width:1.6;fill:none", cssColor(treeEdge))
	for _, e := range layout.Edges {
		canvas.Polyline(
			[]int{int(e.X1), int(e.X1), int(e.X2)},
			[]int{int(e.Y1), int(e.Y2), int(e.Y2)},
			edgeStyle,
		)
	}

	for _, n := range layout.Nodes {
		x, y := int(n.X), int(n.Y)
		if n.DataURL != "" {
			canvas.Image(x-14, y-14, 28, 28, n.DataURL)
		} else if n.Shape == "square" {
			canvas.Rect(x-6, y-6, 12, 12,
				fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", cssColor(nodeFill(n.Color)), cssColor(treeStroke)))
		} else {
			canvas.Circle(x, y, 6,
				fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", cssColor(nodeFill(n.Color)), cssColor(treeStroke)))
		}
		if n.Leaf {
			canvas.Text(x+20, y+4, n.Label,
				fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", cssColor(treeText)))
		} else if n.Label != "" {
			canvas.Text(x+10, y-10, n.Label,
				fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", cssColor(treeSubtle)))
		}
	}

	canvas.End()
	return nil
}

func renderTreePNG(opts SnapshotOptions, layout treeLayout) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(treeBackdrop)
	dc.Clear()

	dc.SetColor(treeHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, layout.Header-24, 10)
	dc.Fill()
	dc.SetFontFace(basicfont.Face7x13)

	drawTreeSummary(dc, layout)
	drawTreeLegend(dc, layout)

	dc.SetColor(treeEdge)
	dc.SetLineWidth(1.6)
	for _, e := range layout.Edges {
		dc.DrawLine(e.X1, e.Y1, e.X1, e.Y2)
		dc.Stroke()
		dc.DrawLine(e.X1, e.Y2, e.X2, e.Y2)
		dc.Stroke()
	}

	for _, n := range layout.Nodes {
		if img := decodeDataURL(n.DataURL); img != nil {
			drawSilhouette(dc, img, n.X, n.Y)
		} else if n.Shape == "square" {
			dc.SetColor(nodeFill(n.Color))
			dc.DrawRectangle(n.X-6, n.Y-6, 12, 12)
			dc.Fill()
			dc.SetColor(treeStroke)
			dc.DrawRectangle(n.X-6, n.Y-6, 12, 12)
			dc.Stroke()
		} else {
			dc.SetColor(nodeFill(n.Color))
			dc.DrawCircle(n.X, n.Y, 6)
			dc.Fill()
			dc.SetColor(treeStroke)
			dc.DrawCircle(n.X, n.Y, 6)
			dc.Stroke()
		}
		if n.Leaf {
			dc.SetColor(treeText)
			dc.DrawStringAnchored(n.Label, n.X+20, n.Y, 0, 0.5)
		} else if n.Label != "" {
			dc.SetColor(treeSubtle)
			dc.DrawStringAnchored(n.Label, n.X+10, n.Y-10, 0, 0.5)
		}
	}

	return dc.SavePNG(opts.Path)
}

// decodeDataURL extracts and decodes the image payload of a data-URL.
// Returns nil for empty, malformed, or non-raster payloads.
func decodeDataURL(dataURL string) image.Image {
	if dataURL == "" {
		return nil
	}
	idx := strings.Index(dataURL, "base64,")
	if idx < 0 {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(dataURL[idx+len("base64,"):])
	if err != nil {
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	return img
}

func drawSilhouette(dc *gg.Context, img image.Image, x, y float64) {
	const size = 28.0
	bounds := img.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	if w == 0 || h == 0 {
		return
	}
	scale := size / w
	if sh := size / h; sh < scale {
		scale = sh
	}
	dc.Push()
	dc.Translate(x-w*scale/2, y-h*scale/2)
	dc.Scale(scale, scale)
	dc.DrawImage(img, 0, 0)
	dc.Pop()
}

func drawTreeSummary(dc *gg.Context, layout treeLayout) {
	s := layout.Summary
	dc.SetColor(treeText)
	dc.DrawStringAnchored(s.Title, 32, 44, 0, 0.5)
	dc.SetColor(treeSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("species: %d  ancestors: %d  legend: %s", s.Species, s.Ancestors, orDash(s.LegendType)), 32, 64, 0, 0.5)
	dc.DrawStringAnchored(ageStatsLine(s.AgeStats), 32, 84, 0, 0.5)
}

func drawTreeSummarySVG(canvas *svg.SVG, layout treeLayout) {
	s := layout.Summary
	canvas.Text(32, 44, s.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", cssColor(treeText)))
	canvas.Text(32, 64, fmt.Sprintf("species: %d  ancestors: %d  legend: %s", s.Species, s.Ancestors, orDash(s.LegendType)),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", cssColor(treeSubtle)))
	canvas.Text(32, 84, ageStatsLine(s.AgeStats),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", cssColor(treeSubtle)))
}

func ageStatsLine(stats model.AgeStats) string {
	if stats.Count == 0 {
		return "ancestor ages: none dated"
	}
	return fmt.Sprintf("ancestor ages: mean %.1f Ma  median %.1f Ma  oldest %.1f Ma",
		stats.Mean, stats.Median, stats.Oldest)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// maxLegendRows caps the legend box; anything longer belongs in the
// interactive legend panel, not a snapshot.
const maxLegendRows = 6

func drawTreeLegend(dc *gg.Context, layout treeLayout) {
	entries := layout.legendEntries()
	if len(entries) == 0 {
		return
	}
	boxW := 240.0
	boxH := float64(24 + len(entries)*16)
	x := float64(layout.Width) - boxW - 20
	y := 24.0
	dc.SetColor(treeLegendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()
	dc.SetColor(treeStroke)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Stroke()

	dc.SetColor(treeText)
	dc.DrawStringAnchored("Legend", x+12, y+14, 0, 0.5)
	for i, e := range entries {
		rowY := y + 32 + float64(i)*16
		dc.SetColor(nodeFill(e.Color))
		dc.DrawRoundedRectangle(x+12, rowY-8, 12, 12, 3)
		dc.Fill()
		dc.SetColor(treeSubtle)
		dc.DrawStringAnchored(truncateLabel(e.Label, 30), x+30, rowY-2, 0, 0.5)
	}
}

func drawTreeLegendSVG(canvas *svg.SVG, layout treeLayout) {
	entries := layout.legendEntries()
	if len(entries) == 0 {
		return
	}
	boxW := 240
	boxH := 24 + len(entries)*16
	x := layout.Width - boxW - 20
	y := 24
	canvas.Roundrect(x, y, boxW, boxH, 10, 10,
		fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", cssColor(treeLegendBG), cssColor(treeStroke)))
	canvas.Text(x+12, y+18, "Legend",
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", cssColor(treeText)))
	for i, e := range entries {
		rowY := y + 32 + i*16
		canvas.Roundrect(x+12, rowY-8, 12, 12, 3, 3, fmt.Sprintf("fill:%s", cssColor(nodeFill(e.Color))))
		canvas.Text(x+30, rowY+2, truncateLabel(e.Label, 30),
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", cssColor(treeSubtle)))
	}
}

func (l treeLayout) legendEntries() []model.LegendEntry {
	return l.Legend
}

// --- helpers ---------------------------------------------------------------

func truncateLabel(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func cssColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
