package chart

import (
	"bytes"
	"context"

	"dopastat/ports"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Pathway diagram file names
const (
	PathwayPNG = "dopamine_pathway_hybrid_clean.png"
	PathwaySVG = "dopamine_pathway_hybrid_clean.svg"
)

var _ ports.DiagramPort = (*Diagram)(nil)

// pathwayNode is one labeled ellipse in data coordinates
type pathwayNode struct {
	X     float64
	Label string
}

// pathwayCaption is free text anchored under or over a node
type pathwayCaption struct {
	X, Y  float64
	Lines []string
	Above bool
}

// PathwayLayout holds the fixed geometry of the VTA -> NAcC -> PFC schematic.
// Coordinates are in data units on a [XMin, XMax] x [YMin, YMax] canvas.
type PathwayLayout struct {
	XMin, XMax, YMin, YMax float64
	NodeW, NodeH           float64
	Nodes                  []pathwayNode
	Captions               []pathwayCaption
	Title                  string
	WidthIn, HeightIn      float64
}

// DefaultPathwayLayout is the published layout
func DefaultPathwayLayout() PathwayLayout {
	return PathwayLayout{
		XMin: -1, XMax: 11, YMin: -2.5, YMax: 2.5,
		NodeW: 2.2, NodeH: 3.0,
		Nodes: []pathwayNode{
			{X: 0.5, Label: "VTA"},
			{X: 5.5, Label: "NAcC"},
			{X: 10.5, Label: "PFC"},
		},
		Captions: []pathwayCaption{
			{X: 5.5, Y: 1.55, Above: true, Lines: []string{"Cocaine (DAT block)", "→ direct ↑ dopamine in NAcC"}},
			{X: 0.5, Y: -1.9, Above: false, Lines: []string{"Cannabis (CB1)", "→ indirect ↑ dopamine in NAcC"}},
		},
		Title:   "Minimal Dopaminergic Pathway  •  VTA → NAcC → PFC",
		WidthIn: 12, HeightIn: 5,
	}
}

var (
	nodeFace   = drawing.ColorFromHex("dfe9ff")
	nodeEdge   = drawing.ColorFromHex("254a91")
	arrowColor = drawing.ColorFromHex("1c2b3a")
	textColor  = drawing.ColorFromHex("0e1726")
)

// Diagram draws the pathway schematic. It shares no state with the
// analysis pipeline.
type Diagram struct {
	renderer *Renderer
	layout   PathwayLayout
}

// NewDiagram creates a diagram writer on top of a renderer's directory and DPI
func NewDiagram(r *Renderer, layout PathwayLayout) *Diagram {
	return &Diagram{renderer: r, layout: layout}
}

// DrawPathway writes the PNG and SVG versions and returns both paths
func (d *Diagram) DrawPathway(ctx context.Context) ([]string, error) {
	var paths []string
	for _, out := range []struct {
		name     string
		provider chart.RendererProvider
	}{
		{PathwayPNG, chart.PNG},
		{PathwaySVG, chart.SVG},
	} {
		provider := out.provider
		path, err := d.renderer.save(ctx, out.name, func(buf *bytes.Buffer) error {
			return d.draw(provider, buf)
		})
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (d *Diagram) draw(provider chart.RendererProvider, buf *bytes.Buffer) error {
	l := d.layout
	r := d.renderer
	w, h := r.px(l.WidthIn), r.px(l.HeightIn)
	c, err := newCanvas(provider, w, h, r.dpi)
	if err != nil {
		return err
	}

	// the title band sits above the plotting area
	titleBand := int(float64(h) * 0.12)
	plotH := h - titleBand
	sx := float64(w) / (l.XMax - l.XMin)
	sy := float64(plotH) / (l.YMax - l.YMin)
	toX := func(x float64) int { return int((x - l.XMin) * sx) }
	toY := func(y float64) int { return titleBand + int((l.YMax-y)*sy) }

	c.text(l.Title, w/2, titleBand/2+c.textHeight(l.Title, 16)/2, 16, textColor, anchorCenter)

	rx := int(l.NodeW / 2 * sx)
	ry := int(l.NodeH / 2 * sy)
	for _, n := range l.Nodes {
		c.ellipse(toX(n.X), toY(0), rx, ry, nodeFace, nodeEdge, 2.0)
		c.text(n.Label, toX(n.X), toY(0)+c.textHeight(n.Label, 18)/2, 18, textColor, anchorCenter)
	}

	// arrows start and end just outside the ellipse edges
	head := r.px(0.12)
	for i := 0; i+1 < len(l.Nodes); i++ {
		start := l.Nodes[i].X + l.NodeW/2 - 0.05
		end := l.Nodes[i+1].X - l.NodeW/2 + 0.05
		c.arrow(toX(start), toY(0), toX(end), toY(0), arrowColor, 2.0, head)
	}

	for _, cp := range l.Captions {
		lineH := c.textHeight(cp.Lines[0], 11) * 3 / 2
		y := toY(cp.Y)
		if cp.Above {
			// text grows upward from the anchor
			y -= lineH * (len(cp.Lines) - 1)
		} else {
			y += lineH
		}
		for i, line := range cp.Lines {
			c.text(line, toX(cp.X), y+i*lineH, 11, textColor, anchorCenter)
		}
	}

	return c.r.Save(buf)
}
