package chart

import (
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// canvas wraps a go-chart renderer with the primitives the custom figures
// need (filled rectangles, polygons, anchored text)
type canvas struct {
	r chart.Renderer
	w int
	h int
}

func newCanvas(provider chart.RendererProvider, w, h int, dpi float64) (*canvas, error) {
	r, err := provider(w, h)
	if err != nil {
		return nil, err
	}
	r.SetDPI(dpi)
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, err
	}
	r.SetFont(font)

	c := &canvas{r: r, w: w, h: h}
	c.rect(0, 0, w, h, drawing.ColorWhite, drawing.ColorWhite, 0)
	return c, nil
}

func (c *canvas) rect(x0, y0, x1, y1 int, fill, stroke drawing.Color, width float64) {
	c.polygon([][2]int{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}, fill, stroke, width)
}

func (c *canvas) polygon(points [][2]int, fill, stroke drawing.Color, width float64) {
	if len(points) < 3 {
		return
	}
	c.r.ResetStyle()
	c.r.SetFillColor(fill)
	c.r.SetStrokeColor(stroke)
	c.r.SetStrokeWidth(width)
	c.r.MoveTo(points[0][0], points[0][1])
	for _, p := range points[1:] {
		c.r.LineTo(p[0], p[1])
	}
	c.r.Close()
	if width > 0 {
		c.r.FillStroke()
		return
	}
	c.r.Fill()
}

// ellipse approximates the outline with a closed polygon so raster and
// SVG output agree
func (c *canvas) ellipse(cx, cy, rx, ry int, fill, stroke drawing.Color, width float64) {
	const segments = 96
	points := make([][2]int, segments)
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / segments
		points[i] = [2]int{
			cx + int(math.Round(float64(rx)*math.Cos(a))),
			cy + int(math.Round(float64(ry)*math.Sin(a))),
		}
	}
	c.polygon(points, fill, stroke, width)
}

func (c *canvas) line(x0, y0, x1, y1 int, stroke drawing.Color, width float64) {
	c.r.ResetStyle()
	c.r.SetStrokeColor(stroke)
	c.r.SetStrokeWidth(width)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y1)
	c.r.Stroke()
}

// arrow draws a horizontal or slanted shaft ending in a filled head at (x1, y1)
func (c *canvas) arrow(x0, y0, x1, y1 int, color drawing.Color, width float64, head int) {
	angle := math.Atan2(float64(y1-y0), float64(x1-x0))
	bx := float64(x1) - float64(head)*math.Cos(angle)
	by := float64(y1) - float64(head)*math.Sin(angle)
	c.line(x0, y0, int(bx), int(by), color, width)

	spread := float64(head) * 0.45
	left := [2]int{int(bx + spread*math.Sin(angle)), int(by - spread*math.Cos(angle))}
	right := [2]int{int(bx - spread*math.Sin(angle)), int(by + spread*math.Cos(angle))}
	c.polygon([][2]int{{x1, y1}, left, right}, color, color, 0)
}

type anchor int

const (
	anchorLeft anchor = iota
	anchorCenter
	anchorRight
)

// text draws body with its baseline at y
func (c *canvas) text(body string, x, y int, size float64, color drawing.Color, a anchor) {
	c.r.ResetStyle()
	c.r.SetFontSize(size)
	c.r.SetFontColor(color)
	box := c.r.MeasureText(body)
	switch a {
	case anchorCenter:
		x -= box.Width() / 2
	case anchorRight:
		x -= box.Width()
	}
	c.r.Text(body, x, y)
}

// textHeight measures the rendered height of body at size
func (c *canvas) textHeight(body string, size float64) int {
	c.r.SetFontSize(size)
	return c.r.MeasureText(body).Height()
}

// verticalText draws body rotated a quarter turn counter-clockwise
func (c *canvas) verticalText(body string, x, y int, size float64, color drawing.Color) {
	c.r.ResetStyle()
	c.r.SetFontSize(size)
	c.r.SetFontColor(color)
	c.r.SetTextRotation(-math.Pi / 2)
	c.r.Text(body, x, y)
	c.r.ClearTextRotation()
}

// lerpColor mixes a and b, t in [0, 1]
func lerpColor(a, b drawing.Color, t float64) drawing.Color {
	t = math.Max(0, math.Min(1, t))
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

var (
	coolBlue  = drawing.Color{R: 59, G: 76, B: 192, A: 255}
	coolWhite = drawing.Color{R: 221, G: 221, B: 221, A: 255}
	warmRed   = drawing.Color{R: 180, G: 4, B: 38, A: 255}
	missing   = drawing.Color{R: 240, G: 240, B: 240, A: 255}
	inkColor  = drawing.Color{R: 14, G: 23, B: 38, A: 255}
	gridColor = drawing.Color{R: 200, G: 200, B: 200, A: 255}
)

// coolwarm maps v in [-1, 1] onto a diverging blue-white-red scale
func coolwarm(v float64) drawing.Color {
	if math.IsNaN(v) {
		return missing
	}
	if v < 0 {
		return lerpColor(coolWhite, coolBlue, -v)
	}
	return lerpColor(coolWhite, warmRed, v)
}

// viridis samples a five-stop approximation of the viridis palette
func viridis(t float64) drawing.Color {
	stops := []drawing.Color{
		{R: 68, G: 1, B: 84, A: 255},
		{R: 59, G: 82, B: 139, A: 255},
		{R: 33, G: 145, B: 140, A: 255},
		{R: 94, G: 201, B: 98, A: 255},
		{R: 253, G: 231, B: 37, A: 255},
	}
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(stops)-1)
	i := int(pos)
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	return lerpColor(stops[i], stops[i+1], pos-float64(i))
}
