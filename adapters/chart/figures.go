package chart

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"dopastat/domain/stats"
	"dopastat/ports"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var _ ports.RendererPort = (*Renderer)(nil)

// Heatmap draws an annotated correlation block on a diverging scale
// centered at zero
func (r *Renderer) Heatmap(ctx context.Context, name, title string, m *stats.CorrelationMatrix) (string, error) {
	if m == nil || len(m.Rows) == 0 || len(m.Cols) == 0 {
		return "", fmt.Errorf("heatmap %s: empty matrix", name)
	}
	return r.save(ctx, name, func(buf *bytes.Buffer) error {
		w, h := r.px(12), r.px(9)
		c, err := newCanvas(chart.PNG, w, h, r.dpi)
		if err != nil {
			return err
		}

		left, top := r.px(1.6), r.px(0.8)
		right, bottom := r.px(0.4), r.px(1.4)
		cellW := (w - left - right) / len(m.Cols)
		cellH := (h - top - bottom) / len(m.Rows)

		c.text(title, w/2, top/2+c.textHeight(title, 14)/2, 14, inkColor, anchorCenter)

		for i, row := range m.Rows {
			y0 := top + i*cellH
			for j := range m.Cols {
				x0 := left + j*cellW
				v := m.Values[i][j]
				c.rect(x0, y0, x0+cellW, y0+cellH, coolwarm(v), drawing.ColorWhite, 1)

				label := "nan"
				if !math.IsNaN(v) {
					label = fmt.Sprintf("%.2f", v)
				}
				ink := inkColor
				if math.Abs(v) > 0.6 {
					ink = drawing.ColorWhite
				}
				c.text(label, x0+cellW/2, y0+cellH/2+c.textHeight(label, 7)/2, 7, ink, anchorCenter)
			}
			rowLabel := row.String()
			c.text(rowLabel, left-r.px(0.08), y0+cellH/2+c.textHeight(rowLabel, 9)/2, 9, inkColor, anchorRight)
		}

		for j, col := range m.Cols {
			x := left + j*cellW + cellW/2
			c.verticalText(col.String(), x+c.textHeight(col.String(), 9)/2, h-bottom+r.px(1.2), 9, inkColor)
		}

		return c.r.Save(buf)
	})
}

// Boxplot draws one box per group: Q1..Q3 box, median bar, min/max whiskers
func (r *Renderer) Boxplot(ctx context.Context, name, title, yLabel string, groups []stats.GroupSummary) (string, error) {
	if len(groups) == 0 {
		return "", fmt.Errorf("boxplot %s: no groups", name)
	}
	return r.save(ctx, name, func(buf *bytes.Buffer) error {
		w, h := r.px(6), r.px(5)
		c, err := newCanvas(chart.PNG, w, h, r.dpi)
		if err != nil {
			return err
		}

		lo, hi := groups[0].Min, groups[0].Max
		for _, g := range groups {
			lo = math.Min(lo, g.Min)
			hi = math.Max(hi, g.Max)
		}
		if hi == lo {
			lo, hi = lo-1, hi+1
		}
		pad := (hi - lo) * 0.05
		lo, hi = lo-pad, hi+pad

		left, top := r.px(1.0), r.px(0.7)
		right, bottom := r.px(0.3), r.px(0.7)
		plotH := h - top - bottom
		yOf := func(v float64) int {
			return top + int(float64(plotH)*(hi-v)/(hi-lo))
		}

		c.text(title, w/2, top/2+c.textHeight(title, 12)/2, 12, inkColor, anchorCenter)

		const ticks = 5
		for i := 0; i <= ticks; i++ {
			v := lo + (hi-lo)*float64(i)/ticks
			y := yOf(v)
			c.line(left, y, w-right, y, gridColor, 1)
			label := fmt.Sprintf("%.2f", v)
			c.text(label, left-r.px(0.05), y+c.textHeight(label, 8)/2, 8, inkColor, anchorRight)
		}
		c.verticalText(yLabel, r.px(0.2), top+plotH/2+r.px(0.6), 9, inkColor)

		slot := (w - left - right) / len(groups)
		boxW := slot / 2
		for i, g := range groups {
			cx := left + i*slot + slot/2
			fill := viridis(float64(i) / math.Max(1, float64(len(groups)-1)))
			fill.A = 160

			c.line(cx, yOf(g.Max), cx, yOf(g.Q3), inkColor, 1.5)
			c.line(cx, yOf(g.Q1), cx, yOf(g.Min), inkColor, 1.5)
			c.line(cx-boxW/4, yOf(g.Max), cx+boxW/4, yOf(g.Max), inkColor, 1.5)
			c.line(cx-boxW/4, yOf(g.Min), cx+boxW/4, yOf(g.Min), inkColor, 1.5)
			c.rect(cx-boxW/2, yOf(g.Q3), cx+boxW/2, yOf(g.Q1), fill, inkColor, 1.5)
			c.line(cx-boxW/2, yOf(g.Median), cx+boxW/2, yOf(g.Median), inkColor, 2.5)

			label := fmt.Sprintf("%s (n=%d)", g.Group, g.N)
			c.text(label, cx, h-bottom+r.px(0.35), 9, inkColor, anchorCenter)
		}

		return c.r.Save(buf)
	})
}

// Scatter draws the raw points with the fitted OLS line
func (r *Renderer) Scatter(ctx context.Context, name, title, xLabel, yLabel string, trend *stats.Trend) (string, error) {
	if trend == nil || len(trend.XValues) < 2 {
		return "", fmt.Errorf("scatter %s: need at least two points", name)
	}
	return r.save(ctx, name, func(buf *bytes.Buffer) error {
		points := chart.ContinuousSeries{
			Name:    "observations",
			XValues: trend.XValues,
			YValues: trend.YValues,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    2,
				DotColor:    drawing.Color{R: 31, G: 119, B: 180, A: 90},
			},
		}

		series := []chart.Series{points}
		if !math.IsNaN(trend.Slope) {
			x0, x1 := extent(trend.XValues)
			series = append(series, chart.ContinuousSeries{
				Name:    fmt.Sprintf("OLS fit (r=%.2f)", trend.R),
				XValues: []float64{x0, x1},
				YValues: []float64{trend.Intercept + trend.Slope*x0, trend.Intercept + trend.Slope*x1},
				Style: chart.Style{
					StrokeWidth: 3,
					StrokeColor: drawing.Color{R: 31, G: 119, B: 180, A: 255},
				},
			})
		}

		ch := chart.Chart{
			Title:      title,
			Width:      r.px(7),
			Height:     r.px(5),
			DPI:        r.dpi,
			Background: chart.Style{Padding: chart.Box{Top: r.px(0.5), Left: r.px(0.2), Right: r.px(0.2), Bottom: r.px(0.2)}},
			XAxis:      chart.XAxis{Name: xLabel},
			YAxis:      chart.YAxis{Name: yLabel},
			Series:     series,
		}
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
		return ch.Render(chart.PNG, buf)
	})
}

// Bar draws labeled bars against a zero baseline
func (r *Renderer) Bar(ctx context.Context, name, title, yLabel string, bars []ports.BarValue) (string, error) {
	if len(bars) == 0 {
		return "", fmt.Errorf("bar chart %s: no bars", name)
	}
	return r.save(ctx, name, func(buf *bytes.Buffer) error {
		values := make([]chart.Value, len(bars))
		for i, b := range bars {
			color := coolwarm(1 - 2*float64(i)/math.Max(1, float64(len(bars)-1)))
			values[i] = chart.Value{
				Label: b.Label,
				Value: b.Value,
				Style: chart.Style{FillColor: color, StrokeColor: color},
			}
		}

		bc := chart.BarChart{
			Title:        title,
			Width:        r.px(8),
			Height:       r.px(4),
			DPI:          r.dpi,
			BarWidth:     (r.px(8) - r.px(1.5)) / (2 * len(bars)),
			Background:   chart.Style{Padding: chart.Box{Top: r.px(0.5), Bottom: r.px(0.3)}},
			UseBaseValue: true,
			BaseValue:    0,
			YAxis:        chart.YAxis{Name: yLabel},
			Bars:         values,
		}
		return bc.Render(chart.PNG, buf)
	})
}

func extent(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
