package ports

import (
	"context"

	"dopastat/domain/stats"
)

// BarValue is one labeled bar
type BarValue struct {
	Label string
	Value float64
}

// RendererPort writes numeric artifacts as image files. Every method
// returns the path it wrote. The core never sees formats or paths beyond
// the figure name it asks for.
type RendererPort interface {
	Heatmap(ctx context.Context, name, title string, m *stats.CorrelationMatrix) (string, error)
	Boxplot(ctx context.Context, name, title, yLabel string, groups []stats.GroupSummary) (string, error)
	Scatter(ctx context.Context, name, title, xLabel, yLabel string, trend *stats.Trend) (string, error)
	Bar(ctx context.Context, name, title, yLabel string, bars []BarValue) (string, error)
}

// DiagramPort draws the fixed pathway schematic
type DiagramPort interface {
	DrawPathway(ctx context.Context) ([]string, error)
}
