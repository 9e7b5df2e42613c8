package analysis

import (
	"math"
	"sort"

	"dopastat/domain/core"
	"dopastat/domain/dataset"
	"dopastat/domain/stats"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// DescriptiveAnalyzer computes correlation blocks and summary aggregates
// over derived columns
type DescriptiveAnalyzer struct{}

// NewDescriptiveAnalyzer creates a new analyzer
func NewDescriptiveAnalyzer() *DescriptiveAnalyzer {
	return &DescriptiveAnalyzer{}
}

// CorrelationMatrix returns the symmetric Pearson matrix of the given
// columns. Pairs are computed over rows where both values are finite.
func (a *DescriptiveAnalyzer) CorrelationMatrix(table *dataset.Table, keys []core.ColumnKey) (*stats.CorrelationMatrix, error) {
	cols, err := table.NumericColumns(keys)
	if err != nil {
		return nil, err
	}

	n := len(keys)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			r := Pearson(cols[i], cols[j])
			values[i][j] = r
			values[j][i] = r
		}
	}

	return &stats.CorrelationMatrix{
		Rows:   append([]core.ColumnKey(nil), keys...),
		Cols:   append([]core.ColumnKey(nil), keys...),
		Values: values,
	}, nil
}

// CorrelationBlock returns the rows x cols sub-block of correlations
func (a *DescriptiveAnalyzer) CorrelationBlock(table *dataset.Table, rows, cols []core.ColumnKey) (*stats.CorrelationMatrix, error) {
	rowData, err := table.NumericColumns(rows)
	if err != nil {
		return nil, err
	}
	colData, err := table.NumericColumns(cols)
	if err != nil {
		return nil, err
	}

	values := make([][]float64, len(rows))
	for i := range rows {
		values[i] = make([]float64, len(cols))
		for j := range cols {
			values[i][j] = Pearson(rowData[i], colData[j])
		}
	}

	return &stats.CorrelationMatrix{
		Rows:   append([]core.ColumnKey(nil), rows...),
		Cols:   append([]core.ColumnKey(nil), cols...),
		Values: values,
	}, nil
}

// Pearson computes the correlation over pairwise-complete rows.
// Constant or empty input yields NaN.
func Pearson(x, y []float64) float64 {
	px, py := pairwise(x, y)
	if len(px) < 2 || isConstant(px) || isConstant(py) {
		return math.NaN()
	}
	r := stat.Correlation(px, py, nil)
	// guard against rounding just outside [-1, 1]
	return math.Max(-1, math.Min(1, r))
}

// Prevalence counts rows equal to 1 per column, sorted descending by count
// and then by key
func (a *DescriptiveAnalyzer) Prevalence(table *dataset.Table, keys []core.ColumnKey) (stats.Prevalence, error) {
	cols, err := table.NumericColumns(keys)
	if err != nil {
		return nil, err
	}

	out := make(stats.Prevalence, len(keys))
	for i, k := range keys {
		count := 0
		for _, v := range cols[i] {
			if v == 1 {
				count++
			}
		}
		out[i] = stats.PrevalenceEntry{Key: k, Count: count}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// RowSum counts, per row, the columns equal to 1
func RowSum(columns [][]float64) []float64 {
	if len(columns) == 0 {
		return nil
	}
	out := make([]float64, len(columns[0]))
	for _, c := range columns {
		for r, v := range c {
			if v == 1 {
				out[r]++
			}
		}
	}
	return out
}

// GroupSummaries describes values within each group label. Groups are
// returned in the order given; labels absent from order are skipped, and
// an empty order means all groups sorted by label.
func (a *DescriptiveAnalyzer) GroupSummaries(values []float64, groups []string, order []string) ([]stats.GroupSummary, error) {
	if len(values) != len(groups) {
		return nil, core.NewLengthMismatchError("group labels", len(groups), len(values))
	}

	buckets := make(map[string][]float64)
	for i, g := range groups {
		if g == "" || math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			continue
		}
		buckets[g] = append(buckets[g], values[i])
	}

	if len(order) == 0 {
		for g := range buckets {
			order = append(order, g)
		}
		sort.Strings(order)
	}

	out := make([]stats.GroupSummary, 0, len(order))
	for _, g := range order {
		data, ok := buckets[g]
		if !ok {
			continue
		}
		out = append(out, summarize(g, data))
	}
	return out, nil
}

func summarize(group string, data []float64) stats.GroupSummary {
	s := stats.GroupSummary{Group: group, N: len(data)}
	s.Min, _ = mstats.Min(data)
	s.Max, _ = mstats.Max(data)
	s.Mean, _ = mstats.Mean(data)
	s.Median, _ = mstats.Median(data)
	if len(data) < 2 {
		s.Q1, s.Q3 = s.Median, s.Median
		return s
	}
	q, _ := mstats.Quartile(data)
	s.Q1, s.Q3 = q.Q1, q.Q3
	return s
}

// Trend fits y on x by ordinary least squares over pairwise-complete rows
func (a *DescriptiveAnalyzer) Trend(table *dataset.Table, x, y core.ColumnKey) (*stats.Trend, error) {
	xs, err := table.Numeric(x)
	if err != nil {
		return nil, err
	}
	ys, err := table.Numeric(y)
	if err != nil {
		return nil, err
	}

	px, py := pairwise(xs, ys)
	t := &stats.Trend{X: x, Y: y, N: len(px), XValues: px, YValues: py}
	if len(px) < 2 || isConstant(px) {
		t.Slope, t.Intercept, t.R = math.NaN(), math.NaN(), math.NaN()
		return t, nil
	}
	t.Intercept, t.Slope = stat.LinearRegression(px, py, nil, false)
	t.R = Pearson(px, py)
	return t, nil
}

func pairwise(x, y []float64) ([]float64, []float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	px := make([]float64, 0, n)
	py := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if finite(x[i]) && finite(y[i]) {
			px = append(px, x[i])
			py = append(py, y[i])
		}
	}
	return px, py
}

func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
