package stats

import (
	"math"
	"sort"

	"dopastat/domain/core"
)

// InterceptKey labels the constant design-matrix column
const InterceptKey = core.ColumnKey("const")

// DesignMatrix is the numeric input to a least-squares fit.
// INVARIANTS:
// - Data is row-major, Rows x len(Columns)
// - Columns[0] is always InterceptKey
// - no entry is NaN or infinite
type DesignMatrix struct {
	Rows    int
	Columns []core.ColumnKey
	Data    []float64
	Target  []float64

	// Column-handling outcome, reported for transparency
	Dropped        []DroppedColumn
	ZeroFilled     []core.ColumnKey
	Unstandardized []core.ColumnKey
}

// Cols returns the number of design-matrix columns including the intercept
func (d *DesignMatrix) Cols() int {
	return len(d.Columns)
}

// At returns the value at row i, column j
func (d *DesignMatrix) At(i, j int) float64 {
	return d.Data[i*len(d.Columns)+j]
}

// ColumnIndex finds a column by key
func (d *DesignMatrix) ColumnIndex(key core.ColumnKey) (int, bool) {
	for i, c := range d.Columns {
		if c == key {
			return i, true
		}
	}
	return -1, false
}

// DropReason says why a predictor never reached the design matrix
type DropReason string

const (
	DropAllMissing    DropReason = "all_missing"
	DropZeroVariance  DropReason = "zero_variance"
	DropAbsentInTable DropReason = "absent"
)

// DroppedColumn records one removed predictor
type DroppedColumn struct {
	Key    core.ColumnKey `json:"key"`
	Reason DropReason     `json:"reason"`
}

// Solver identifies which path produced a coefficient vector
type Solver string

const (
	SolverSVD   Solver = "svd_least_squares"
	SolverRidge Solver = "ridge_normal_equations"
)

// Coefficient is one named weight of a fitted model
type Coefficient struct {
	Key   core.ColumnKey `json:"key"`
	Value float64        `json:"value"`
}

// Coefficients is positionally aligned with DesignMatrix.Columns
type Coefficients struct {
	Values  []float64 `json:"values"`
	Solver  Solver    `json:"solver"`
	Rank    int       `json:"rank"`
	Lambda  float64   `json:"lambda,omitempty"`
	Warning string    `json:"warning,omitempty"`
}

// Evaluation holds fit-quality metrics of a linear probability model.
// RSquaredIndicative is 1 - SSres/SStot on a binary target and is not a
// classical coefficient of determination.
type Evaluation struct {
	Accuracy           float64 `json:"accuracy"`
	RSquaredIndicative float64 `json:"r_squared_indicative"`
	Threshold          float64 `json:"threshold"`
}

// FitResult bundles one fitting call's output
type FitResult struct {
	Target         core.ColumnKey   `json:"target"`
	Columns        []core.ColumnKey `json:"columns"`
	Coefficients   Coefficients     `json:"coefficients"`
	Predicted      []float64        `json:"-"`
	Evaluation     Evaluation       `json:"evaluation"`
	Dropped        []DroppedColumn  `json:"dropped,omitempty"`
	ZeroFilled     []core.ColumnKey `json:"zero_filled,omitempty"`
	Unstandardized []core.ColumnKey `json:"unstandardized,omitempty"`
}

// Named pairs each coefficient with its column key
func (f *FitResult) Named() []Coefficient {
	out := make([]Coefficient, len(f.Columns))
	for i, c := range f.Columns {
		out[i] = Coefficient{Key: c, Value: f.Coefficients.Values[i]}
	}
	return out
}

// Weight looks up a single coefficient
func (f *FitResult) Weight(key core.ColumnKey) (float64, bool) {
	for i, c := range f.Columns {
		if c == key {
			return f.Coefficients.Values[i], true
		}
	}
	return math.NaN(), false
}

// PredictorWeights returns non-intercept coefficients sorted descending
func (f *FitResult) PredictorWeights() []Coefficient {
	out := make([]Coefficient, 0, len(f.Columns))
	for _, c := range f.Named() {
		if c.Key == InterceptKey {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// CorrelationMatrix is a labeled block of Pearson coefficients.
// Undefined entries (constant input) are NaN.
type CorrelationMatrix struct {
	Rows   []core.ColumnKey
	Cols   []core.ColumnKey
	Values [][]float64
}

// At returns the coefficient for a row/column pair
func (m *CorrelationMatrix) At(row, col core.ColumnKey) (float64, bool) {
	ri, ci := -1, -1
	for i, r := range m.Rows {
		if r == row {
			ri = i
		}
	}
	for j, c := range m.Cols {
		if c == col {
			ci = j
		}
	}
	if ri < 0 || ci < 0 {
		return math.NaN(), false
	}
	return m.Values[ri][ci], true
}

// PrevalenceEntry counts users of one substance
type PrevalenceEntry struct {
	Key   core.ColumnKey `json:"key"`
	Count int            `json:"count"`
}

// Prevalence is sorted by descending count
type Prevalence []PrevalenceEntry

// GroupSummary describes a numeric column within one category
type GroupSummary struct {
	Group  string  `json:"group"`
	N      int     `json:"n"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
}

// Trend is a simple OLS line of Y on X with the Pearson coefficient
type Trend struct {
	X         core.ColumnKey `json:"x"`
	Y         core.ColumnKey `json:"y"`
	Slope     float64        `json:"slope"`
	Intercept float64        `json:"intercept"`
	R         float64        `json:"r"`
	N         int            `json:"n"`
	XValues   []float64      `json:"-"`
	YValues   []float64      `json:"-"`
}

// RankedTarget is one comparator outcome
type RankedTarget struct {
	Target      core.ColumnKey `json:"target"`
	Name        string         `json:"name"`
	Coefficient float64        `json:"coefficient"`
	Solver      Solver         `json:"solver"`
}
