// Package estimator fits linear probability models: ordinary least squares
// on a 0/1 target over standardized predictors, with a ridge fallback for
// singular systems.
package estimator

import (
	"math"

	"dopastat/domain/core"
	"dopastat/domain/dataset"
	"dopastat/domain/stats"
	"dopastat/internal"

	"gonum.org/v1/gonum/mat"
)

const (
	DefaultLambda    = 1e-5
	DefaultThreshold = 0.5
)

// Options configures one Estimator
type Options struct {
	Policy    ColumnPolicy
	Lambda    float64
	Threshold float64
}

// DefaultOptions returns the drop policy with the standard ridge lambda
func DefaultOptions() Options {
	return Options{
		Policy:    PolicyDrop,
		Lambda:    DefaultLambda,
		Threshold: DefaultThreshold,
	}
}

// Estimator is stateless between calls and safe for concurrent use
type Estimator struct {
	opts   Options
	logger *internal.Logger
}

// New creates an estimator. Invalid lambda or threshold fall back to defaults.
func New(opts Options, logger *internal.Logger) *Estimator {
	if !(opts.Lambda > 0) {
		opts.Lambda = DefaultLambda
	}
	if !(opts.Threshold > 0 && opts.Threshold < 1) {
		opts.Threshold = DefaultThreshold
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Estimator{opts: opts, logger: logger.With("estimator")}
}

// Options returns the effective options
func (e *Estimator) Options() Options {
	return e.opts
}

// Fit prepares the design matrix, solves, predicts and evaluates
func (e *Estimator) Fit(table *dataset.Table, target core.ColumnKey, predictors []core.ColumnKey) (*stats.FitResult, error) {
	dm, err := e.PrepareDesignMatrix(table, target, predictors)
	if err != nil {
		return nil, err
	}
	return e.FitMatrix(target, dm), nil
}

// FitMatrix runs the solver on an already prepared design matrix
func (e *Estimator) FitMatrix(target core.ColumnKey, dm *stats.DesignMatrix) *stats.FitResult {
	coef := e.Solve(dm)
	predicted := Predict(dm, coef.Values)
	eval := Evaluate(dm.Target, predicted, e.opts.Threshold)

	e.logger.Debug("fit %s: %d rows, %d columns, solver=%s, accuracy=%.3f",
		target, dm.Rows, dm.Cols(), coef.Solver, eval.Accuracy)

	return &stats.FitResult{
		Target:         target,
		Columns:        append([]core.ColumnKey(nil), dm.Columns...),
		Coefficients:   coef,
		Predicted:      predicted,
		Evaluation:     eval,
		Dropped:        dm.Dropped,
		ZeroFilled:     dm.ZeroFilled,
		Unstandardized: dm.Unstandardized,
	}
}

// Predict computes X*beta clipped to [0, 1]. Out-of-range linear
// probabilities are clipped, not discarded.
func Predict(dm *stats.DesignMatrix, beta []float64) []float64 {
	X := mat.NewDense(dm.Rows, dm.Cols(), append([]float64(nil), dm.Data...))
	b := mat.NewVecDense(len(beta), append([]float64(nil), beta...))

	var yhat mat.VecDense
	yhat.MulVec(X, b)

	out := make([]float64, dm.Rows)
	for i := range out {
		out[i] = clip(yhat.AtVec(i))
	}
	return out
}

// Evaluate scores predictions against a binary target. Accuracy counts rows
// where (yhat >= threshold) agrees with y. The R-squared is indicative only;
// it is NaN when y has no variance.
func Evaluate(y, yhat []float64, threshold float64) stats.Evaluation {
	eval := stats.Evaluation{Threshold: threshold}
	n := len(y)
	if n == 0 || len(yhat) != n {
		eval.Accuracy, eval.RSquaredIndicative = math.NaN(), math.NaN()
		return eval
	}

	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)

	correct := 0
	ssRes, ssTot := 0.0, 0.0
	for i := range y {
		class := 0.0
		if yhat[i] >= threshold {
			class = 1
		}
		if class == y[i] {
			correct++
		}
		ssRes += (y[i] - yhat[i]) * (y[i] - yhat[i])
		ssTot += (y[i] - mean) * (y[i] - mean)
	}

	eval.Accuracy = float64(correct) / float64(n)
	if ssTot == 0 {
		eval.RSquaredIndicative = math.NaN()
	} else {
		eval.RSquaredIndicative = 1 - ssRes/ssTot
	}
	return eval
}

func clip(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
