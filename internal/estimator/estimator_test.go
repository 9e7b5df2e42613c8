package estimator

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"dopastat/domain/core"
	"dopastat/domain/dataset"
	"dopastat/domain/stats"
	"dopastat/internal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func quiet() *internal.Logger {
	return internal.NewLogger(internal.LogLevelError)
}

type col struct {
	key    core.ColumnKey
	values []float64
}

func buildTable(t *testing.T, rows int, cols ...col) *dataset.Table {
	t.Helper()
	table := dataset.NewTable(rows)
	for _, c := range cols {
		require.NoError(t, table.AddNumeric(c.key, c.values, false))
	}
	return table
}

func TestFit_FourRowScenario(t *testing.T) {
	table := buildTable(t, 4,
		col{"y", []float64{0, 1, 1, 0}},
		col{"x", []float64{1, 2, 2, 1}},
	)
	est := New(DefaultOptions(), quiet())

	fit, err := est.Fit(table, "y", []core.ColumnKey{"x"})
	require.NoError(t, err)
	require.Len(t, fit.Coefficients.Values, 2)
	assert.Equal(t, []core.ColumnKey{stats.InterceptKey, "x"}, fit.Columns)
	assert.Equal(t, stats.SolverSVD, fit.Coefficients.Solver)

	// x standardizes to [-1, 1, 1, -1]
	assert.InDelta(t, 0.5, fit.Coefficients.Values[0], 1e-9)
	assert.InDelta(t, 0.5, fit.Coefficients.Values[1], 1e-9)
	assert.Equal(t, 1.0, fit.Evaluation.Accuracy)
	assert.InDelta(t, 1.0, fit.Evaluation.RSquaredIndicative, 1e-9)
	assert.Equal(t, 0.5, fit.Evaluation.Threshold)
}

func TestPrepareDesignMatrix_DropsConstantColumn(t *testing.T) {
	table := buildTable(t, 4,
		col{"y", []float64{0, 1, 1, 0}},
		col{"x", []float64{1, 2, 2, 1}},
		col{"five", []float64{5, 5, 5, 5}},
	)
	est := New(DefaultOptions(), quiet())

	dm, err := est.PrepareDesignMatrix(table, "y", []core.ColumnKey{"five", "x"})
	require.NoError(t, err)
	assert.Equal(t, []core.ColumnKey{stats.InterceptKey, "x"}, dm.Columns)
	require.Len(t, dm.Dropped, 1)
	assert.Equal(t, stats.DroppedColumn{Key: "five", Reason: stats.DropZeroVariance}, dm.Dropped[0])

	fit, err := est.Fit(table, "y", []core.ColumnKey{"five", "x"})
	require.NoError(t, err)
	assert.Len(t, fit.Coefficients.Values, 2)
	assert.Equal(t, dm.Dropped, fit.Dropped)
}

func TestPrepareDesignMatrix_AlwaysFinite(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)
	table := buildTable(t, 5,
		col{"y", []float64{0, 1, 0, 1, 1}},
		col{"gappy", []float64{1, nan, 3, inf, 5}},
		col{"empty", []float64{nan, nan, nan, nan, nan}},
		col{"ok", []float64{2, 1, 4, 3, 5}},
	)
	est := New(DefaultOptions(), quiet())

	dm, err := est.PrepareDesignMatrix(table, "y", []core.ColumnKey{"gappy", "empty", "ok", "absent"})
	require.NoError(t, err)

	assert.Equal(t, stats.InterceptKey, dm.Columns[0])
	assert.Equal(t, []core.ColumnKey{stats.InterceptKey, "gappy", "ok"}, dm.Columns)
	assert.Len(t, dm.Data, dm.Rows*dm.Cols())
	for _, v := range dm.Data {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
	for i := 0; i < dm.Rows; i++ {
		assert.Equal(t, 1.0, dm.At(i, 0))
	}
	// missing entries are imputed to zero after standardization
	assert.Equal(t, 0.0, dm.At(1, 1))
	assert.Equal(t, 0.0, dm.At(3, 1))

	reasons := map[core.ColumnKey]stats.DropReason{}
	for _, d := range dm.Dropped {
		reasons[d.Key] = d.Reason
	}
	assert.Equal(t, stats.DropAllMissing, reasons["empty"])
	assert.Equal(t, stats.DropAbsentInTable, reasons["absent"])
}

func TestPrepareDesignMatrix_InterceptOnly(t *testing.T) {
	table := buildTable(t, 1, col{"y", []float64{1}})
	est := New(DefaultOptions(), quiet())

	dm, err := est.PrepareDesignMatrix(table, "y", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, dm.Cols())

	fit := est.FitMatrix("y", dm)
	require.Len(t, fit.Coefficients.Values, 1)
	assert.InDelta(t, 1, fit.Coefficients.Values[0], 1e-9)
	assert.True(t, math.IsNaN(fit.Evaluation.RSquaredIndicative))
}

func TestFit_CoercesCategoricalPredictor(t *testing.T) {
	table := buildTable(t, 4,
		col{"y", []float64{0, 1, 1, 0}},
		col{"x", []float64{1, 2, 2, 1}},
	)
	require.NoError(t, table.AddCategorical("AScore", []string{"n/a", "12", " 30 ", "n/a"}, false))
	est := New(DefaultOptions(), quiet())

	fit, err := est.Fit(table, "y", []core.ColumnKey{"x", "AScore"})
	require.NoError(t, err)
	assert.Equal(t, []core.ColumnKey{stats.InterceptKey, "x", "AScore"}, fit.Columns)
	assert.Empty(t, fit.Dropped)

	// AScore standardizes to [0, -1, 1, 0] with the unparsable rows imputed
	require.Len(t, fit.Coefficients.Values, 3)
	assert.InDelta(t, 0.5, fit.Coefficients.Values[0], 1e-9)
	assert.InDelta(t, 0.5, fit.Coefficients.Values[1], 1e-9)
	assert.InDelta(t, 0.0, fit.Coefficients.Values[2], 1e-9)
	assert.Equal(t, 1.0, fit.Evaluation.Accuracy)
}

func TestFit_UnparsableCategoricalPredictor(t *testing.T) {
	table := buildTable(t, 4,
		col{"y", []float64{0, 1, 1, 0}},
		col{"x", []float64{1, 2, 2, 1}},
	)
	require.NoError(t, table.AddCategorical("Cscore", []string{"n/a", "", "unknown", "n/a"}, false))

	fit, err := New(DefaultOptions(), quiet()).Fit(table, "y", []core.ColumnKey{"x", "Cscore"})
	require.NoError(t, err)
	assert.Equal(t, []core.ColumnKey{stats.InterceptKey, "x"}, fit.Columns)
	assert.Equal(t, []stats.DroppedColumn{{Key: "Cscore", Reason: stats.DropAllMissing}}, fit.Dropped)

	dm, err := New(Options{Policy: PolicyZeroFill}, quiet()).PrepareDesignMatrix(table, "y", []core.ColumnKey{"x", "Cscore"})
	require.NoError(t, err)
	assert.Equal(t, []core.ColumnKey{"Cscore"}, dm.ZeroFilled)
}

func TestPrepareDesignMatrix_ZeroFillPolicy(t *testing.T) {
	table := buildTable(t, 4,
		col{"y", []float64{1, 1, 0, 0}},
		col{"x", []float64{1, 2, 3, 4}},
		col{"flat", []float64{3, 3, 3, 3}},
	)
	est := New(Options{Policy: PolicyZeroFill}, quiet())

	dm, err := est.PrepareDesignMatrix(table, "y", []core.ColumnKey{"x", "flat"})
	require.NoError(t, err)
	assert.Equal(t, []core.ColumnKey{stats.InterceptKey, "x", "flat"}, dm.Columns)
	assert.Equal(t, []core.ColumnKey{"flat"}, dm.ZeroFilled)
	for i := 0; i < dm.Rows; i++ {
		assert.Equal(t, 0.0, dm.At(i, 2))
	}

	_, err = est.PrepareDesignMatrix(table, "y", []core.ColumnKey{"x", "absent"})
	assert.True(t, core.IsSchemaError(err))
}

func TestPrepareDesignMatrix_TargetErrors(t *testing.T) {
	table := buildTable(t, 3,
		col{"y", []float64{1, math.NaN(), 0}},
		col{"x", []float64{1, 2, 3}},
	)
	est := New(DefaultOptions(), quiet())

	_, err := est.PrepareDesignMatrix(table, "y", []core.ColumnKey{"x"})
	assert.True(t, errors.Is(err, core.ErrInsufficientData))

	_, err = est.PrepareDesignMatrix(table, "nope", []core.ColumnKey{"x"})
	assert.True(t, core.IsSchemaError(err))

	_, err = est.PrepareDesignMatrix(dataset.NewTable(0), "y", nil)
	assert.True(t, errors.Is(err, core.ErrInsufficientData))
}

func TestSolve_DuplicateColumnsFallBackToRidge(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	table := buildTable(t, 6,
		col{"y", []float64{0, 0, 1, 0, 1, 1}},
		col{"x", x},
		col{"x_copy", x},
	)
	est := New(DefaultOptions(), quiet())

	fit, err := est.Fit(table, "y", []core.ColumnKey{"x", "x_copy"})
	require.NoError(t, err)
	assert.Equal(t, stats.SolverRidge, fit.Coefficients.Solver)
	assert.Equal(t, DefaultLambda, fit.Coefficients.Lambda)
	assert.Equal(t, 2, fit.Coefficients.Rank)
	assert.NotEmpty(t, fit.Coefficients.Warning)
	require.Len(t, fit.Coefficients.Values, 3)
	for _, v := range fit.Coefficients.Values {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
	// the penalty splits the weight evenly between identical columns
	assert.InDelta(t, fit.Coefficients.Values[1], fit.Coefficients.Values[2], 1e-9)
}

func TestRidge_AlwaysFinite(t *testing.T) {
	X := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		1, 0, 0,
		1, 0, 0,
	})
	y := mat.NewVecDense(3, []float64{1, 0, 1})

	beta := Ridge(X, y, 1e-5)
	require.Len(t, beta, 3)
	for _, v := range beta {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}

	// non-positive lambda is replaced by the default
	assert.Len(t, Ridge(X, y, 0), 3)
}

func TestPredict_ClipsToUnitInterval(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rows, cols := 50, 4
	dm := &stats.DesignMatrix{
		Rows:    rows,
		Columns: []core.ColumnKey{stats.InterceptKey, "a", "b", "c"},
		Data:    make([]float64, rows*cols),
	}
	for i := range dm.Data {
		dm.Data[i] = rng.NormFloat64() * 10
	}
	beta := []float64{0.5, 3, -2, 7}

	for _, p := range Predict(dm, beta) {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestEvaluate(t *testing.T) {
	eval := Evaluate([]float64{0, 1, 1, 0}, []float64{0.2, 0.5, 0.4, 0.9}, 0.5)
	assert.Equal(t, 0.5, eval.Accuracy)
	assert.InDelta(t, 1-(0.04+0.25+0.36+0.81)/1.0, eval.RSquaredIndicative, 1e-12)

	constant := Evaluate([]float64{1, 1}, []float64{0.7, 0.9}, 0.5)
	assert.Equal(t, 1.0, constant.Accuracy)
	assert.True(t, math.IsNaN(constant.RSquaredIndicative))

	empty := Evaluate(nil, nil, 0.5)
	assert.True(t, math.IsNaN(empty.Accuracy))
}

func TestNew_Defaults(t *testing.T) {
	est := New(Options{Lambda: -1, Threshold: 2}, nil)
	assert.Equal(t, DefaultLambda, est.Options().Lambda)
	assert.Equal(t, DefaultThreshold, est.Options().Threshold)
	assert.Equal(t, "drop", PolicyDrop.String())
	assert.Equal(t, "zero_fill", PolicyZeroFill.String())
}
