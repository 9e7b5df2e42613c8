package comparator

import (
	"context"
	"errors"
	"testing"

	"dopastat/domain/core"
	"dopastat/domain/dataset"
	"dopastat/domain/stats"
	"dopastat/internal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func comparatorTable(t *testing.T) *dataset.Table {
	t.Helper()
	table := dataset.NewTable(4)
	require.NoError(t, table.AddNumeric("A", []float64{1, 1, 0, 0}, true))
	require.NoError(t, table.AddNumeric("B", []float64{0, 0, 1, 1}, true))
	require.NoError(t, table.AddNumeric(dataset.CompositeIndex, []float64{1, 2, 3, 4}, true))
	require.NoError(t, table.AddNumeric(dataset.AgeNumeric, []float64{21, 29, 21, 39}, true))
	require.NoError(t, table.AddNumeric(dataset.GenderNumeric, []float64{0, 1, 1, 0}, true))
	return table
}

func defaultRequest(targets ...core.ColumnKey) Request {
	return Request{
		Targets:    targets,
		Predictors: []core.ColumnKey{dataset.CompositeIndex, dataset.AgeNumeric, dataset.GenderNumeric},
		Focal:      dataset.CompositeIndex,
	}
}

func newComparator(workers int) *Comparator {
	return New(1e-5, 0.5, workers, internal.NewLogger(internal.LogLevelError))
}

func TestCompare_IndependentTargets(t *testing.T) {
	table := comparatorTable(t)

	res, err := newComparator(2).Compare(context.Background(), table, defaultRequest("A", "B"))
	require.NoError(t, err)
	require.Len(t, res.Ranking, 2)
	require.Len(t, res.Fits, 2)

	a, b := res.Fits["A"], res.Fits["B"]
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Len(t, a.Coefficients.Values, 4)
	assert.Len(t, b.Coefficients.Values, 4)

	// B = 1 - A, so every slope flips sign
	wa, _ := a.Weight(dataset.CompositeIndex)
	wb, _ := b.Weight(dataset.CompositeIndex)
	assert.InDelta(t, -wa, wb, 1e-9)
	assert.NotEqual(t, a.Predicted, b.Predicted)

	assert.GreaterOrEqual(t, res.Ranking[0].Coefficient, res.Ranking[1].Coefficient)
	assert.ElementsMatch(t, []core.ColumnKey{"A", "B"}, []core.ColumnKey{res.Ranking[0].Target, res.Ranking[1].Target})
}

func TestCompare_SameResultForAnyWorkerCount(t *testing.T) {
	serial, err := newComparator(1).Compare(context.Background(), comparatorTable(t), defaultRequest("A", "B"))
	require.NoError(t, err)
	parallel, err := newComparator(8).Compare(context.Background(), comparatorTable(t), defaultRequest("A", "B"))
	require.NoError(t, err)

	require.Len(t, parallel.Ranking, len(serial.Ranking))
	for i := range serial.Ranking {
		assert.Equal(t, serial.Ranking[i].Target, parallel.Ranking[i].Target)
		assert.InDelta(t, serial.Ranking[i].Coefficient, parallel.Ranking[i].Coefficient, 1e-12)
	}
}

func TestCompare_ZeroFillsConstantPredictor(t *testing.T) {
	table := dataset.NewTable(4)
	require.NoError(t, table.AddNumeric("A", []float64{1, 1, 0, 0}, true))
	require.NoError(t, table.AddNumeric(dataset.CompositeIndex, []float64{1, 2, 3, 4}, true))
	require.NoError(t, table.AddNumeric(dataset.AgeNumeric, []float64{30, 30, 30, 30}, true))
	require.NoError(t, table.AddNumeric(dataset.GenderNumeric, []float64{0, 1, 1, 0}, true))

	res, err := newComparator(1).Compare(context.Background(), table, defaultRequest("A"))
	require.NoError(t, err)

	fit := res.Fits["A"]
	assert.Equal(t, []core.ColumnKey{dataset.AgeNumeric}, fit.ZeroFilled)
	// shape is kept: intercept plus all three predictors
	assert.Len(t, fit.Columns, 4)
	assert.Equal(t, stats.SolverRidge, fit.Coefficients.Solver)
}

func TestCompare_SkipsMissingTargets(t *testing.T) {
	res, err := newComparator(2).Compare(context.Background(), comparatorTable(t), defaultRequest("A", "Missing_bin"))
	require.NoError(t, err)
	require.Len(t, res.Ranking, 1)
	assert.Equal(t, core.ColumnKey("A"), res.Ranking[0].Target)
}

func TestCompare_Errors(t *testing.T) {
	table := comparatorTable(t)
	c := newComparator(2)

	_, err := c.Compare(context.Background(), table, defaultRequest())
	assert.True(t, errors.Is(err, core.ErrInsufficientData))

	req := defaultRequest("A")
	req.Predictors = append(req.Predictors, "absent")
	_, err = c.Compare(context.Background(), table, req)
	assert.True(t, core.IsSchemaError(err))

	req = defaultRequest("A")
	req.Focal = "other"
	_, err = c.Compare(context.Background(), table, req)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Compare(ctx, table, defaultRequest("A", "B"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRank_StableDescending(t *testing.T) {
	ranking := []stats.RankedTarget{
		{Target: "a", Coefficient: 0.1},
		{Target: "b", Coefficient: 0.3},
		{Target: "c", Coefficient: 0.1},
		{Target: "d", Coefficient: -0.2},
	}
	Rank(ranking)
	got := make([]core.ColumnKey, len(ranking))
	for i, r := range ranking {
		got[i] = r.Target
	}
	assert.Equal(t, []core.ColumnKey{"b", "a", "c", "d"}, got)
}
