package features

import (
	"errors"
	"math"
	"testing"

	"dopastat/domain/core"
	"dopastat/domain/dataset"
	"dopastat/internal"

	mstats "github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardizeColumn_ZeroMeanUnitVariance(t *testing.T) {
	z, err := StandardizeColumn("x", []float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.NoError(t, err)

	mean, _ := mstats.Mean(z)
	std, _ := mstats.StandardDeviation(z)
	assert.InDelta(t, 0, mean, 1e-12)
	assert.InDelta(t, 1, std, 1e-12)
	// population std of the input is exactly 2
	assert.InDelta(t, -1.5, z[0], 1e-12)
}

func TestStandardizeColumn_KeepsMissing(t *testing.T) {
	z, err := StandardizeColumn("x", []float64{1, math.NaN(), 3})
	require.NoError(t, err)
	assert.InDelta(t, -1, z[0], 1e-12)
	assert.True(t, math.IsNaN(z[1]))
	assert.InDelta(t, 1, z[2], 1e-12)
}

func TestStandardizeColumn_Degenerate(t *testing.T) {
	_, err := StandardizeColumn("x", []float64{5, 5, 5})
	assert.True(t, errors.Is(err, core.ErrDegenerateColumn))

	_, err = StandardizeColumn("x", []float64{math.NaN()})
	assert.True(t, errors.Is(err, core.ErrDegenerateColumn))

	_, err = Standardize(map[core.ColumnKey][]float64{"a": {1, 2}, "b": {3, 3}})
	assert.True(t, core.IsRecoverable(err))
}

func TestCompositeIndex(t *testing.T) {
	idx, err := CompositeIndex([][]float64{
		{1, -1, math.NaN()},
		{3, 1, math.NaN()},
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, idx[0])
	assert.Equal(t, 0.0, idx[1])
	assert.True(t, math.IsNaN(idx[2]))

	_, err = CompositeIndex([][]float64{{1, 2}, {1}})
	assert.True(t, errors.Is(err, core.ErrLengthMismatch))

	_, err = CompositeIndex(nil)
	assert.Error(t, err)
}

func TestBinaryRecode(t *testing.T) {
	nonUser := dataset.DrugConsumptionSchema().NonUserLabels
	got := BinaryRecode([]string{"CL0", " cl1 ", "Never Used", "Used over a Decade Ago", "CL2", "CL6", "weekly"}, nonUser)
	assert.Equal(t, []float64{0, 0, 0, 0, 1, 1, 1}, got)
}

func TestBinaryRecode_IdempotentOnUsers(t *testing.T) {
	nonUser := dataset.DrugConsumptionSchema().NonUserLabels
	got := BinaryRecode([]string{"1", "1", "1"}, nonUser)
	assert.Equal(t, []float64{1, 1, 1}, got)
}

func TestMapOrdinal(t *testing.T) {
	bands := dataset.DrugConsumptionSchema().AgeBands
	values, unmapped := MapOrdinal("Age", []string{"18-24", "65+", "17", " 35-44", "17"}, bands)

	assert.Equal(t, 21.0, values[0])
	assert.Equal(t, 70.0, values[1])
	assert.True(t, math.IsNaN(values[2]))
	assert.Equal(t, 39.0, values[3])
	require.Len(t, unmapped, 1)
	assert.True(t, errors.Is(unmapped[0], core.ErrUnmappedCategory))
}

func surveyFixture(t *testing.T, rows int) *dataset.Table {
	t.Helper()
	s := dataset.DrugConsumptionSchema()
	table := dataset.NewTable(rows)
	for j, tr := range s.Traits {
		values := make([]float64, rows)
		for i := range values {
			values[i] = float64((i*(j+2))%7) - 3
		}
		require.NoError(t, table.AddNumeric(tr, values, false))
	}
	for _, sub := range s.Substances {
		labels := make([]string, rows)
		for i := range labels {
			labels[i] = "CL0"
			if i%2 == 0 {
				labels[i] = "CL4"
			}
		}
		require.NoError(t, table.AddCategorical(sub, labels, false))
	}
	ages := make([]string, rows)
	genders := make([]string, rows)
	for i := range ages {
		ages[i] = []string{"18-24", "25-34", "unknown"}[i%3]
		genders[i] = []string{"Male", "Female"}[i%2]
	}
	require.NoError(t, table.AddCategorical(s.AgeColumn, ages, false))
	require.NoError(t, table.AddCategorical(s.GenderColumn, genders, false))
	return table
}

func TestDeriver_Derive(t *testing.T) {
	table := surveyFixture(t, 12)
	d := NewDeriver(dataset.DrugConsumptionSchema(), internal.NewLogger(internal.LogLevelError))

	out, err := d.Derive(table)
	require.NoError(t, err)

	// 5 z traits + index + 19 bins + count + age + gender
	assert.Len(t, out.Created, 28)
	for _, k := range out.Created {
		col, err := table.Numeric(k)
		require.NoError(t, err)
		assert.Len(t, col, 12)
	}

	count, _ := table.Numeric(dataset.SubstanceCount)
	assert.Equal(t, 19.0, count[0])
	assert.Equal(t, 0.0, count[1])

	age, _ := table.Numeric(dataset.AgeNumeric)
	assert.Equal(t, 21.0, age[0])
	assert.True(t, math.IsNaN(age[2]))
	assert.Equal(t, 4, out.Unmapped[dataset.AgeNumeric])
	assert.NotEmpty(t, out.Warnings)

	gender, _ := table.Numeric(dataset.GenderNumeric)
	assert.Equal(t, []float64{0, 1}, gender[:2])
}

func TestDeriver_ConstantTraitBecomesZeros(t *testing.T) {
	table := dataset.NewTable(4)
	s := dataset.DrugConsumptionSchema()
	fixture := surveyFixture(t, 4)
	for _, k := range fixture.Keys() {
		if k == "Nscore" {
			require.NoError(t, table.AddNumeric(k, []float64{2, 2, 2, 2}, false))
			continue
		}
		if kind, _ := fixture.Kind(k); kind == dataset.KindNumeric {
			v, _ := fixture.Numeric(k)
			require.NoError(t, table.AddNumeric(k, v, false))
		} else {
			v, _ := fixture.Categorical(k)
			require.NoError(t, table.AddCategorical(k, v, false))
		}
	}

	out, err := NewDeriver(s, internal.NewLogger(internal.LogLevelError)).Derive(table)
	require.NoError(t, err)
	z, _ := table.Numeric("Nscore_z")
	assert.Equal(t, []float64{0, 0, 0, 0}, z)
	assert.NotEmpty(t, out.Warnings)
}

func TestDeriver_SchemaError(t *testing.T) {
	table := dataset.NewTable(2)
	require.NoError(t, table.AddNumeric("Impulsive", []float64{1, 2}, false))

	_, err := NewDeriver(dataset.DrugConsumptionSchema(), nil).Derive(table)
	require.Error(t, err)
	assert.True(t, core.IsSchemaError(err))
}
