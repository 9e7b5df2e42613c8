package dataset

import (
	"errors"
	"math"
	"testing"

	"dopastat/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_AddAndRead(t *testing.T) {
	table := NewTable(3)
	src := []float64{1, 2, 3}
	require.NoError(t, table.AddNumeric("x", src, false))
	require.NoError(t, table.AddCategorical("g", []string{"a", "b", "a"}, false))

	// the table keeps its own copy
	src[0] = 99
	x, err := table.Numeric("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, x)

	x[1] = -1
	again, _ := table.Numeric("x")
	assert.Equal(t, 2.0, again[1])

	assert.Equal(t, 3, table.RowCount())
	assert.Equal(t, 2, table.ColumnCount())
	assert.Equal(t, []core.ColumnKey{"x", "g"}, table.Keys())
}

func TestTable_AddRejectsBadColumns(t *testing.T) {
	table := NewTable(2)
	require.NoError(t, table.AddNumeric("x", []float64{1, 2}, false))

	assert.Error(t, table.AddNumeric("x", []float64{3, 4}, true))

	err := table.AddNumeric("y", []float64{1}, true)
	assert.True(t, errors.Is(err, core.ErrLengthMismatch))
}

func TestTable_KindErrors(t *testing.T) {
	table := NewTable(2)
	require.NoError(t, table.AddCategorical("g", []string{"a", "b"}, false))

	_, err := table.Numeric("g")
	assert.True(t, errors.Is(err, core.ErrColumnKind))

	_, err = table.Numeric("missing")
	assert.True(t, errors.Is(err, core.ErrColumnNotFound))
}

func TestTable_CategoricalFormatsNumbers(t *testing.T) {
	table := NewTable(3)
	require.NoError(t, table.AddNumeric("age", []float64{18, math.NaN(), 24.5}, false))

	labels, err := table.Categorical("age")
	require.NoError(t, err)
	assert.Equal(t, []string{"18", "", "24.5"}, labels)
}

func TestTable_RequireAndPresent(t *testing.T) {
	table := NewTable(1)
	require.NoError(t, table.AddNumeric("a", []float64{1}, false))

	assert.NoError(t, table.Require("a"))
	err := table.Require("a", "b", "c")
	require.Error(t, err)
	assert.True(t, core.IsSchemaError(err))
	assert.Contains(t, err.Error(), "b, c")

	assert.Equal(t, []core.ColumnKey{"a"}, table.Present("b", "a"))
}

func TestSchema_Keys(t *testing.T) {
	s := DrugConsumptionSchema()
	assert.Len(t, s.Substances, 19)
	assert.Len(t, s.BinaryKeys(), 19)
	assert.Equal(t, core.ColumnKey("Alcohol_bin"), s.BinaryKeys()[0])
	assert.Equal(t, core.ColumnKey("Impulsive_z"), s.StandardizedKeys()[0])
	assert.Equal(t, "Cannabis", SubstanceName("Cannabis_bin"))
	assert.Equal(t, s.ModelTarget, BinaryKey("Cannabis"))

	// 5 traits + 19 substances + age + gender
	assert.Len(t, s.Required(), 26)
	for _, opt := range s.OptionalTraits {
		assert.NotContains(t, s.Required(), opt)
	}
}

func TestSchema_Validate(t *testing.T) {
	s := DrugConsumptionSchema()
	table := NewTable(1)
	for _, k := range s.Required() {
		require.NoError(t, table.AddCategorical(k, []string{"x"}, false))
	}
	assert.NoError(t, s.Validate(table))

	empty := NewTable(1)
	assert.True(t, core.IsSchemaError(s.Validate(empty)))
}
