package estimator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"dopastat/domain/core"
	"dopastat/domain/dataset"
	"dopastat/domain/stats"
	"dopastat/internal/features"
)

// ColumnPolicy decides what happens to a predictor that cannot be standardized
type ColumnPolicy int

const (
	// PolicyDrop removes absent, all-missing and single-valued predictors
	PolicyDrop ColumnPolicy = iota
	// PolicyZeroFill keeps every predictor, replacing unusable ones with
	// zeros so the matrix shape is the same for every target
	PolicyZeroFill
)

func (p ColumnPolicy) String() string {
	switch p {
	case PolicyDrop:
		return "drop"
	case PolicyZeroFill:
		return "zero_fill"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// PrepareDesignMatrix builds [1 | standardized predictors] and the target
// vector. The result never holds NaN or Inf and always has the intercept.
func (e *Estimator) PrepareDesignMatrix(table *dataset.Table, target core.ColumnKey, predictors []core.ColumnKey) (*stats.DesignMatrix, error) {
	rows := table.RowCount()
	if rows < 1 {
		return nil, fmt.Errorf("%w: table has no rows", core.ErrInsufficientData)
	}
	if !table.Has(target) {
		return nil, core.NewSchemaError([]string{target.String()})
	}
	y, err := table.Numeric(target)
	if err != nil {
		return nil, err
	}
	for i, v := range y {
		if !finite(v) {
			return nil, fmt.Errorf("%w: target %s is missing at row %d", core.ErrInsufficientData, target, i)
		}
	}

	dm := &stats.DesignMatrix{
		Rows:    rows,
		Columns: []core.ColumnKey{stats.InterceptKey},
		Target:  y,
	}
	kept := [][]float64{ones(rows)}

	for _, key := range predictors {
		col, ok, err := e.prepareColumn(table, dm, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		dm.Columns = append(dm.Columns, key)
		kept = append(kept, col)
	}

	cols := len(dm.Columns)
	dm.Data = make([]float64, rows*cols)
	for j, col := range kept {
		for i, v := range col {
			dm.Data[i*cols+j] = v
		}
	}
	return dm, nil
}

// prepareColumn returns the standardized predictor, or ok=false if the drop
// policy removed it
func (e *Estimator) prepareColumn(table *dataset.Table, dm *stats.DesignMatrix, key core.ColumnKey) ([]float64, bool, error) {
	rows := table.RowCount()

	if !table.Has(key) {
		if e.opts.Policy == PolicyZeroFill {
			return nil, false, core.NewSchemaError([]string{key.String()})
		}
		e.drop(dm, key, stats.DropAbsentInTable)
		return nil, false, nil
	}
	values, err := e.numericValues(table, key)
	if err != nil {
		return nil, false, err
	}
	for i, v := range values {
		if math.IsInf(v, 0) {
			values[i] = math.NaN()
		}
	}

	finiteValues := features.Finite(values)
	if len(finiteValues) == 0 {
		if e.opts.Policy == PolicyZeroFill {
			e.zeroFill(dm, key, "no finite values")
			return make([]float64, rows), true, nil
		}
		e.drop(dm, key, stats.DropAllMissing)
		return nil, false, nil
	}

	if e.opts.Policy == PolicyDrop && distinct(finiteValues) <= 1 {
		e.drop(dm, key, stats.DropZeroVariance)
		return nil, false, nil
	}

	mean, std, _ := features.PopulationMoments(values)
	if std == 0 || !finite(std) {
		if e.opts.Policy == PolicyZeroFill {
			e.zeroFill(dm, key, "zero standard deviation")
			return make([]float64, rows), true, nil
		}
		// distinct values but no spread: center without dividing
		dm.Unstandardized = append(dm.Unstandardized, key)
		e.logger.Warn("%v; centered without scaling", core.NewDegenerateColumnError(key.String(), "zero standard deviation"))
		std = 1
	}

	out := make([]float64, rows)
	for i, v := range values {
		if !finite(v) {
			continue // missing imputed to zero after standardization
		}
		out[i] = (v - mean) / std
	}
	return out, true, nil
}

// numericValues reads a predictor as numbers. Categorical columns are
// coerced label by label; labels that do not parse become NaN.
func (e *Estimator) numericValues(table *dataset.Table, key core.ColumnKey) ([]float64, error) {
	if kind, _ := table.Kind(key); kind != dataset.KindCategorical {
		return table.Numeric(key)
	}
	labels, err := table.Categorical(key)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(labels))
	unparsed := 0
	for i, label := range labels {
		v, err := strconv.ParseFloat(strings.TrimSpace(label), 64)
		if err != nil {
			values[i] = math.NaN()
			unparsed++
			continue
		}
		values[i] = v
	}
	e.logger.Warn("predictor %s is categorical; coerced to numeric, %d of %d labels unparsable", key, unparsed, len(labels))
	return values, nil
}

func (e *Estimator) drop(dm *stats.DesignMatrix, key core.ColumnKey, reason stats.DropReason) {
	dm.Dropped = append(dm.Dropped, stats.DroppedColumn{Key: key, Reason: reason})
	if reason == stats.DropAbsentInTable {
		e.logger.Debug("predictor %s not in table, skipped", key)
		return
	}
	e.logger.Warn("%v; removed from design matrix", core.NewDegenerateColumnError(key.String(), string(reason)))
}

func (e *Estimator) zeroFill(dm *stats.DesignMatrix, key core.ColumnKey, reason string) {
	dm.ZeroFilled = append(dm.ZeroFilled, key)
	e.logger.Warn("%v; replaced with zeros", core.NewDegenerateColumnError(key.String(), reason))
}

func distinct(values []float64) int {
	seen := make(map[float64]struct{}, 2)
	for _, v := range values {
		seen[v] = struct{}{}
		if len(seen) > 1 {
			return len(seen)
		}
	}
	return len(seen)
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
