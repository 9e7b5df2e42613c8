// Package features derives analysis columns from the raw survey table:
// z-scored traits, the composite index, binary use indicators and numeric
// demographic codes.
package features

import (
	"math"
	"strings"

	"dopastat/domain/core"

	"github.com/montanaflynn/stats"
)

// Standardize z-scores each column with its population mean and standard
// deviation (divisor N). Missing values are ignored for the statistics and
// stay missing. A column with zero deviation fails with ErrDegenerateColumn.
func Standardize(columns map[core.ColumnKey][]float64) (map[core.ColumnKey][]float64, error) {
	out := make(map[core.ColumnKey][]float64, len(columns))
	for key, values := range columns {
		z, err := StandardizeColumn(key, values)
		if err != nil {
			return nil, err
		}
		out[key] = z
	}
	return out, nil
}

// StandardizeColumn z-scores a single column
func StandardizeColumn(key core.ColumnKey, values []float64) ([]float64, error) {
	mean, std, ok := PopulationMoments(values)
	if !ok {
		return nil, core.NewDegenerateColumnError(key.String(), "no finite values")
	}
	if std == 0 {
		return nil, core.NewDegenerateColumnError(key.String(), "zero standard deviation")
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if !isFinite(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (v - mean) / std
	}
	return out, nil
}

// PopulationMoments returns mean and population standard deviation over the
// finite entries. ok is false when there are none.
func PopulationMoments(values []float64) (mean, std float64, ok bool) {
	data := Finite(values)
	if len(data) == 0 {
		return math.NaN(), math.NaN(), false
	}
	mean, _ = stats.Mean(data)
	// StandardDeviation is the population form
	std, _ = stats.StandardDeviation(data)
	return mean, std, true
}

// CompositeIndex averages standardized columns per row. Missing entries are
// skipped; a row with no finite entries yields NaN.
func CompositeIndex(columns [][]float64) ([]float64, error) {
	if len(columns) == 0 {
		return nil, core.ErrInsufficientData
	}
	n := len(columns[0])
	for _, c := range columns[1:] {
		if len(c) != n {
			return nil, core.NewLengthMismatchError("composite input", len(c), n)
		}
	}

	out := make([]float64, n)
	for r := 0; r < n; r++ {
		sum, count := 0.0, 0
		for _, c := range columns {
			if isFinite(c[r]) {
				sum += c[r]
				count++
			}
		}
		if count == 0 {
			out[r] = math.NaN()
			continue
		}
		out[r] = sum / float64(count)
	}
	return out, nil
}

// BinaryRecode maps usage labels to 0 when they match a non-user label
// (trimmed, case-insensitive) and to 1 otherwise. Unrecognized labels count
// as use.
func BinaryRecode(labels []string, nonUserLabels []string) []float64 {
	nonUser := make(map[string]struct{}, len(nonUserLabels))
	for _, l := range nonUserLabels {
		nonUser[normalize(l)] = struct{}{}
	}

	out := make([]float64, len(labels))
	for i, l := range labels {
		if _, ok := nonUser[normalize(l)]; ok {
			continue
		}
		out[i] = 1
	}
	return out
}

// MapOrdinal looks each label up in mapping. Absent labels become NaN and are
// returned as ErrUnmappedCategory values, one per distinct label, in first-seen order.
func MapOrdinal(key core.ColumnKey, labels []string, mapping map[string]float64) ([]float64, []error) {
	out := make([]float64, len(labels))
	seen := make(map[string]bool)
	var unmapped []error
	for i, l := range labels {
		v, ok := mapping[l]
		if !ok {
			v, ok = mapping[strings.TrimSpace(l)]
		}
		if ok {
			out[i] = v
			continue
		}
		out[i] = math.NaN()
		if !seen[l] {
			seen[l] = true
			unmapped = append(unmapped, core.NewUnmappedCategoryError(key.String(), l))
		}
	}
	return out, unmapped
}

// Finite returns the finite entries of values
func Finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
