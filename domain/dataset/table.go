package dataset

import (
	"fmt"
	"math"
	"strconv"

	"dopastat/domain/core"
)

// ColumnKind distinguishes numeric from categorical storage
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
)

// Column is one named, typed column of a Table.
// Numeric columns use NaN for missing values, categorical columns use "".
type Column struct {
	Key     core.ColumnKey
	Kind    ColumnKind
	Values  []float64
	Labels  []string
	Derived bool
}

// Table is an ordered, add-only collection of equal-length columns
type Table struct {
	columns []Column
	index   map[core.ColumnKey]int
	rows    int
}

// NewTable creates an empty table with a fixed row count
func NewTable(rows int) *Table {
	return &Table{
		index: make(map[core.ColumnKey]int),
		rows:  rows,
	}
}

// RowCount returns the number of observations
func (t *Table) RowCount() int {
	return t.rows
}

// ColumnCount returns the number of columns
func (t *Table) ColumnCount() int {
	return len(t.columns)
}

// Keys returns column keys in insertion order
func (t *Table) Keys() []core.ColumnKey {
	keys := make([]core.ColumnKey, len(t.columns))
	for i, c := range t.columns {
		keys[i] = c.Key
	}
	return keys
}

// Has reports whether the table carries the column
func (t *Table) Has(key core.ColumnKey) bool {
	_, ok := t.index[key]
	return ok
}

// Kind returns the storage kind of a column
func (t *Table) Kind(key core.ColumnKey) (ColumnKind, bool) {
	i, ok := t.index[key]
	if !ok {
		return "", false
	}
	return t.columns[i].Kind, true
}

// AddNumeric appends a numeric column. Values are copied.
func (t *Table) AddNumeric(key core.ColumnKey, values []float64, derived bool) error {
	if err := t.checkAdd(key, len(values)); err != nil {
		return err
	}
	t.append(Column{
		Key:     key,
		Kind:    KindNumeric,
		Values:  append([]float64(nil), values...),
		Derived: derived,
	})
	return nil
}

// AddCategorical appends a categorical column. Labels are copied.
func (t *Table) AddCategorical(key core.ColumnKey, labels []string, derived bool) error {
	if err := t.checkAdd(key, len(labels)); err != nil {
		return err
	}
	t.append(Column{
		Key:     key,
		Kind:    KindCategorical,
		Labels:  append([]string(nil), labels...),
		Derived: derived,
	})
	return nil
}

func (t *Table) checkAdd(key core.ColumnKey, n int) error {
	if t.Has(key) {
		return fmt.Errorf("column %s already exists", key)
	}
	if n != t.rows {
		return core.NewLengthMismatchError(key.String(), n, t.rows)
	}
	return nil
}

func (t *Table) append(c Column) {
	t.index[c.Key] = len(t.columns)
	t.columns = append(t.columns, c)
}

// Numeric returns a copy of a numeric column
func (t *Table) Numeric(key core.ColumnKey) ([]float64, error) {
	i, ok := t.index[key]
	if !ok {
		return nil, core.NewColumnNotFoundError(key.String())
	}
	c := t.columns[i]
	if c.Kind != KindNumeric {
		return nil, fmt.Errorf("%w: %s is %s", core.ErrColumnKind, key, c.Kind)
	}
	return append([]float64(nil), c.Values...), nil
}

// Categorical returns a copy of a column as labels. Numeric columns are
// formatted, with missing values as "".
func (t *Table) Categorical(key core.ColumnKey) ([]string, error) {
	i, ok := t.index[key]
	if !ok {
		return nil, core.NewColumnNotFoundError(key.String())
	}
	c := t.columns[i]
	if c.Kind == KindCategorical {
		return append([]string(nil), c.Labels...), nil
	}
	labels := make([]string, len(c.Values))
	for r, v := range c.Values {
		if math.IsNaN(v) {
			continue
		}
		labels[r] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return labels, nil
}

// NumericColumns fetches several numeric columns at once
func (t *Table) NumericColumns(keys []core.ColumnKey) ([][]float64, error) {
	out := make([][]float64, len(keys))
	for i, k := range keys {
		values, err := t.Numeric(k)
		if err != nil {
			return nil, err
		}
		out[i] = values
	}
	return out, nil
}

// Missing returns the keys from the list the table does not carry
func (t *Table) Missing(keys ...core.ColumnKey) []string {
	var missing []string
	for _, k := range keys {
		if !t.Has(k) {
			missing = append(missing, k.String())
		}
	}
	return missing
}

// Require fails with a schema error naming every absent column
func (t *Table) Require(keys ...core.ColumnKey) error {
	if missing := t.Missing(keys...); len(missing) > 0 {
		return core.NewSchemaError(missing)
	}
	return nil
}

// Present filters keys down to those the table carries, preserving order
func (t *Table) Present(keys ...core.ColumnKey) []core.ColumnKey {
	out := make([]core.ColumnKey, 0, len(keys))
	for _, k := range keys {
		if t.Has(k) {
			out = append(out, k)
		}
	}
	return out
}
