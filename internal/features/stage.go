package features

import (
	"fmt"
	"math"

	"dopastat/domain/core"
	"dopastat/domain/dataset"
	"dopastat/internal"
	"dopastat/internal/analysis"
)

// Derivation reports what the derive stage added to a table
type Derivation struct {
	Created  []core.ColumnKey       `json:"created"`
	Unmapped map[core.ColumnKey]int `json:"unmapped"`
	Warnings []string               `json:"warnings,omitempty"`
}

// Deriver adds every derived column of a schema to a table
type Deriver struct {
	schema dataset.Schema
	logger *internal.Logger
}

// NewDeriver creates a deriver for the given schema
func NewDeriver(schema dataset.Schema, logger *internal.Logger) *Deriver {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Deriver{schema: schema, logger: logger.With("features")}
}

// Derive validates the table and appends z-scored traits, the composite
// index, binary indicators, the substance count and numeric demographics.
// Only a schema error is returned; unmapped categories are reported.
func (d *Deriver) Derive(table *dataset.Table) (*Derivation, error) {
	if err := d.schema.Validate(table); err != nil {
		return nil, err
	}
	out := &Derivation{Unmapped: make(map[core.ColumnKey]int)}

	zCols := make([][]float64, 0, len(d.schema.Traits))
	for _, trait := range d.schema.Traits {
		raw, err := table.Numeric(trait)
		if err != nil {
			return nil, core.NewSchemaError([]string{fmt.Sprintf("%s (numeric)", trait)})
		}
		z, err := StandardizeColumn(trait, raw)
		if err != nil {
			// constant trait: keep the column shape, carry no signal
			d.warn(out, "%v; using zeros", err)
			z = make([]float64, len(raw))
		}
		if err := d.add(table, out, dataset.StandardizedKey(trait), z); err != nil {
			return nil, err
		}
		zCols = append(zCols, z)
	}

	index, err := CompositeIndex(zCols)
	if err != nil {
		return nil, err
	}
	if err := d.add(table, out, dataset.CompositeIndex, index); err != nil {
		return nil, err
	}

	bins := make([][]float64, 0, len(d.schema.Substances))
	for _, sub := range d.schema.Substances {
		labels, err := table.Categorical(sub)
		if err != nil {
			return nil, err
		}
		bin := BinaryRecode(labels, d.schema.NonUserLabels)
		if err := d.add(table, out, dataset.BinaryKey(sub), bin); err != nil {
			return nil, err
		}
		bins = append(bins, bin)
	}
	if err := d.add(table, out, dataset.SubstanceCount, analysis.RowSum(bins)); err != nil {
		return nil, err
	}

	if err := d.mapOrdinal(table, out, d.schema.AgeColumn, dataset.AgeNumeric, d.schema.AgeBands); err != nil {
		return nil, err
	}
	if err := d.mapOrdinal(table, out, d.schema.GenderColumn, dataset.GenderNumeric, d.schema.GenderCodes); err != nil {
		return nil, err
	}

	d.logger.Info("derived %d columns over %d rows", len(out.Created), table.RowCount())
	return out, nil
}

func (d *Deriver) mapOrdinal(table *dataset.Table, out *Derivation, src, dst core.ColumnKey, mapping map[string]float64) error {
	labels, err := table.Categorical(src)
	if err != nil {
		return err
	}
	values, unmapped := MapOrdinal(src, labels, mapping)
	for _, e := range unmapped {
		d.warn(out, "%v; value becomes missing", e)
	}
	missing := 0
	for _, v := range values {
		if math.IsNaN(v) {
			missing++
		}
	}
	if missing > 0 {
		out.Unmapped[dst] = missing
	}
	return d.add(table, out, dst, values)
}

func (d *Deriver) add(table *dataset.Table, out *Derivation, key core.ColumnKey, values []float64) error {
	if err := table.AddNumeric(key, values, true); err != nil {
		return err
	}
	out.Created = append(out.Created, key)
	return nil
}

func (d *Deriver) warn(out *Derivation, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	out.Warnings = append(out.Warnings, msg)
	d.logger.Warn("%s", msg)
}
