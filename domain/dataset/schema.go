package dataset

import (
	"strings"

	"dopastat/domain/core"
)

// Derived column names
const (
	CompositeIndex = core.ColumnKey("Dopamine_Index")
	SubstanceCount = core.ColumnKey("n_substances")
	AgeNumeric     = core.ColumnKey("Age_num")
	GenderNumeric  = core.ColumnKey("Gender_num")

	binarySuffix       = "_bin"
	standardizedSuffix = "_z"
)

// BinaryKey names the user/non-user indicator of a substance column
func BinaryKey(substance core.ColumnKey) core.ColumnKey {
	return substance + binarySuffix
}

// StandardizedKey names the z-scored copy of a trait column
func StandardizedKey(trait core.ColumnKey) core.ColumnKey {
	return trait + standardizedSuffix
}

// SubstanceName strips the indicator suffix for display
func SubstanceName(key core.ColumnKey) string {
	return strings.TrimSuffix(key.String(), binarySuffix)
}

// Schema describes the survey columns the pipeline consumes and derives
type Schema struct {
	Traits         []core.ColumnKey
	OptionalTraits []core.ColumnKey
	Substances     []core.ColumnKey
	AgeColumn      core.ColumnKey
	GenderColumn   core.ColumnKey

	AgeBands      map[string]float64
	GenderCodes   map[string]float64
	NonUserLabels []string

	ModelTarget          core.ColumnKey
	ModelFeatures        []core.ColumnKey
	ComparatorTargets    []core.ColumnKey
	ComparatorPredictors []core.ColumnKey
}

// DrugConsumptionSchema returns the layout of the UCI drug consumption survey
func DrugConsumptionSchema() Schema {
	substances := core.Keys(
		"Alcohol", "Amphet", "Amyl", "Benzos", "Caff", "Cannabis", "Choc", "Coke", "Crack",
		"Ecstasy", "Heroin", "Ketamine", "Legalh", "LSD", "Meth", "Mushrooms", "Nicotine", "Semer", "VSA",
	)

	return Schema{
		Traits:         core.Keys("Impulsive", "SS", "Nscore", "Escore", "Oscore"),
		OptionalTraits: core.Keys("AScore", "Cscore"),
		Substances:     substances,
		AgeColumn:      "Age",
		GenderColumn:   "Gender",
		AgeBands: map[string]float64{
			"18-24": 21,
			"25-34": 29,
			"35-44": 39,
			"45-54": 49,
			"55-64": 59,
			"65+":   70,
			"18":    18,
		},
		GenderCodes: map[string]float64{
			"Male":   0,
			"Female": 1,
		},
		NonUserLabels: []string{"never used", "used over a decade ago", "cl0", "cl1"},
		ModelTarget:   BinaryKey("Cannabis"),
		ModelFeatures: []core.ColumnKey{
			CompositeIndex, "Impulsive", "SS", "Nscore", "Escore", "Oscore",
			AgeNumeric, GenderNumeric, "AScore", "Cscore",
		},
		ComparatorTargets: []core.ColumnKey{
			BinaryKey("Cannabis"), BinaryKey("Coke"), BinaryKey("LSD"),
			BinaryKey("Alcohol"), BinaryKey("Nicotine"),
		},
		ComparatorPredictors: []core.ColumnKey{CompositeIndex, AgeNumeric, GenderNumeric},
	}
}

// Required lists the source columns whose absence is fatal
func (s Schema) Required() []core.ColumnKey {
	req := make([]core.ColumnKey, 0, len(s.Traits)+len(s.Substances)+2)
	req = append(req, s.Traits...)
	req = append(req, s.Substances...)
	req = append(req, s.AgeColumn, s.GenderColumn)
	return req
}

// Validate checks the table against the required columns
func (s Schema) Validate(t *Table) error {
	return t.Require(s.Required()...)
}

// BinaryKeys returns the indicator column names in substance order
func (s Schema) BinaryKeys() []core.ColumnKey {
	keys := make([]core.ColumnKey, len(s.Substances))
	for i, sub := range s.Substances {
		keys[i] = BinaryKey(sub)
	}
	return keys
}

// StandardizedKeys returns the z-scored trait column names
func (s Schema) StandardizedKeys() []core.ColumnKey {
	keys := make([]core.ColumnKey, len(s.Traits))
	for i, tr := range s.Traits {
		keys[i] = StandardizedKey(tr)
	}
	return keys
}
