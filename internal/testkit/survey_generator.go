package testkit

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"

	"dopastat/adapters/excel"
	"dopastat/domain/dataset"
)

// SurveyGeneratorConfig configures the synthetic drug consumption survey
type SurveyGeneratorConfig struct {
	Respondents     int     `json:"respondents"`
	Seed            int64   `json:"seed"`
	TraitLoading    float64 `json:"trait_loading"`    // how strongly Impulsive/SS follow the latent propensity
	IncludeOptional bool    `json:"include_optional"` // emit AScore and Cscore
}

// DefaultSurveyConfig returns a mid-sized survey with a clear signal
func DefaultSurveyConfig() SurveyGeneratorConfig {
	return SurveyGeneratorConfig{
		Respondents:     400,
		Seed:            42,
		TraitLoading:    0.7,
		IncludeOptional: true,
	}
}

// substanceProfile sets base prevalence and sensitivity to the latent propensity
type substanceProfile struct {
	base  float64
	slope float64
}

var profiles = map[string]substanceProfile{
	"Alcohol":   {base: 2.5, slope: 0.2},
	"Caff":      {base: 3.5, slope: 0.0},
	"Choc":      {base: 3.5, slope: 0.0},
	"Nicotine":  {base: 0.3, slope: 1.0},
	"Cannabis":  {base: 0.0, slope: 1.4},
	"Coke":      {base: -1.2, slope: 1.1},
	"LSD":       {base: -1.5, slope: 1.3},
	"Ecstasy":   {base: -1.0, slope: 1.2},
	"Mushrooms": {base: -1.2, slope: 1.2},
}

var ageBands = []string{"18-24", "25-34", "35-44", "45-54", "55-64", "65+"}

// SurveyGenerator produces survey-shaped raw data
type SurveyGenerator struct {
	config SurveyGeneratorConfig
	schema dataset.Schema
	rng    *rand.Rand
}

// NewSurveyGenerator creates a generator for the drug consumption layout
func NewSurveyGenerator(config SurveyGeneratorConfig) *SurveyGenerator {
	return &SurveyGenerator{
		config: config,
		schema: dataset.DrugConsumptionSchema(),
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Headers returns the column order of generated rows
func (g *SurveyGenerator) Headers() []string {
	var headers []string
	headers = append(headers, "ID", g.schema.AgeColumn.String(), g.schema.GenderColumn.String())
	for _, tr := range g.schema.Traits {
		headers = append(headers, tr.String())
	}
	if g.config.IncludeOptional {
		for _, tr := range g.schema.OptionalTraits {
			headers = append(headers, tr.String())
		}
	}
	for _, s := range g.schema.Substances {
		headers = append(headers, s.String())
	}
	return headers
}

// Generate builds raw rows; every cell is text as a reader would see it
func (g *SurveyGenerator) Generate() *excel.ExcelData {
	data := &excel.ExcelData{Headers: g.Headers()}
	for i := 0; i < g.config.Respondents; i++ {
		data.Rows = append(data.Rows, g.respondent(i+1))
	}
	return data
}

// Table generates and types the survey in one step
func (g *SurveyGenerator) Table() (*dataset.Table, error) {
	return excel.BuildTable(g.Generate())
}

func (g *SurveyGenerator) respondent(id int) excel.RawRowData {
	row := excel.RawRowData{"ID": strconv.Itoa(id)}
	propensity := g.rng.NormFloat64()

	age := g.rng.Intn(len(ageBands))
	row[g.schema.AgeColumn.String()] = ageBands[age]
	gender := "Male"
	if g.rng.Float64() < 0.5 {
		gender = "Female"
	}
	row[g.schema.GenderColumn.String()] = gender

	for _, tr := range g.schema.Traits {
		loading := 0.0
		switch tr {
		case "Impulsive", "SS":
			loading = g.config.TraitLoading
		case "Oscore":
			loading = g.config.TraitLoading / 3
		}
		noise := math.Sqrt(math.Max(0, 1-loading*loading))
		row[tr.String()] = formatScore(loading*propensity + noise*g.rng.NormFloat64())
	}
	if g.config.IncludeOptional {
		for _, tr := range g.schema.OptionalTraits {
			row[tr.String()] = formatScore(g.rng.NormFloat64())
		}
	}

	// older respondents use less
	drift := -0.25 * float64(age)
	for _, s := range g.schema.Substances {
		p, ok := profiles[s.String()]
		if !ok {
			p = substanceProfile{base: -2.0, slope: 0.8}
		}
		prob := logistic(p.base + p.slope*propensity + drift)
		row[s.String()] = g.usageLabel(g.rng.Float64() < prob)
	}
	return row
}

// usageLabel picks a CL code: CL0/CL1 for non-users, CL2..CL6 for users
func (g *SurveyGenerator) usageLabel(user bool) string {
	if user {
		return fmt.Sprintf("CL%d", 2+g.rng.Intn(5))
	}
	return fmt.Sprintf("CL%d", g.rng.Intn(2))
}

// WriteCSV writes generated data to path with the header row first
func WriteCSV(path string, data *excel.ExcelData) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(data.Headers); err != nil {
		return err
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, h := range data.Headers {
			record[i] = row[h]
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
