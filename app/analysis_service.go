package app

import (
	"context"
	"fmt"
	"time"

	"dopastat/domain/core"
	"dopastat/domain/dataset"
	"dopastat/domain/stats"
	"dopastat/internal"
	"dopastat/internal/analysis"
	"dopastat/internal/comparator"
	"dopastat/internal/config"
	"dopastat/internal/errors"
	"dopastat/internal/estimator"
	"dopastat/internal/features"
	"dopastat/ports"
)

// Figure names written by the renderer
const (
	FigureHeatmap        = "heatmap_dopamine_addiction.png"
	FigureCannabisBox    = "boxplot_dopamine_cannabis.png"
	FigureSubstanceTrend = "scatter_dopamine_vs_substances.png"
	FigureGenderBox      = "boxplot_dopamine_gender.png"
	FigureAgeTrend       = "scatter_dopamine_age.png"
	FigureBaselineModel  = "model_baseline_cannabis.png"
	FigureMultiSubstance = "dopamine_multi_substance.png"
)

// Request controls one pipeline run
type Request struct {
	Render bool
}

// Report is everything a run produced, in memory
type Report struct {
	RunID       core.RunID
	Rows        int
	Derivation  *features.Derivation
	Prevalence  stats.Prevalence
	Correlation *stats.CorrelationMatrix

	CannabisGroups []stats.GroupSummary
	GenderGroups   []stats.GroupSummary
	Trends         []*stats.Trend

	Baseline   *stats.FitResult
	Comparison *comparator.Result

	Figures  []string
	Warnings []string
	Timings  map[string]time.Duration
}

// AnalysisService runs load -> derive -> describe -> fit -> compare -> render
type AnalysisService struct {
	loader     ports.DatasetLoaderPort
	renderer   ports.RendererPort
	schema     dataset.Schema
	cfg        *config.Config
	analyzer   *analysis.DescriptiveAnalyzer
	estimator  *estimator.Estimator
	comparator *comparator.Comparator
	logger     *internal.Logger
}

// NewAnalysisService wires the pipeline. renderer may be nil when figures
// are not wanted.
func NewAnalysisService(loader ports.DatasetLoaderPort, renderer ports.RendererPort, cfg *config.Config, logger *internal.Logger) *AnalysisService {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &AnalysisService{
		loader:   loader,
		renderer: renderer,
		schema:   dataset.DrugConsumptionSchema(),
		cfg:      cfg,
		analyzer: analysis.NewDescriptiveAnalyzer(),
		estimator: estimator.New(estimator.Options{
			Policy:    estimator.PolicyDrop,
			Lambda:    cfg.Model.RidgeLambda,
			Threshold: cfg.Model.Threshold,
		}, logger),
		comparator: comparator.New(cfg.Model.RidgeLambda, cfg.Model.Threshold, cfg.Comparator.Workers, logger),
		logger:     logger.With("pipeline"),
	}
}

// Run executes the pipeline once. Only schema and load failures abort;
// everything else is recovered and reported as a warning.
func (s *AnalysisService) Run(ctx context.Context, req Request) (*Report, error) {
	report := &Report{RunID: core.NewRunID(), Timings: make(map[string]time.Duration)}
	s.logger.Info("run %s started", report.RunID)

	var table *dataset.Table
	if err := s.stage(report, "load", func() error {
		var err error
		table, err = s.loader.Load(ctx)
		return err
	}); err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	report.Rows = table.RowCount()

	if err := s.stage(report, "derive", func() error {
		d, err := features.NewDeriver(s.schema, s.logger).Derive(table)
		if err != nil {
			return err
		}
		report.Derivation = d
		report.Warnings = append(report.Warnings, d.Warnings...)
		return nil
	}); err != nil {
		return nil, stageError("deriving features", err)
	}

	if err := s.stage(report, "describe", func() error {
		return s.describe(table, report)
	}); err != nil {
		return nil, stageError("describing dataset", err)
	}

	if err := s.stage(report, "baseline", func() error {
		fit, err := s.estimator.Fit(table, s.schema.ModelTarget, s.schema.ModelFeatures)
		if err != nil {
			return err
		}
		report.Baseline = fit
		if fit.Coefficients.Warning != "" {
			report.Warnings = append(report.Warnings, fmt.Sprintf("baseline model: %s", fit.Coefficients.Warning))
		}
		return nil
	}); err != nil {
		return nil, stageError("fitting baseline model", err)
	}

	if err := s.stage(report, "compare", func() error {
		res, err := s.comparator.Compare(ctx, table, comparator.Request{
			Targets:    s.schema.ComparatorTargets,
			Predictors: s.schema.ComparatorPredictors,
			Focal:      dataset.CompositeIndex,
		})
		if err != nil {
			return err
		}
		report.Comparison = res
		return nil
	}); err != nil {
		return nil, stageError("comparing targets", err)
	}

	if req.Render && s.renderer != nil {
		_ = s.stage(report, "render", func() error {
			s.render(ctx, report)
			return nil
		})
	}

	s.logger.Info("run %s finished with %d warnings", report.RunID, len(report.Warnings))
	return report, nil
}

func (s *AnalysisService) describe(table *dataset.Table, report *Report) error {
	bins := s.schema.BinaryKeys()

	prevalence, err := s.analyzer.Prevalence(table, bins)
	if err != nil {
		return err
	}
	report.Prevalence = prevalence

	rows := append(append([]core.ColumnKey(nil), s.schema.Traits...), dataset.CompositeIndex)
	corr, err := s.analyzer.CorrelationBlock(table, rows, bins)
	if err != nil {
		return err
	}
	report.Correlation = corr

	index, err := table.Numeric(dataset.CompositeIndex)
	if err != nil {
		return err
	}

	cannabis, err := table.Numeric(dataset.BinaryKey("Cannabis"))
	if err != nil {
		return err
	}
	useLabels := make([]string, len(cannabis))
	for i, v := range cannabis {
		useLabels[i] = "Non-user"
		if v == 1 {
			useLabels[i] = "User"
		}
	}
	if report.CannabisGroups, err = s.analyzer.GroupSummaries(index, useLabels, []string{"Non-user", "User"}); err != nil {
		return err
	}

	gender, err := table.Categorical(s.schema.GenderColumn)
	if err != nil {
		return err
	}
	if report.GenderGroups, err = s.analyzer.GroupSummaries(index, gender, nil); err != nil {
		return err
	}

	for _, pair := range [][2]core.ColumnKey{
		{dataset.CompositeIndex, dataset.SubstanceCount},
		{dataset.AgeNumeric, dataset.CompositeIndex},
	} {
		trend, err := s.analyzer.Trend(table, pair[0], pair[1])
		if err != nil {
			return err
		}
		report.Trends = append(report.Trends, trend)
	}
	return nil
}

// render writes every figure; a failed figure becomes a warning
func (s *AnalysisService) render(ctx context.Context, report *Report) {
	type job struct {
		name string
		draw func() (string, error)
	}
	jobs := []job{
		{FigureHeatmap, func() (string, error) {
			return s.renderer.Heatmap(ctx, FigureHeatmap, "Correlations: Dopaminergic traits vs Substance Use (binary)", report.Correlation)
		}},
		{FigureCannabisBox, func() (string, error) {
			return s.renderer.Boxplot(ctx, FigureCannabisBox, "Dopamine Index by Cannabis Use", "Dopamine Index", report.CannabisGroups)
		}},
		{FigureSubstanceTrend, func() (string, error) {
			return s.renderer.Scatter(ctx, FigureSubstanceTrend, "Dopamine Index vs Total Number of Substances Used",
				"Dopamine Index", "Number of substances used", report.Trends[0])
		}},
		{FigureGenderBox, func() (string, error) {
			return s.renderer.Boxplot(ctx, FigureGenderBox, "Dopamine Index by Gender", "Dopamine Index", report.GenderGroups)
		}},
		{FigureAgeTrend, func() (string, error) {
			return s.renderer.Scatter(ctx, FigureAgeTrend, "Dopamine Index vs Age", "Age (mean years)", "Dopamine Index", report.Trends[1])
		}},
		{FigureBaselineModel, func() (string, error) {
			weights := report.Baseline.PredictorWeights()
			bars := make([]ports.BarValue, len(weights))
			for i, w := range weights {
				bars[i] = ports.BarValue{Label: w.Key.String(), Value: w.Value}
			}
			return s.renderer.Bar(ctx, FigureBaselineModel, "Predictors of Cannabis Use (Baseline Model)", "Standardized Weight (LPM)", bars)
		}},
		{FigureMultiSubstance, func() (string, error) {
			bars := make([]ports.BarValue, len(report.Comparison.Ranking))
			for i, r := range report.Comparison.Ranking {
				bars[i] = ports.BarValue{Label: r.Name, Value: r.Coefficient}
			}
			return s.renderer.Bar(ctx, FigureMultiSubstance, "Dopaminergic Influence Across Substances", "Standardized Coefficient (Dopamine Index)", bars)
		}},
	}

	for _, j := range jobs {
		path, err := j.draw()
		if err != nil {
			msg := fmt.Sprintf("figure %s not written: %v", j.name, err)
			s.logger.Warn("%s", msg)
			report.Warnings = append(report.Warnings, msg)
			continue
		}
		report.Figures = append(report.Figures, path)
	}
}

func (s *AnalysisService) stage(report *Report, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	report.Timings[name] = elapsed
	if err != nil {
		s.logger.Error("stage %s failed after %.2fms: %v", name, float64(elapsed.Nanoseconds())/1e6, err)
		return err
	}
	s.logger.Info("stage %s completed in %.2fms", name, float64(elapsed.Nanoseconds())/1e6)
	return nil
}

// stageError tags schema failures with CodeSchemaError
func stageError(stage string, err error) error {
	if core.IsSchemaError(err) {
		err = errors.SchemaError(err)
	}
	return fmt.Errorf("%s: %w", stage, err)
}
