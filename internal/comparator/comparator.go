// Package comparator ranks binary targets by the standardized weight of one
// focal predictor in a reduced linear probability model.
package comparator

import (
	"context"
	"fmt"
	"sort"

	"dopastat/domain/core"
	"dopastat/domain/dataset"
	"dopastat/domain/stats"
	"dopastat/internal"
	"dopastat/internal/estimator"

	"golang.org/x/sync/errgroup"
)

// Comparator fits the same reduced model once per target
type Comparator struct {
	estimator *estimator.Estimator
	workers   int
	logger    *internal.Logger
}

// Request names the targets, the shared predictors and the focal predictor
// whose coefficient is ranked
type Request struct {
	Targets    []core.ColumnKey
	Predictors []core.ColumnKey
	Focal      core.ColumnKey
}

// Result holds the ranking and every per-target fit
type Result struct {
	Ranking []stats.RankedTarget
	Fits    map[core.ColumnKey]*stats.FitResult
}

// New creates a comparator. Predictors that cannot be standardized are
// zero-filled so every target sees the same matrix shape.
func New(lambda, threshold float64, workers int, logger *internal.Logger) *Comparator {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	est := estimator.New(estimator.Options{
		Policy:    estimator.PolicyZeroFill,
		Lambda:    lambda,
		Threshold: threshold,
	}, logger)
	return &Comparator{estimator: est, workers: workers, logger: logger.With("comparator")}
}

// Compare fits every target independently and ranks them by the focal
// coefficient, descending. Targets absent from the table are skipped with
// a warning; an absent predictor is a schema error.
func (c *Comparator) Compare(ctx context.Context, table *dataset.Table, req Request) (*Result, error) {
	if len(req.Targets) == 0 {
		return nil, fmt.Errorf("%w: no targets", core.ErrInsufficientData)
	}
	if err := table.Require(req.Predictors...); err != nil {
		return nil, err
	}
	focalIdx := -1
	for i, p := range req.Predictors {
		if p == req.Focal {
			focalIdx = i
		}
	}
	if focalIdx < 0 {
		return nil, fmt.Errorf("focal predictor %s is not among the predictors", req.Focal)
	}

	targets := make([]core.ColumnKey, 0, len(req.Targets))
	for _, t := range req.Targets {
		if !table.Has(t) {
			c.logger.Warn("target %s not in table, skipped", t)
			continue
		}
		targets = append(targets, t)
	}

	// each goroutine writes only its own slot
	fits := make([]*stats.FitResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, target := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fit, err := c.estimator.Fit(table, target, req.Predictors)
			if err != nil {
				return fmt.Errorf("target %s: %w", target, err)
			}
			fits[i] = fit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Ranking: make([]stats.RankedTarget, 0, len(fits)),
		Fits:    make(map[core.ColumnKey]*stats.FitResult, len(fits)),
	}
	for _, fit := range fits {
		weight, _ := fit.Weight(req.Focal)
		res.Fits[fit.Target] = fit
		res.Ranking = append(res.Ranking, stats.RankedTarget{
			Target:      fit.Target,
			Name:        dataset.SubstanceName(fit.Target),
			Coefficient: weight,
			Solver:      fit.Coefficients.Solver,
		})
	}
	Rank(res.Ranking)

	c.logger.Info("compared %d targets on %s", len(res.Ranking), req.Focal)
	return res, nil
}

// Rank sorts by descending coefficient; ties keep input order
func Rank(ranking []stats.RankedTarget) {
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Coefficient > ranking[j].Coefficient
	})
}
