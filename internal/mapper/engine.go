// Package mapper drives feature runs through the reference grid: every
// observation is classified into a pic.FeatureIndex, features without a
// match are discarded, and the configured refinements run in a fixed order.
package mapper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/grid"
	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/pic"
	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/spectra"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/tracing"
)

const (
	opRemoveDuplicates = "remove_duplicates_in_scan"
	opRemoveOutliers   = "remove_outliers"
)

// Options selects the refinements. With both on, duplicates are resolved
// first, so outlier bounds are computed over one point per scan.
type Options struct {
	RemoveDuplicatesInScan bool `json:"remove_duplicates_in_scan"`
	RemoveOutliers         bool `json:"remove_outliers"`
	Workers                int  `json:"-"`
}

func OptionsFrom(cfg config.MapperConfig) Options {
	return Options{
		RemoveDuplicatesInScan: cfg.RemoveDuplicatesInScan,
		RemoveOutliers:         cfg.RemoveOutliers,
		Workers:                cfg.Workers,
	}
}

type Engine struct {
	grid    *grid.Grid
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewEngine creates an Engine over a built grid. m may be nil.
func NewEngine(g *grid.Grid, opts Options, m *metrics.Metrics) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	e := &Engine{
		grid:    g,
		opts:    opts,
		metrics: m,
		logger:  slog.Default().With("component", "mapper"),
	}
	if g.Empty() {
		e.logger.Warn("reference grid is empty, every observation will be out of range")
	}
	return e
}

func (e *Engine) Grid() *grid.Grid {
	return e.grid
}

func (e *Engine) Options() Options {
	return e.opts
}

// MapFeature maps one run with the engine's options.
func (e *Engine) MapFeature(ctx context.Context, run spectra.Run) (*pic.FeatureIndex, error) {
	return e.MapFeatureWith(ctx, run, e.opts)
}

// MapFeatureWith classifies every observation of run and, unless the feature
// is discarded, applies the refinements selected by opts. The returned index
// is finalized.
func (e *Engine) MapFeatureWith(ctx context.Context, run spectra.Run, opts Options) (*pic.FeatureIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := run.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	f := pic.New(run.ID, e.grid)
	var counts [3]int
	for _, scan := range run.Scans {
		if !scan.HasPeaks() {
			continue
		}
		for i, mz := range scan.Mz {
			class, err := f.Push(pic.Observation{
				RetentionTime: scan.RetentionTime,
				Mass:          mz,
				Intensity:     scan.Intensity[i],
			})
			if err != nil {
				return nil, fmt.Errorf("pushing observation of %s: %w", run.ID, err)
			}
			counts[class]++
		}
	}
	f.Finalize()
	e.recordClassified(counts)

	if f.Discarded() {
		e.logger.Debug("feature discarded, no matched points",
			"feature_id", run.ID,
			"missing", counts[pic.Missing],
			"out_of_range", counts[pic.OutOfRange],
		)
		if e.metrics != nil {
			e.metrics.FeaturesDiscardedTotal.Inc()
		}
		return f, nil
	}

	if opts.RemoveDuplicatesInScan {
		e.refine(f, opRemoveDuplicates, f.RemoveDuplicatesInScan)
	}
	if opts.RemoveOutliers {
		e.refine(f, opRemoveOutliers, f.RemoveOutliers)
	}

	if e.metrics != nil {
		e.metrics.FeaturesMappedTotal.Inc()
		e.metrics.FeatureMapDuration.Observe(time.Since(start).Seconds())
	}
	e.logger.Debug("feature mapped",
		"feature_id", run.ID,
		"matched", f.Len(pic.Matched),
		"missing", f.Len(pic.Missing),
		"out_of_range", f.Len(pic.OutOfRange),
		"duration", time.Since(start),
	)
	return f, nil
}

// MapAll maps runs concurrently against the shared grid and returns the
// features that kept at least one matched point, in input order.
func (e *Engine) MapAll(ctx context.Context, runs []spectra.Run) ([]*pic.FeatureIndex, error) {
	ctx, span := tracing.StartChildSpan(ctx, "map-features")
	defer span.End()

	results := make([]*pic.FeatureIndex, len(runs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, run := range runs {
		i, run := i, run
		g.Go(func() error {
			f, err := e.MapFeature(gctx, run)
			if err != nil {
				return fmt.Errorf("mapping feature %s: %w", run.ID, err)
			}
			results[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := make([]*pic.FeatureIndex, 0, len(results))
	for _, f := range results {
		if !f.Discarded() {
			kept = append(kept, f)
		}
	}
	span.SetAttr("features", len(runs))
	span.SetAttr("kept", len(kept))
	e.logger.Info("features mapped",
		"features", len(runs),
		"kept", len(kept),
		"discarded", len(runs)-len(kept),
	)
	return kept, nil
}

func (e *Engine) refine(f *pic.FeatureIndex, op string, fn func() (int, error)) {
	removed, err := fn()
	result := "applied"
	switch {
	case err == nil:
		if e.metrics != nil {
			e.metrics.PointsRemovedTotal.WithLabelValues(op).Add(float64(removed))
		}
	case pic.IsDegenerate(err):
		result = "skipped"
		e.logger.Debug("refinement skipped", "feature_id", f.ID, "op", op, "reason", err)
	default:
		result = "error"
		e.logger.Error("refinement failed", "feature_id", f.ID, "op", op, "error", err)
	}
	if e.metrics != nil {
		e.metrics.RefinementsTotal.WithLabelValues(op, result).Inc()
	}
}

func (e *Engine) recordClassified(counts [3]int) {
	if e.metrics == nil {
		return
	}
	for _, class := range pic.Classes {
		if counts[class] > 0 {
			e.metrics.PointsClassifiedTotal.WithLabelValues(class.String()).Add(float64(counts[class]))
		}
	}
}
