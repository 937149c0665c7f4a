// Command picmap maps feature runs onto the grid of a reference run and
// writes the matched, out-of-range and missing pairs of every feature.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/grid"
	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/mapper"
	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/output"
	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/spectra"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/featurepic/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("picmap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file")
	removeDuplicates := fs.Bool("remove-duplicates-in-scan", false, "keep one matched peak per scan, the one closest to the weighted mean mass")
	removeOutliers := fs.Bool("remove-outliers", false, "drop matched peaks more than 3 standard deviations from the weighted mean mass")
	workers := fs.Int("workers", 0, "features mapped concurrently (default from config)")
	outputDir := fs.String("output-dir", "", "directory for output files (default: next to the reference)")
	dumpReference := fs.Bool("dump-reference", false, "also write <reference>a listing every reference scan")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: picmap [flags] reference.json feature.json ...\n")
		fmt.Fprintf(stderr, "output: <reference>.featurePIC.yml, _oor.yml, _missing.yml and .featurePIC.txt\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return apperrors.ExitInvalidInput
	}
	if fs.NArg() < 2 {
		fs.Usage()
		return apperrors.ExitInvalidInput
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return apperrors.ExitCode(err)
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "remove-duplicates-in-scan":
			cfg.Mapper.RemoveDuplicatesInScan = *removeDuplicates
		case "remove-outliers":
			cfg.Mapper.RemoveOutliers = *removeOutliers
		case "workers":
			cfg.Mapper.Workers = *workers
		case "output-dir":
			cfg.Mapper.OutputDir = *outputDir
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return apperrors.ExitCode(err)
	}
	logger.SetupWriter(stderr, cfg.Logging.Level, cfg.Logging.Format)

	if err := mapFiles(ctx, cfg, fs.Arg(0), fs.Args()[1:], *dumpReference); err != nil {
		slog.Error("picmap failed", "error", err)
		return apperrors.ExitCode(err)
	}
	return 0
}

func mapFiles(ctx context.Context, cfg *config.Config, referencePath string, featurePaths []string, dumpReference bool) error {
	traceID := tracing.NewTraceID()
	ctx = logger.WithRunID(ctx, traceID)
	ctx, root := tracing.StartSpan(ctx, "picmap", traceID)
	defer func() {
		root.End()
		if cfg.Tracing.Enabled {
			root.Log(logger.FromContext(ctx))
		}
	}()
	log := logger.FromContext(ctx)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	_, span := tracing.StartChildSpan(ctx, "load-reference")
	reference, err := spectra.Load(referencePath)
	if err != nil {
		return err
	}
	g := grid.FromRun(reference)
	span.SetAttr("scans", g.Scans())
	span.End()
	log.Info("reference loaded",
		"path", referencePath,
		"scans", g.Scans(),
		"peaks", reference.PeakCount(),
		"fingerprint", g.Fingerprint(),
	)

	if dumpReference {
		dumpPath := referencePath + "a"
		if err := output.WriteReferenceDump(dumpPath, reference); err != nil {
			return err
		}
		log.Info("reference dump written", "path", dumpPath)
	}

	_, span = tracing.StartChildSpan(ctx, "load-features")
	features, err := loadFeatures(ctx, featurePaths, cfg.Mapper.Workers)
	span.End()
	if err != nil {
		return err
	}

	engine := mapper.NewEngine(g, mapper.OptionsFrom(cfg.Mapper), m)
	kept, err := engine.MapAll(ctx, features)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(kept))
	for _, f := range kept {
		if seen[f.ID] {
			log.Warn("duplicate feature id, last one wins in output", "feature_id", f.ID)
		}
		seen[f.ID] = true
		s := f.Summary()
		attrs := []any{
			"feature_id", s.FeatureID,
			"matched", s.Matched,
			"missing", s.Missing,
			"out_of_range", s.OutOfRange,
			"distinct_scans", s.DistinctScans,
		}
		if s.WeightedMeanMass != nil {
			attrs = append(attrs, "weighted_mean_mass", *s.WeightedMeanMass)
		}
		if s.StddevMass != nil {
			attrs = append(attrs, "stddev_mass", *s.StddevMass)
		}
		log.Info("feature summary", attrs...)
	}

	base := spectra.TrimExt(referencePath)
	if cfg.Mapper.OutputDir != "" {
		if err := os.MkdirAll(cfg.Mapper.OutputDir, 0o755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
		base = filepath.Join(cfg.Mapper.OutputDir, filepath.Base(base))
	}
	_, span = tracing.StartChildSpan(ctx, "write-output")
	paths, err := output.WriteAll(base, kept)
	span.End()
	if err != nil {
		return err
	}
	log.Info("pic lists written",
		"features", len(features),
		"kept", len(kept),
		"matched", paths.Matched,
		"out_of_range", paths.OutOfRange,
		"missing", paths.Missing,
		"text", paths.Text,
	)
	return nil
}

// loadFeatures decodes feature files concurrently, keeping argument order.
func loadFeatures(ctx context.Context, paths []string, workers int) ([]spectra.Run, error) {
	runs := make([]spectra.Run, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			run, err := spectra.Load(path)
			if err != nil {
				return err
			}
			runs[i] = run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}
