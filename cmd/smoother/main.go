// Command smoother prints the chromatogram of each run, optionally smoothed
// with a sliding median, as "<time> <intensity>" lines.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/smooth"
	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/spectra"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/featurepic/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("smoother", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file")
	typ := fs.String("type", "", "type of smoother: median|none (default from config)")
	points := fs.Int("points", 0, "odd number of points in the median window (default from config)")
	outputPath := fs.String("output", "", "write series to this file instead of stdout")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: smoother [-type median|none] [-points N] [-output file] run.json ...\n")
		fmt.Fprintf(stderr, "output: one \"<time> <intensity>\" line per smoothed sample\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return apperrors.ExitInvalidInput
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return apperrors.ExitInvalidInput
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return apperrors.ExitCode(err)
	}
	if *typ != "" {
		cfg.Smoother.Type = *typ
	}
	if *points != 0 {
		cfg.Smoother.Points = *points
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return apperrors.ExitCode(err)
	}
	logger.SetupWriter(stderr, cfg.Logging.Level, cfg.Logging.Format)

	smoothType, err := smooth.ParseType(cfg.Smoother.Type)
	if err != nil {
		slog.Error("smoother failed", "error", err)
		return apperrors.ExitCode(err)
	}

	out := stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			slog.Error("creating output", "path", *outputPath, "error", err)
			return apperrors.ExitFailure
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)

	for _, path := range fs.Args() {
		if err := ctx.Err(); err != nil {
			return apperrors.ExitFailure
		}
		r, err := spectra.Load(path)
		if err != nil {
			slog.Error("loading run", "path", path, "error", err)
			return apperrors.ExitCode(err)
		}
		series, err := smooth.Apply(smoothType, smooth.Chromatogram(r), cfg.Smoother.Points)
		if err != nil {
			slog.Error("smoothing run", "path", path, "error", err)
			return apperrors.ExitCode(err)
		}
		if fs.NArg() > 1 {
			fmt.Fprintf(w, "# %s\n", r.ID)
		}
		if err := smooth.Write(w, series); err != nil {
			slog.Error("writing series", "error", err)
			return apperrors.ExitFailure
		}
		slog.Debug("run smoothed", "id", r.ID, "type", smoothType, "points", cfg.Smoother.Points, "samples", series.Len())
	}
	if err := w.Flush(); err != nil {
		slog.Error("writing output", "error", err)
		return apperrors.ExitFailure
	}
	return 0
}
