// Command refbuild turns decoded runs into reference runs, optionally
// keeping only the peaks inside retention-time and m/z windows.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/spectra"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/featurepic/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/logger"
)

// filterList collects repeated -filter flags.
type filterList []spectra.Filter

func (l *filterList) String() string {
	return fmt.Sprintf("%d filters", len(*l))
}

func (l *filterList) Set(v string) error {
	f, err := spectra.ParseFilter(v)
	if err != nil {
		return err
	}
	*l = append(*l, f)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("refbuild", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file")
	var filters filterList
	fs.Var(&filters, "filter", "keep peaks in <rt>:<rt>,<mz>:<mz>[,<mz>:<mz>...] (repeatable; the first filter whose time window accepts a scan decides it)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: refbuild [-filter rt:rt,mz:mz]... run.json ...\n")
		fmt.Fprintf(stderr, "output: <run>.reference.json, or <run>.filtered.reference.json with filters\n\n")
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
	logger.SetupWriter(stderr, cfg.Logging.Level, cfg.Logging.Format)

	for _, path := range fs.Args() {
		if err := ctx.Err(); err != nil {
			slog.Error("refbuild interrupted", "error", err)
			return apperrors.ExitFailure
		}
		out, err := build(path, filters)
		if err != nil {
			slog.Error("refbuild failed", "path", path, "error", err)
			return apperrors.ExitCode(err)
		}
		slog.Info("reference written", "input", path, "output", out)
	}
	return 0
}

func build(path string, filters []spectra.Filter) (string, error) {
	run, err := spectra.Load(path)
	if err != nil {
		return "", err
	}
	before := run.PeakCount()
	ref := spectra.ApplyFilters(run, filters)

	suffix := ".reference.json"
	if len(filters) > 0 {
		suffix = ".filtered.reference.json"
	}
	out := spectra.TrimExt(path) + suffix
	if strings.HasSuffix(path, ".gz") {
		out += ".gz"
	}
	if err := spectra.Write(out, ref); err != nil {
		return "", err
	}
	slog.Debug("reference built",
		"id", ref.ID,
		"scans_in", len(run.Scans),
		"scans_out", len(ref.Scans),
		"peaks_in", before,
		"peaks_out", ref.PeakCount(),
	)
	return out, nil
}
