// Command chdsim generates a synthetic population and simulates coronary
// heart disease incidence and mortality over a multi-decade horizon.
//
// Storage and export backends are selected through environment variables
// (CHDSIM_STORAGE_DRIVER, CHDSIM_BLOB_DRIVER and friends); run shape comes
// from flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"chdsim/internal/blob"
	"chdsim/internal/engine"
	"chdsim/internal/export"
	"chdsim/internal/popgen"
	"chdsim/internal/storage"
	"chdsim/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "chdsim:", err)
		exitFunc(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("chdsim", flag.ContinueOnError)
	var (
		popSize   = fs.Int("n", engine.DefaultPopulationSize, "population size")
		horizon   = fs.Int("horizon", engine.DefaultHorizonYears, "number of simulated years")
		startYear = fs.Int("start-year", engine.DefaultStartYear, "first simulated calendar year")
		seed      = fs.Uint64("seed", engine.DefaultSeed, "master RNG seed")
		workers   = fs.Int("workers", 0, "goroutines per simulated year (0 = sequential)")
		exportPfx = fs.String("export", "", "blob key prefix to export results under (empty disables)")
		verbose   = fs.Bool("v", false, "debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := engine.Config{
		PopulationSize: *popSize,
		HorizonYears:   *horizon,
		StartYear:      *startYear,
		Seed:           *seed,
		Workers:        *workers,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("generating population", "size", cfg.PopulationSize, "seed", cfg.Seed)
	pop := popgen.New(cfg.Seed).Generate(cfg.PopulationSize)

	store, err := storage.OpenResultsStore(cfg.PopulationSize * cfg.HorizonYears)
	if err != nil {
		return fmt.Errorf("open results store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warn("close results store", "error", cerr)
		}
	}()

	if snapshots, ok := store.(domain.PopulationSnapshotStore); ok {
		if err := snapshots.SavePopulation(ctx, pop); err != nil {
			return fmt.Errorf("save population snapshot: %w", err)
		}
	}

	metrics, err := engine.NewPrometheusMetricsRecorder(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	driver, err := engine.NewDriver(cfg, store,
		engine.WithLogger(logger),
		engine.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	report, err := driver.Run(ctx, pop)
	if err != nil {
		return fmt.Errorf("run simulation: %w", err)
	}

	summaries, err := store.SummarizeByYear(ctx)
	if err != nil {
		return fmt.Errorf("summarize results: %w", err)
	}
	fmt.Fprintln(out, "year\tcount\tmean_chd\tmean_mortality")
	for _, sum := range summaries {
		fmt.Fprintf(out, "%d\t%d\t%.4f\t%.4f\n", sum.Year, sum.Count, sum.MeanCHD, sum.MeanMortality)
	}
	logger.Info("run finished", "years", report.Years, "rows", report.Rows, "clamped_draws", report.ClampedDraws)

	if *exportPfx != "" {
		blobs, err := blob.Open(ctx)
		if err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}
		infos, err := export.New(blobs).ExportRun(ctx, *exportPfx, store)
		if err != nil {
			return fmt.Errorf("export results: %w", err)
		}
		for _, info := range infos {
			logger.Info("exported artifact", "key", info.Key, "bytes", info.Size)
		}
	}
	return nil
}
