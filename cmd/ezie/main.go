// Command ezie unzips EZIE-Mag kit archives, merges their hourly summary files
// into one table, and optionally exports it. All settings come from the
// environment; see internal/config.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/ezie-mag-etl/internal/adapter/archive"
	"github.com/couchcryptid/ezie-mag-etl/internal/adapter/export"
	"github.com/couchcryptid/ezie-mag-etl/internal/adapter/textfile"
	"github.com/couchcryptid/ezie-mag-etl/internal/config"
	"github.com/couchcryptid/ezie-mag-etl/internal/observability"
	"github.com/couchcryptid/ezie-mag-etl/internal/pipeline"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg).With("run_id", uuid.NewString(), "kit", cfg.KitName)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	var loader pipeline.Loader
	if cfg.ExportPath != "" {
		exporter, err := export.New(cfg.ExportPath)
		if err != nil {
			logger.Error("invalid export path", "error", err)
			os.Exit(1)
		}
		loader = exporter
		logger.Info("export enabled", "path", exporter.Path())
	}

	p := pipeline.New(
		archive.NewExpander(cfg.CollisionPolicy, clock, logger),
		textfile.NewMerger(cfg.OnParseError, logger),
		loader,
		pipeline.Options{
			Kit:        cfg.KitName,
			ArchiveDir: cfg.ArchiveDir,
			Merge:      cfg.Merge,
			HourlyDir:  cfg.HourlyDir,
		},
		logger, metrics, clock,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx)
		done <- err
	}()

	runErr := waitForRun(ctx, done, clock, cfg.ShutdownTimeout, logger)

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Error("write metrics textfile failed", "error", err, "path", cfg.MetricsTextfile)
		}
	}

	if runErr != nil {
		logger.Error("pipeline error", "error", runErr)
		os.Exit(1)
	}
	logger.Info("run complete")
}

// errShutdownTimeout reports a run that ignored cancellation for longer than
// the shutdown timeout.
var errShutdownTimeout = errors.New("pipeline did not stop before shutdown timeout")

// waitForRun returns the run's result. Once ctx is cancelled the run gets
// timeout on clock to finish.
func waitForRun(ctx context.Context, done <-chan error, clock clockwork.Clock, timeout time.Duration, logger *slog.Logger) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", timeout)
	select {
	case err := <-done:
		return err
	case <-clock.After(timeout):
		return errShutdownTimeout
	}
}
