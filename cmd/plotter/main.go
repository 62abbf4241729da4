// Command plotter renders the analysis plots for every persisted event not
// yet analyzed.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/plunkbot/plunkbot/internal/config"
	"github.com/plunkbot/plunkbot/internal/database"
	"github.com/plunkbot/plunkbot/internal/enrich"
	"github.com/plunkbot/plunkbot/internal/logging"
	"github.com/plunkbot/plunkbot/internal/metrics"
	"github.com/plunkbot/plunkbot/internal/models"
	"github.com/plunkbot/plunkbot/internal/plot"
	"github.com/plunkbot/plunkbot/internal/savant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting plotter")

	db, err := database.Connect(ctx, database.DefaultConfig(cfg.Database.Path))
	if err != nil {
		logger.Error("failed to open event store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	collector, err := metrics.NewRunCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	repo := database.NewEventRepository(db)
	fetcher := savant.NewFetcher(cfg.Savant, cfg.Paths.VideoDir, logger)
	renderer := plot.NewRenderer(cfg.Paths.PlotDir, logger)
	orchestrator := enrich.NewOrchestrator(repo, fetcher, renderer, logger)

	err = run(ctx, repo, orchestrator, collector, logger)

	if perr := collector.Push(cfg.Metrics); perr != nil {
		logger.Warn("metrics push failed", "error", perr)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("plotter cancelled")
		} else {
			logger.Error("plotter failed", "error", err)
		}
		os.Exit(1)
	}
	logger.Info("plotter finished")
}

func run(ctx context.Context, repo *database.EventRepository, orchestrator *enrich.Orchestrator, collector *metrics.RunCollector, logger *slog.Logger) error {
	pending, err := repo.GetPending(ctx, models.FlagAnalyzed)
	if err != nil {
		return err
	}
	logger.Info("events awaiting analysis", "count", len(pending))

	for _, ev := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := orchestrator.EnrichAnalysis(ctx, ev)
		switch {
		case err == nil:
			collector.Inc(metrics.PlotsRendered)
		case enrich.IsFatal(err):
			return err
		default:
			logger.Error("analysis failed, skipping event", "play_id", ev.PlayID, "error", err)
		}
	}
	return nil
}
