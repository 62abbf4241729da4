// Command downloader queues post text for a date's games and fetches the play
// videos for every persisted event still missing its media.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/plunkbot/plunkbot/internal/config"
	"github.com/plunkbot/plunkbot/internal/database"
	"github.com/plunkbot/plunkbot/internal/enrich"
	"github.com/plunkbot/plunkbot/internal/logging"
	"github.com/plunkbot/plunkbot/internal/metrics"
	"github.com/plunkbot/plunkbot/internal/models"
	"github.com/plunkbot/plunkbot/internal/plot"
	"github.com/plunkbot/plunkbot/internal/savant"
	"github.com/plunkbot/plunkbot/internal/skeet"
	"github.com/plunkbot/plunkbot/internal/statsapi"
)

func main() {
	date := flag.String("date", "", "date whose games get queue artifacts, YYYY-MM-DD (default: yesterday)")
	flag.Parse()

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

	scanDate := *date
	if scanDate == "" {
		scanDate = time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", scanDate); err != nil {
		logger.Error("date must be YYYY-MM-DD", "date", scanDate)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting downloader", "date", scanDate)

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
	client := statsapi.NewClient(cfg.StatsAPI, logger)
	fetcher := savant.NewFetcher(cfg.Savant, cfg.Paths.VideoDir, logger)
	renderer := plot.NewRenderer(cfg.Paths.PlotDir, logger)
	orchestrator := enrich.NewOrchestrator(repo, fetcher, renderer, logger)

	err = run(ctx, cfg, client, repo, orchestrator, collector, scanDate, logger)

	if perr := collector.Push(cfg.Metrics); perr != nil {
		logger.Warn("metrics push failed", "error", perr)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("downloader cancelled")
		} else {
			logger.Error("downloader failed", "error", err)
		}
		os.Exit(1)
	}
	logger.Info("downloader finished")
}

func run(ctx context.Context, cfg config.Config, client *statsapi.Client, repo *database.EventRepository, orchestrator *enrich.Orchestrator, collector *metrics.RunCollector, date string, logger *slog.Logger) error {
	if err := queueArtifacts(ctx, cfg, client, repo, date, logger); err != nil {
		return err
	}
	return fetchPending(ctx, repo, orchestrator, collector, logger)
}

// queueArtifacts writes the publication queue entry for every play of the
// date's games, and the clean marker for games with none. Rewrites are
// harmless; the text is a pure function of the play.
func queueArtifacts(ctx context.Context, cfg config.Config, client *statsapi.Client, repo *database.EventRepository, date string, logger *slog.Logger) error {
	games, err := client.GamesForDate(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to list games for %s: %w", date, err)
	}

	for i := range games {
		game := &games[i]

		plays, err := client.HitByPitchEvents(ctx, *game)
		if err != nil {
			logger.Error("failed to read live feed, skipping game",
				"game_pk", game.GamePk, "error", err)
			continue
		}

		if len(plays) == 0 {
			if _, err := skeet.WriteCleanArtifact(cfg.Paths.SkeetDir, game); err != nil {
				return err
			}
			logger.Info("queued clean-game artifact", "game_pk", game.GamePk)
			continue
		}

		for j := range plays {
			play := &plays[j]

			ev, found, err := repo.Get(ctx, play.PlayID)
			if err != nil {
				return err
			}
			if !found {
				// The populator has not persisted this play yet; its
				// artifact gets written on a later run.
				logger.Warn("play not persisted yet, skipping artifact",
					"play_id", play.PlayID, "game_pk", game.GamePk)
				continue
			}
			if ev.Skeeted {
				continue
			}

			if _, err := skeet.WriteEventArtifact(cfg.Paths.SkeetDir, game, play); err != nil {
				return err
			}
			logger.Info("queued post artifact", "play_id", play.PlayID, "game_pk", game.GamePk)
		}
	}
	return nil
}

// fetchPending walks every event still missing its video. Unavailable videos
// are skipped for the next run; consistency violations abort.
func fetchPending(ctx context.Context, repo *database.EventRepository, orchestrator *enrich.Orchestrator, collector *metrics.RunCollector, logger *slog.Logger) error {
	pending, err := repo.GetPending(ctx, models.FlagDownloaded)
	if err != nil {
		return err
	}
	logger.Info("events awaiting media", "count", len(pending))

	for _, ev := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := orchestrator.EnrichMedia(ctx, ev)
		switch {
		case err == nil:
			if ev.HasMedia() {
				collector.Inc(metrics.VideosDownloaded)
			}
		case enrich.IsSkippable(err):
			logger.Info("video not available yet", "play_id", ev.PlayID, "game_pk", ev.GamePk)
		case enrich.IsFatal(err):
			return err
		default:
			logger.Error("media fetch failed, skipping event", "play_id", ev.PlayID, "error", err)
		}
	}
	return nil
}
