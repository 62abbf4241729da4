// Command skeeter drains the publication queue, posting each pending event to
// Bluesky and advancing its terminal flag.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/plunkbot/plunkbot/internal/bluesky"
	"github.com/plunkbot/plunkbot/internal/config"
	"github.com/plunkbot/plunkbot/internal/database"
	"github.com/plunkbot/plunkbot/internal/logging"
	"github.com/plunkbot/plunkbot/internal/metrics"
	"github.com/plunkbot/plunkbot/internal/plot"
	"github.com/plunkbot/plunkbot/internal/savant"
	"github.com/plunkbot/plunkbot/internal/skeet"
)

func main() {
	maxPosts := flag.Int("max-posts", 0, "stop after this many posts (0: drain the queue)")
	dryRun := flag.Bool("dry-run", false, "list what would be posted without posting")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *dryRun {
		if err := listQueue(cfg.Paths.SkeetDir, logger); err != nil {
			logger.Error("dry run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if cfg.Bluesky.Identifier == "" || cfg.Bluesky.AppPassword == "" {
		logger.Error("BLUESKY_IDENTIFIER and BLUESKY_APP_PASSWORD are required")
		os.Exit(1)
	}

	logger.Info("starting skeeter", "max_posts", *maxPosts)

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
	poster := bluesky.NewClient(cfg.Bluesky, logger)
	media := savant.NewFetcher(cfg.Savant, cfg.Paths.VideoDir, logger)
	plots := plot.NewRenderer(cfg.Paths.PlotDir, logger)
	publisher := skeet.NewPublisher(repo, poster, media, plots, cfg.Paths.SkeetDir, logger)

	posted, err := publisher.Run(ctx, *maxPosts)
	collector.Add(metrics.SkeetsPosted, float64(posted))

	if perr := collector.Push(cfg.Metrics); perr != nil {
		logger.Warn("metrics push failed", "error", perr)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("skeeter cancelled", "posted", posted)
		} else {
			logger.Error("skeeter failed", "posted", posted, "error", err)
		}
		os.Exit(1)
	}
	logger.Info("skeeter finished", "posted", posted)
}

// listQueue prints the queued work without posting or mutating anything.
func listQueue(skeetDir string, logger *slog.Logger) error {
	queue, err := skeet.OpenQueue(skeetDir)
	if err != nil {
		return err
	}
	logger.Info("publication queue", "pending", queue.Len())

	for {
		item, ok := queue.DequeueNext()
		if !ok {
			return nil
		}
		if item.Clean {
			logger.Info("would discard clean-game artifact", "game_pk", item.GamePk)
			continue
		}

		text, err := os.ReadFile(item.Path)
		if err != nil {
			return err
		}
		logger.Info("would post",
			"game_pk", item.GamePk,
			"play_id", item.PlayID,
			"text", string(text),
		)
	}
}
