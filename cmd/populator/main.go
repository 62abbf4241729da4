// Command populator discovers hit-by-pitch plays for a range of dates and
// persists them with all lifecycle flags false. Safe to re-run over the same
// dates; already-known plays are no-ops.
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
	"github.com/plunkbot/plunkbot/internal/ingest"
	"github.com/plunkbot/plunkbot/internal/logging"
	"github.com/plunkbot/plunkbot/internal/metrics"
	"github.com/plunkbot/plunkbot/internal/statsapi"
)

func main() {
	startDate := flag.String("start-date", "", "first date to scan, YYYY-MM-DD (default: yesterday)")
	days := flag.Int("days", 1, "number of dates to scan")
	backward := flag.Bool("backward", false, "walk dates backward from start-date")
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

	dates, err := dateRange(*startDate, *days, *backward)
	if err != nil {
		logger.Error("invalid date arguments", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting populator", "dates", len(dates), "first", dates[0])

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
	gate := ingest.NewGate(repo, logger)

	err = run(ctx, client, gate, collector, dates, logger)

	if perr := collector.Push(cfg.Metrics); perr != nil {
		logger.Warn("metrics push failed", "error", perr)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("populator cancelled")
		} else {
			logger.Error("populator failed", "error", err)
		}
		os.Exit(1)
	}
	logger.Info("populator finished")
}

func run(ctx context.Context, client *statsapi.Client, gate *ingest.Gate, collector *metrics.RunCollector, dates []string, logger *slog.Logger) error {
	for _, date := range dates {
		games, err := client.GamesForDate(ctx, date)
		if err != nil {
			return fmt.Errorf("failed to list games for %s: %w", date, err)
		}
		logger.Info("scanning date", "date", date, "games", len(games))

		for i := range games {
			game := &games[i]

			plays, err := client.HitByPitchEvents(ctx, *game)
			if err != nil {
				// One broken feed should not sink the whole date.
				logger.Error("failed to read live feed, skipping game",
					"game_pk", game.GamePk, "error", err)
				continue
			}
			collector.Add(metrics.EventsDiscovered, float64(len(plays)))

			inserted, present, err := gate.IngestGame(ctx, game, plays)
			collector.Add(metrics.EventsInserted, float64(inserted))
			collector.Add(metrics.EventsDuplicate, float64(present))
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// dateRange expands the flag arguments into the list of dates to scan.
func dateRange(start string, days int, backward bool) ([]string, error) {
	if days < 1 {
		return nil, fmt.Errorf("days must be at least 1")
	}

	first := time.Now().AddDate(0, 0, -1)
	if start != "" {
		parsed, err := time.Parse("2006-01-02", start)
		if err != nil {
			return nil, fmt.Errorf("start-date must be YYYY-MM-DD: %w", err)
		}
		first = parsed
	}

	step := 1
	if backward {
		step = -1
	}

	dates := make([]string, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, first.AddDate(0, 0, step*i).Format("2006-01-02"))
	}
	return dates, nil
}
