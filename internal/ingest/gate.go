// Package ingest decides insert-versus-skip for discovered events and owns
// the compensating delete issued on operator cancellation.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/plunkbot/plunkbot/internal/database"
	"github.com/plunkbot/plunkbot/internal/models"
)

// Outcome is the result of offering one discovered event to the store.
type Outcome int

const (
	// OutcomeInserted means a new row was written with all flags false.
	OutcomeInserted Outcome = iota
	// OutcomeAlreadyPresent means the event was persisted by an earlier run;
	// callers inspect the existing flags to decide what work remains.
	OutcomeAlreadyPresent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeAlreadyPresent:
		return "already-present"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Gate wraps the store's insert-if-absent with dedup bookkeeping.
type Gate struct {
	repo   *database.EventRepository
	logger *slog.Logger
}

// NewGate creates a persistence gate over the event repository.
func NewGate(repo *database.EventRepository, logger *slog.Logger) *Gate {
	return &Gate{repo: repo, logger: logger}
}

// Ingest offers one discovered play to the store.
func (g *Gate) Ingest(ctx context.Context, game *models.Game, play *models.Play) (Outcome, error) {
	ev := play.Event(game)

	inserted, err := g.repo.InsertIfAbsent(ctx, ev)
	if err != nil {
		return 0, fmt.Errorf("ingest of play %q failed: %w", play.PlayID, err)
	}

	if inserted {
		g.logger.Info("event added to database", "play_id", play.PlayID, "game_pk", game.GamePk)
		return OutcomeInserted, nil
	}

	// Resume path: report how far the earlier run got with this event.
	existing, found, err := g.repo.Get(ctx, play.PlayID)
	if err != nil {
		return 0, fmt.Errorf("failed to read existing event %q: %w", play.PlayID, err)
	}
	if found {
		g.logger.Info("event already in database",
			"play_id", play.PlayID,
			"game_pk", game.GamePk,
			"progress", existing.FlagSummary(),
		)
	}

	return OutcomeAlreadyPresent, nil
}

// IngestGame runs every play of a game through the gate. Cancellation is
// honored between plays only: when the context is cancelled the play that was
// in flight is removed again so no half-considered row survives the run. The
// row is compensated, not rolled back; the insert itself was atomic, but any
// downstream work for it is known to be abandoned.
func (g *Gate) IngestGame(ctx context.Context, game *models.Game, plays []models.Play) (inserted, present int, err error) {
	for i := range plays {
		play := &plays[i]

		outcome, err := g.Ingest(ctx, game, play)
		if err != nil {
			return inserted, present, err
		}

		if ctx.Err() != nil {
			if outcome == OutcomeInserted {
				if cerr := g.Compensate(play.PlayID); cerr != nil {
					g.logger.Error("compensating delete failed", "play_id", play.PlayID, "error", cerr)
				}
			}
			return inserted, present, ctx.Err()
		}

		switch outcome {
		case OutcomeInserted:
			inserted++
		case OutcomeAlreadyPresent:
			present++
		}
	}

	return inserted, present, nil
}

// Compensate removes the row for a play whose downstream work was abandoned
// mid-ingest. Runs on a fresh context: the trigger is precisely that the
// run's context is already cancelled.
func (g *Gate) Compensate(playID string) error {
	removed, err := g.repo.Delete(context.Background(), playID)
	if err != nil {
		return fmt.Errorf("failed to compensate play %q: %w", playID, err)
	}
	if removed {
		g.logger.Warn("removed half-considered event after cancellation", "play_id", playID)
	}
	return nil
}
