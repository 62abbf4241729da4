// Package enrich drives media and analysis artifact acquisition for
// persisted events, advancing lifecycle flags only after the underlying side
// effect verifiably exists.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/plunkbot/plunkbot/internal/database"
	"github.com/plunkbot/plunkbot/internal/models"
	"github.com/plunkbot/plunkbot/internal/savant"
)

// ConsistencyError reports a flag claiming an artifact that is not on disk.
// The store and filesystem disagree in a direction that cannot be repaired
// automatically; the run must abort before advancing anything further.
type ConsistencyError struct {
	PlayID   string
	Flag     models.Flag
	Artifact string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("play %q has %s=true but artifact %s is missing", e.PlayID, e.Flag, e.Artifact)
}

// MediaFetcher locates and downloads the video artifact for a play.
type MediaFetcher interface {
	VideoPath(gamePk int, playID string) string
	Fetch(ctx context.Context, gamePk int, playID string) (string, error)
}

// Renderer produces the analysis artifacts for an event. ok=false means the
// comparison dataset had nothing to plot.
type Renderer interface {
	PlotPaths(ev models.Event) []string
	Render(ctx context.Context, ev models.Event, season, batterHist, pitcherHist []models.Event) (paths []string, ok bool, err error)
}

// Orchestrator walks persisted events through the enrichment stages.
type Orchestrator struct {
	repo     *database.EventRepository
	fetcher  MediaFetcher
	renderer Renderer
	logger   *slog.Logger
}

// NewOrchestrator wires the enrichment stages together.
func NewOrchestrator(repo *database.EventRepository, fetcher MediaFetcher, renderer Renderer, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{repo: repo, fetcher: fetcher, renderer: renderer, logger: logger}
}

// EnrichMedia acquires the video for one event and advances the downloaded
// flag. The flag/artifact reconciliation is three-way:
//
//   - flag set, artifact present: nothing to do
//   - flag clear, artifact present: repairable skip/resume gap; set the flag
//   - flag set, artifact missing: ConsistencyError, fatal
//
// A fetch failure (including Savant not having the video yet) is returned for
// the caller to log and skip; the next run retries.
func (o *Orchestrator) EnrichMedia(ctx context.Context, ev models.Event) error {
	if !ev.HasMedia() {
		// No media is obtainable, so "done" holds trivially.
		if !ev.Downloaded {
			if err := o.repo.SetFlag(ctx, ev.PlayID, models.FlagDownloaded); err != nil {
				return err
			}
			o.logger.Info("no media expected, marked downloaded", "game_pk", ev.GamePk)
		}
		return nil
	}

	path := o.fetcher.VideoPath(ev.GamePk, ev.PlayID)
	present := fileExists(path)

	switch {
	case ev.Downloaded && present:
		return nil

	case ev.Downloaded && !present:
		return &ConsistencyError{PlayID: ev.PlayID, Flag: models.FlagDownloaded, Artifact: path}

	case !ev.Downloaded && present:
		o.logger.Warn("video on disk but flag unset, repairing", "play_id", ev.PlayID, "path", path)
		return o.repo.SetFlag(ctx, ev.PlayID, models.FlagDownloaded)
	}

	got, err := o.fetcher.Fetch(ctx, ev.GamePk, ev.PlayID)
	if err != nil {
		return fmt.Errorf("media fetch for play %q failed: %w", ev.PlayID, err)
	}
	if !fileExists(got) {
		// The collaborator claimed success; trust only the filesystem.
		return fmt.Errorf("media fetch for play %q reported %s but the file is missing", ev.PlayID, got)
	}

	return o.repo.SetFlag(ctx, ev.PlayID, models.FlagDownloaded)
}

// EnrichAnalysis renders the analysis plots for one event and advances the
// analyzed flag, using the same three-way reconciliation as EnrichMedia. The
// first (season) plot stands in for the artifact set when checking presence.
func (o *Orchestrator) EnrichAnalysis(ctx context.Context, ev models.Event) error {
	paths := o.renderer.PlotPaths(ev)
	present := len(paths) > 0 && fileExists(paths[0])

	switch {
	case ev.Analyzed && present:
		return nil

	case ev.Analyzed && !present:
		return &ConsistencyError{PlayID: ev.PlayID, Flag: models.FlagAnalyzed, Artifact: paths[0]}

	case !ev.Analyzed && present:
		o.logger.Warn("plots on disk but flag unset, repairing", "play_id", ev.PlayID)
		return o.repo.SetFlag(ctx, ev.PlayID, models.FlagAnalyzed)
	}

	season, err := o.repo.GetBySeason(ctx, ev.Season())
	if err != nil {
		return fmt.Errorf("failed to load season data: %w", err)
	}
	batterHist, err := o.repo.GetByBatter(ctx, ev.BatterID)
	if err != nil {
		return fmt.Errorf("failed to load batter history: %w", err)
	}
	pitcherHist, err := o.repo.GetByPitcher(ctx, ev.PitcherID)
	if err != nil {
		return fmt.Errorf("failed to load pitcher history: %w", err)
	}

	_, ok, err := o.renderer.Render(ctx, ev, season, batterHist, pitcherHist)
	if err != nil {
		return fmt.Errorf("analysis render for play %q failed: %w", ev.PlayID, err)
	}
	if !ok {
		// Nothing to plot; the flag stays clear and publication posts
		// without analysis images.
		return nil
	}

	return o.repo.SetFlag(ctx, ev.PlayID, models.FlagAnalyzed)
}

// IsFatal reports whether err must abort the run rather than skip the item.
func IsFatal(err error) bool {
	var consistency *ConsistencyError
	if errors.As(err, &consistency) {
		return true
	}
	var invariant *database.InvariantViolationError
	return errors.As(err, &invariant)
}

// IsSkippable reports whether err is a routine per-item condition, such as
// Savant not having published the video yet.
func IsSkippable(err error) bool {
	return errors.Is(err, savant.ErrVideoUnavailable)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
