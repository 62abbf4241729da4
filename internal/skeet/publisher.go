package skeet

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/plunkbot/plunkbot/internal/database"
	"github.com/plunkbot/plunkbot/internal/enrich"
	"github.com/plunkbot/plunkbot/internal/models"
)

// Poster submits one composed post to the social service, returning a
// reference to the created post.
type Poster interface {
	Post(ctx context.Context, text string, att models.Attachment) (string, error)
}

// MediaLocator resolves the expected video artifact path for a play.
type MediaLocator interface {
	VideoPath(gamePk int, playID string) string
}

// PlotLocator resolves the expected analysis artifact paths for an event.
type PlotLocator interface {
	PlotPaths(ev models.Event) []string
}

// Publisher walks the filesystem work queue, posting each pending event and
// advancing its terminal flag.
type Publisher struct {
	repo     *database.EventRepository
	poster   Poster
	media    MediaLocator
	plots    PlotLocator
	skeetDir string
	logger   *slog.Logger
}

// NewPublisher wires the publication stage together.
func NewPublisher(repo *database.EventRepository, poster Poster, media MediaLocator, plots PlotLocator, skeetDir string, logger *slog.Logger) *Publisher {
	return &Publisher{
		repo:     repo,
		poster:   poster,
		media:    media,
		plots:    plots,
		skeetDir: skeetDir,
		logger:   logger,
	}
}

// Run drains the queue in order, stopping after maxPosts successful posts or
// when the queue is exhausted, whichever comes first. maxPosts <= 0 means no
// cap. A submission failure aborts the run with the item still queued; the
// next run retries it.
func (p *Publisher) Run(ctx context.Context, maxPosts int) (posted int, err error) {
	queue, err := OpenQueue(p.skeetDir)
	if err != nil {
		return 0, err
	}
	p.logger.Info("publication queue opened", "pending", queue.Len())

	for {
		if err := ctx.Err(); err != nil {
			return posted, err
		}

		item, ok := queue.DequeueNext()
		if !ok {
			return posted, nil
		}

		if item.Clean {
			// Nothing to publish for a clean game.
			if err := os.Remove(item.Path); err != nil {
				return posted, fmt.Errorf("failed to discard clean artifact: %w", err)
			}
			p.logger.Info("discarded clean-game artifact", "game_pk", item.GamePk)
			continue
		}

		done, err := p.publish(ctx, item)
		if err != nil {
			return posted, err
		}
		if done {
			posted++
			if maxPosts > 0 && posted >= maxPosts {
				p.logger.Info("post cap reached", "posted", posted, "remaining", queue.Len())
				return posted, nil
			}
		}
	}
}

// publish handles one desc artifact. done=true means a post was submitted;
// already-skeeted and orphaned items resolve without posting.
func (p *Publisher) publish(ctx context.Context, item WorkItem) (done bool, err error) {
	ev, found, err := p.repo.Get(ctx, item.PlayID)
	if err != nil {
		return false, err
	}
	if !found {
		// Queue artifact with no backing row. Leave it for an operator to
		// inspect rather than posting unverifiable text.
		p.logger.Warn("queue artifact has no stored event, skipping",
			"play_id", item.PlayID, "path", item.Path)
		return false, nil
	}

	if ev.Skeeted {
		// Crash window between posting and cleanup on an earlier run.
		p.logger.Info("event already posted, cleaning up", "play_id", ev.PlayID)
		return false, p.cleanup(item, ev)
	}

	text, err := os.ReadFile(item.Path)
	if err != nil {
		return false, fmt.Errorf("failed to read queue artifact: %w", err)
	}

	att, err := p.resolveAttachments(ctx, &ev)
	if err != nil {
		return false, err
	}

	ref, err := p.poster.Post(ctx, string(text), att)
	if err != nil {
		// No flag moves; the artifact stays queued for the next run.
		return false, fmt.Errorf("post submission for play %q failed: %w", ev.PlayID, err)
	}
	p.logger.Info("event posted",
		"play_id", ev.PlayID,
		"game_pk", ev.GamePk,
		"post", ref,
		"video", att.VideoPath != "",
		"images", len(att.Images),
	)

	if err := p.repo.SetFlag(ctx, ev.PlayID, models.FlagSkeeted); err != nil {
		return true, err
	}
	return true, p.cleanup(item, ev)
}

// resolveAttachments reconciles the expected media and analysis artifacts
// against the lifecycle flags. A set flag with a missing artifact is fatal; a
// clear flag with a present artifact is repaired and the artifact used.
func (p *Publisher) resolveAttachments(ctx context.Context, ev *models.Event) (models.Attachment, error) {
	var att models.Attachment

	if ev.HasMedia() {
		path := p.media.VideoPath(ev.GamePk, ev.PlayID)
		present := fileExists(path)

		switch {
		case ev.Downloaded && present:
			att.VideoPath = path
		case ev.Downloaded && !present:
			return att, &enrich.ConsistencyError{PlayID: ev.PlayID, Flag: models.FlagDownloaded, Artifact: path}
		case !ev.Downloaded && present:
			p.logger.Warn("video on disk but flag unset, repairing", "play_id", ev.PlayID)
			if err := p.repo.SetFlag(ctx, ev.PlayID, models.FlagDownloaded); err != nil {
				return att, err
			}
			ev.Downloaded = true
			att.VideoPath = path
		}
	}

	paths := p.plots.PlotPaths(*ev)
	present := len(paths) > 0 && fileExists(paths[0])

	switch {
	case ev.Analyzed && !present:
		return att, &enrich.ConsistencyError{PlayID: ev.PlayID, Flag: models.FlagAnalyzed, Artifact: paths[0]}
	case !ev.Analyzed && present:
		p.logger.Warn("plots on disk but flag unset, repairing", "play_id", ev.PlayID)
		if err := p.repo.SetFlag(ctx, ev.PlayID, models.FlagAnalyzed); err != nil {
			return att, err
		}
		ev.Analyzed = true
	}
	if ev.Analyzed {
		for _, path := range paths {
			if !fileExists(path) {
				return att, &enrich.ConsistencyError{PlayID: ev.PlayID, Flag: models.FlagAnalyzed, Artifact: path}
			}
			att.Images = append(att.Images, models.ImageAttachment{Path: path, Alt: plotAlt(path)})
		}
	}

	return att, nil
}

// cleanup removes every artifact for a posted event. The row stays for
// historical queries. Missing files are fine; a posted event may have had no
// media or plots.
func (p *Publisher) cleanup(item WorkItem, ev models.Event) error {
	targets := []string{item.Path}
	if ev.HasMedia() {
		targets = append(targets, p.media.VideoPath(ev.GamePk, ev.PlayID))
	}
	targets = append(targets, p.plots.PlotPaths(ev)...)

	for _, path := range targets {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove artifact %s: %w", path, err)
		}
	}
	return nil
}

func plotAlt(path string) string {
	switch {
	case strings.HasSuffix(path, "_batter.png"):
		return "Scatter plot of every pitch that hit this batter"
	case strings.HasSuffix(path, "_pitcher.png"):
		return "Scatter plot of every batter this pitcher has hit"
	default:
		return "Scatter plot of this season's hit-by-pitch locations"
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
