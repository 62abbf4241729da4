package skeet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/plunkbot/plunkbot/internal/database"
	"github.com/plunkbot/plunkbot/internal/enrich"
	"github.com/plunkbot/plunkbot/internal/models"
)

type postRecord struct {
	text string
	att  models.Attachment
}

type fakePoster struct {
	posts []postRecord
	err   error
}

func (f *fakePoster) Post(ctx context.Context, text string, att models.Attachment) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.posts = append(f.posts, postRecord{text: text, att: att})
	return fmt.Sprintf("at://post/%d", len(f.posts)), nil
}

type fakeMedia struct{ dir string }

func (f fakeMedia) VideoPath(gamePk int, playID string) string {
	return filepath.Join(f.dir, fmt.Sprintf("%d_%s.mp4", gamePk, playID))
}

type fakePlots struct{ dir string }

func (f fakePlots) PlotPaths(ev models.Event) []string {
	prefix := fmt.Sprintf("%d_%s", ev.GamePk, ev.PlayID)
	return []string{
		filepath.Join(f.dir, fmt.Sprintf("%s_%d.png", prefix, ev.Season())),
		filepath.Join(f.dir, prefix+"_batter.png"),
		filepath.Join(f.dir, prefix+"_pitcher.png"),
	}
}

type pubHarness struct {
	repo     *database.EventRepository
	poster   *fakePoster
	media    fakeMedia
	plots    fakePlots
	skeetDir string
	pub      *Publisher
}

func newPubHarness(t *testing.T) *pubHarness {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "hbp.db")
	db, err := database.Connect(context.Background(), database.DefaultConfig(dbPath))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := &pubHarness{
		repo:     database.NewEventRepository(db),
		poster:   &fakePoster{},
		media:    fakeMedia{dir: t.TempDir()},
		plots:    fakePlots{dir: t.TempDir()},
		skeetDir: t.TempDir(),
	}
	h.pub = NewPublisher(h.repo, h.poster, h.media, h.plots, h.skeetDir, slog.New(slog.DiscardHandler))
	return h
}

func (h *pubHarness) insert(t *testing.T, ev models.Event, flags ...models.Flag) {
	t.Helper()
	if _, err := h.repo.InsertIfAbsent(context.Background(), ev); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	for _, flag := range flags {
		if err := h.repo.SetFlag(context.Background(), ev.PlayID, flag); err != nil {
			t.Fatalf("set %s failed: %v", flag, err)
		}
	}
}

func (h *pubHarness) seedDesc(t *testing.T, gamePk int, playID, text string) string {
	t.Helper()
	path := DescPath(h.skeetDir, gamePk, playID)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("failed to seed desc artifact: %v", err)
	}
	return path
}

func (h *pubHarness) seedFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("bytes"), 0o644); err != nil {
		t.Fatalf("failed to seed %s: %v", path, err)
	}
}

func (h *pubHarness) event(t *testing.T, playID string) models.Event {
	t.Helper()
	ev, found, err := h.repo.Get(context.Background(), playID)
	if err != nil || !found {
		t.Fatalf("get %q failed: found=%v err=%v", playID, found, err)
	}
	return ev
}

func TestPublisher_EndToEnd(t *testing.T) {
	h := newPubHarness(t)
	ev := models.Event{
		PlayID: "abc", GamePk: 555555, GameDate: "2025-06-01",
		PitcherID: 111, BatterID: 222,
		EndSpeed: 92.1, PlateX: 14.5, PlateZ: 9.01,
	}

	// Discovery persisted the row and enrichment downloaded the video, but
	// no analysis plots exist yet.
	h.insert(t, ev, models.FlagDownloaded)
	descPath := h.seedDesc(t, 555555, "abc", "somebody got hit")
	videoPath := h.media.VideoPath(555555, "abc")
	h.seedFile(t, videoPath)

	posted, err := h.pub.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if posted != 1 {
		t.Fatalf("expected 1 post, got %d", posted)
	}

	post := h.poster.posts[0]
	if post.text != "somebody got hit" {
		t.Errorf("post text = %q", post.text)
	}
	if post.att.VideoPath != videoPath {
		t.Errorf("post video = %q, want %q", post.att.VideoPath, videoPath)
	}
	if len(post.att.Images) != 0 {
		t.Errorf("unanalyzed event must post without images, got %d", len(post.att.Images))
	}

	got := h.event(t, "abc")
	if !got.Skeeted {
		t.Error("skeeted flag should be set")
	}
	for _, path := range []string{descPath, videoPath} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("artifact %s should be deleted", path)
		}
	}

	// The queue is empty now; another run does nothing.
	posted, err = h.pub.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if posted != 0 || len(h.poster.posts) != 1 {
		t.Errorf("second run must be a no-op: posted=%d total=%d", posted, len(h.poster.posts))
	}
}

func TestPublisher_AnalyzedEventAttachesImages(t *testing.T) {
	h := newPubHarness(t)
	ev := models.Event{PlayID: "abc", GamePk: 100, GameDate: "2025-06-01"}

	h.insert(t, ev, models.FlagDownloaded, models.FlagAnalyzed)
	h.seedDesc(t, 100, "abc", "text")
	h.seedFile(t, h.media.VideoPath(100, "abc"))
	for _, path := range h.plots.PlotPaths(models.Event{PlayID: "abc", GamePk: 100, GameDate: "2025-06-01"}) {
		h.seedFile(t, path)
	}

	if _, err := h.pub.Run(context.Background(), 0); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	post := h.poster.posts[0]
	if len(post.att.Images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(post.att.Images))
	}
	for _, img := range post.att.Images {
		if img.Alt == "" {
			t.Errorf("image %s has no alt text", img.Path)
		}
		if _, err := os.Stat(img.Path); !os.IsNotExist(err) {
			t.Errorf("plot %s should be deleted after posting", img.Path)
		}
	}
}

func TestPublisher_CleanArtifactDiscarded(t *testing.T) {
	h := newPubHarness(t)
	path := CleanPath(h.skeetDir, 100)
	h.seedFile(t, path)

	posted, err := h.pub.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if posted != 0 || len(h.poster.posts) != 0 {
		t.Error("clean artifact must not produce a post")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("clean artifact should be deleted")
	}
}

func TestPublisher_AlreadySkeetedCleansUp(t *testing.T) {
	h := newPubHarness(t)
	ev := models.Event{PlayID: "abc", GamePk: 100, GameDate: "2025-06-01"}
	h.insert(t, ev, models.FlagDownloaded, models.FlagSkeeted)

	descPath := h.seedDesc(t, 100, "abc", "text")
	videoPath := h.media.VideoPath(100, "abc")
	h.seedFile(t, videoPath)

	posted, err := h.pub.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if posted != 0 || len(h.poster.posts) != 0 {
		t.Error("already-posted event must not post again")
	}
	for _, path := range []string{descPath, videoPath} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("artifact %s should be deleted", path)
		}
	}
}

func TestPublisher_SubmissionFailureAborts(t *testing.T) {
	h := newPubHarness(t)
	h.poster.err = errors.New("service unavailable")

	ev := models.Event{PlayID: "abc", GamePk: 100, GameDate: "2025-06-01"}
	h.insert(t, ev)
	descPath := h.seedDesc(t, 100, "abc", "text")

	posted, err := h.pub.Run(context.Background(), 0)
	if err == nil {
		t.Fatal("expected run to abort on submission failure")
	}
	if posted != 0 {
		t.Errorf("no posts should be counted, got %d", posted)
	}
	if h.event(t, "abc").Skeeted {
		t.Error("skeeted flag must not advance on failure")
	}
	if _, err := os.Stat(descPath); err != nil {
		t.Error("artifact must stay queued for the next run")
	}
}

func TestPublisher_RepairsFlagsFromArtifacts(t *testing.T) {
	h := newPubHarness(t)
	ev := models.Event{PlayID: "abc", GamePk: 100, GameDate: "2025-06-01"}
	h.insert(t, ev) // both enrichment flags still false

	h.seedDesc(t, 100, "abc", "text")
	h.seedFile(t, h.media.VideoPath(100, "abc"))
	for _, path := range h.plots.PlotPaths(models.Event{PlayID: "abc", GamePk: 100, GameDate: "2025-06-01"}) {
		h.seedFile(t, path)
	}

	if _, err := h.pub.Run(context.Background(), 0); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	post := h.poster.posts[0]
	if post.att.VideoPath == "" || len(post.att.Images) != 3 {
		t.Errorf("repaired event should post with all artifacts: %+v", post.att)
	}
}

func TestPublisher_MissingVideoIsFatal(t *testing.T) {
	h := newPubHarness(t)
	ev := models.Event{PlayID: "abc", GamePk: 100, GameDate: "2025-06-01"}
	h.insert(t, ev, models.FlagDownloaded)
	h.seedDesc(t, 100, "abc", "text")
	// No video on disk despite downloaded=true.

	_, err := h.pub.Run(context.Background(), 0)

	var consistency *enrich.ConsistencyError
	if !errors.As(err, &consistency) {
		t.Fatalf("expected ConsistencyError, got %v", err)
	}
	if h.event(t, "abc").Skeeted {
		t.Error("no flag may advance past the fatal step")
	}
}

func TestPublisher_MaxPostsCap(t *testing.T) {
	h := newPubHarness(t)
	for i := 1; i <= 3; i++ {
		playID := fmt.Sprintf("a%d", i)
		h.insert(t, models.Event{PlayID: playID, GamePk: i, GameDate: "2025-06-01"})
		h.seedDesc(t, i, playID, "text")
	}

	posted, err := h.pub.Run(context.Background(), 2)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if posted != 2 {
		t.Errorf("expected cap at 2 posts, got %d", posted)
	}

	// The leftover item publishes on the next run; the cap clamps down to
	// the queue length.
	posted, err = h.pub.Run(context.Background(), 5)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if posted != 1 {
		t.Errorf("expected 1 remaining post, got %d", posted)
	}
}

func TestPublisher_OrphanArtifactSkipped(t *testing.T) {
	h := newPubHarness(t)
	path := h.seedDesc(t, 100, "abc", "text") // no row behind it

	posted, err := h.pub.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if posted != 0 {
		t.Errorf("orphan must not post, got %d", posted)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("orphan artifact should be left for inspection")
	}
}
