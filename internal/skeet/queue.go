package skeet

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/plunkbot/plunkbot/internal/models"
)

// Work queue artifact names. The desc pattern tolerates an empty play id so
// that events without obtainable media still queue for publication.
var (
	descPattern  = regexp.MustCompile(`^(\d+)_([0-9a-fA-F-]*)_desc\.txt$`)
	cleanPattern = regexp.MustCompile(`^(\d+)_clean\.txt$`)
)

// WorkItem is one pending unit of publication work parsed off the queue
// directory. Clean items carry no play id and are discarded unposted.
type WorkItem struct {
	Path   string
	GamePk int
	PlayID string
	Clean  bool
}

// Queue is an ordered sequence of pending work items backed by the skeet
// directory. The listing is snapshotted at open time; files appearing later
// belong to the next run.
type Queue struct {
	items []WorkItem
}

// OpenQueue snapshots the queue directory in lexical order, skipping
// filenames that match neither artifact pattern. A missing directory is an
// empty queue, not an error.
func OpenQueue(dir string) (*Queue, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &Queue{}, nil
		}
		return nil, fmt.Errorf("failed to read queue directory: %w", err)
	}

	var items []WorkItem
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		item, ok := parseArtifactName(entry.Name())
		if !ok {
			continue
		}
		item.Path = filepath.Join(dir, entry.Name())
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return filepath.Base(items[i].Path) < filepath.Base(items[j].Path)
	})

	return &Queue{items: items}, nil
}

func parseArtifactName(name string) (WorkItem, bool) {
	if m := cleanPattern.FindStringSubmatch(name); m != nil {
		gamePk, err := strconv.Atoi(m[1])
		if err != nil {
			return WorkItem{}, false
		}
		return WorkItem{GamePk: gamePk, Clean: true}, true
	}
	if m := descPattern.FindStringSubmatch(name); m != nil {
		gamePk, err := strconv.Atoi(m[1])
		if err != nil {
			return WorkItem{}, false
		}
		return WorkItem{GamePk: gamePk, PlayID: m[2]}, true
	}
	return WorkItem{}, false
}

// Len reports how many items remain queued.
func (q *Queue) Len() int {
	return len(q.items)
}

// DequeueNext pops the next pending item. ok=false means the queue is
// exhausted.
func (q *Queue) DequeueNext() (item WorkItem, ok bool) {
	if len(q.items) == 0 {
		return WorkItem{}, false
	}
	item = q.items[0]
	q.items = q.items[1:]
	return item, true
}

// DescPath returns the queue artifact path for a play's post text.
func DescPath(dir string, gamePk int, playID string) string {
	return filepath.Join(dir, fmt.Sprintf("%d_%s_desc.txt", gamePk, playID))
}

// CleanPath returns the queue artifact path marking a game with no events.
func CleanPath(dir string, gamePk int) string {
	return filepath.Join(dir, fmt.Sprintf("%d_clean.txt", gamePk))
}

// WriteEventArtifact composes and durably queues the post text for a play.
// Rewriting an already-queued artifact is harmless; the text is a pure
// function of the play.
func WriteEventArtifact(dir string, game *models.Game, play *models.Play) (string, error) {
	text, err := BuildEventText(game, play)
	if err != nil {
		return "", err
	}
	return writeArtifact(DescPath(dir, game.GamePk, play.PlayID), dir, text)
}

// WriteCleanArtifact queues the clean marker for a game with no events.
func WriteCleanArtifact(dir string, game *models.Game) (string, error) {
	text, err := BuildCleanText(game)
	if err != nil {
		return "", err
	}
	return writeArtifact(CleanPath(dir, game.GamePk), dir, text)
}

func writeArtifact(path, dir, text string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create skeet directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write queue artifact: %w", err)
	}
	return path, nil
}
