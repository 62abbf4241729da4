// Package skeet owns the publication stage: composing post text, the
// filesystem work queue of pending posts, and the publisher that walks the
// queue against the store.
package skeet

import (
	"fmt"
	"strings"
	"time"

	"github.com/plunkbot/plunkbot/internal/models"
)

// CharLimit is the Bluesky length cap for one post. Composed text never
// exceeds it; a longer composition is a programming error.
const CharLimit = 300

// BuildEventText composes the post body for a hit-by-pitch play.
func BuildEventText(game *models.Game, play *models.Play) (string, error) {
	lines := []string{
		fmt.Sprintf("⚾💥 %s at %s 💥⚾", game.Away.Name, game.Home.Name),
		formatGameDate(game.Date),
		"Batter:  " + play.Batter.DisplayLine(),
		"Pitcher: " + play.Pitcher.DisplayLine(),
		"Count:   " + play.AtBat.CountLine(),
		"Pitch:   " + play.AtBat.PitchLine(),
	}
	return joinWithinLimit(lines)
}

// BuildCleanText composes the body for a game in which nobody got hit. The
// clean artifact is written for queue completeness and discarded unposted.
func BuildCleanText(game *models.Game) (string, error) {
	winner, loser := game.Winner()
	lines := []string{
		fmt.Sprintf("⚾🧤 %s at %s 🧤⚾", game.Away.Name, game.Home.Name),
		formatGameDate(game.Date),
		"👍 Nobody got hit!",
		fmt.Sprintf("%s won %d-%d", winner.Name, winner.Score, loser.Score),
	}
	return joinWithinLimit(lines)
}

func joinWithinLimit(lines []string) (string, error) {
	text := strings.Join(lines, "\n")
	if n := len([]rune(text)); n > CharLimit {
		return "", fmt.Errorf("composed text is %d characters, limit is %d", n, CharLimit)
	}
	return text, nil
}

// formatGameDate renders "2025-06-01" as "01 June 2025". An unparseable date
// falls through unformatted rather than blocking the post.
func formatGameDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("02 January 2006")
}
