package skeet

import (
	"strings"
	"testing"

	"github.com/plunkbot/plunkbot/internal/models"
)

func testGame() *models.Game {
	return &models.Game{
		GamePk: 555555,
		Date:   "2025-06-01",
		Home:   models.TeamLine{Name: "Yankees", Score: 2},
		Away:   models.TeamLine{Name: "Red Sox", Score: 5},
	}
}

func testPlay() *models.Play {
	return &models.Play{
		PlayID: "abc",
		GamePk: 555555,
		Batter: models.Player{ID: 222, Name: "Aaron Judge", Hand: "R", Team: "Yankees"},
		Pitcher: models.Player{
			ID: 111, Name: "Garrett Crochet", Hand: "L", Team: "Red Sox",
		},
		AtBat: models.AtBat{
			Balls: 1, Strikes: 2, Outs: 2,
			Inning: 7, HalfInning: "bottom",
			StartSpeed: 97.1, EndSpeed: 89.3,
			PitchName: "Four-Seam Fastball",
			PlateX:    1.1, PlateZ: 3.4,
		},
	}
}

func TestBuildEventText(t *testing.T) {
	text, err := BuildEventText(testGame(), testPlay())
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	want := strings.Join([]string{
		"⚾💥 Red Sox at Yankees 💥⚾",
		"01 June 2025",
		"Batter:  Aaron Judge (R) - Yankees",
		"Pitcher: Garrett Crochet (L) - Red Sox",
		"Count:   1-2, 2 outs, bottom of 7th",
		"Pitch:   93.2 mph four-seam fastball",
	}, "\n")
	if text != want {
		t.Errorf("event text mismatch:\ngot:\n%s\nwant:\n%s", text, want)
	}
	if len([]rune(text)) > CharLimit {
		t.Errorf("event text exceeds limit: %d runes", len([]rune(text)))
	}
}

func TestBuildCleanText(t *testing.T) {
	text, err := BuildCleanText(testGame())
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	want := strings.Join([]string{
		"⚾🧤 Red Sox at Yankees 🧤⚾",
		"01 June 2025",
		"👍 Nobody got hit!",
		"Red Sox won 5-2",
	}, "\n")
	if text != want {
		t.Errorf("clean text mismatch:\ngot:\n%s\nwant:\n%s", text, want)
	}
}

func TestBuildEventText_OverLimit(t *testing.T) {
	game := testGame()
	game.Home.Name = strings.Repeat("Y", 200)
	game.Away.Name = strings.Repeat("X", 200)

	if _, err := BuildEventText(game, testPlay()); err == nil {
		t.Error("expected error for text over the character limit")
	}
}

func TestFormatGameDate_Unparseable(t *testing.T) {
	if got := formatGameDate("not-a-date"); got != "not-a-date" {
		t.Errorf("unparseable date should pass through, got %q", got)
	}
}
