// Package statsapi discovers hit-by-pitch events from the MLB Stats API.
package statsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/plunkbot/plunkbot/internal/config"
	"github.com/plunkbot/plunkbot/internal/models"
)

const (
	schedulePath = "/api/v1/schedule"

	// Play-result event name used by the live feed for a hit by pitch.
	hitByPitchEvent = "Hit By Pitch"
)

// Client queries the MLB Stats API. All calls are synchronous with the
// configured timeout; there is no retry policy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a Stats API client.
func NewClient(cfg config.StatsAPIConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// GamesForDate returns every MLB game scheduled on the given YYYY-MM-DD date.
func (c *Client) GamesForDate(ctx context.Context, date string) ([]models.Game, error) {
	u := fmt.Sprintf("%s%s?sportId=1&date=%s", c.baseURL, schedulePath, url.QueryEscape(date))

	var sched scheduleResponse
	if err := c.getJSON(ctx, u, &sched); err != nil {
		return nil, fmt.Errorf("failed to fetch schedule for %s: %w", date, err)
	}

	var games []models.Game
	for _, block := range sched.Dates {
		for _, g := range block.Games {
			games = append(games, models.Game{
				GamePk:            g.GamePk,
				Date:              g.OfficialDate,
				SeriesDescription: g.SeriesDescription,
				Link:              g.Link,
				Home:              g.Teams.Home.teamLine(),
				Away:              g.Teams.Away.teamLine(),
			})
		}
	}

	return games, nil
}

// HitByPitchEvents fetches the live feed for a game and returns its qualifying
// plays. A single play with missing required data is skipped and logged; the
// rest of the game is still returned.
func (c *Client) HitByPitchEvents(ctx context.Context, game models.Game) ([]models.Play, error) {
	if game.Link == "" {
		return nil, fmt.Errorf("game %d has no live feed link", game.GamePk)
	}

	var feed liveFeedResponse
	if err := c.getJSON(ctx, c.baseURL+game.Link, &feed); err != nil {
		return nil, fmt.Errorf("failed to fetch live feed for game %d: %w", game.GamePk, err)
	}

	var plays []models.Play
	for _, p := range feed.LiveData.Plays.AllPlays {
		if p.Result.Event != hitByPitchEvent {
			continue
		}

		play, err := c.shapePlay(&game, &p)
		if err != nil {
			c.logger.Warn("skipping malformed hit-by-pitch play",
				"game_pk", game.GamePk,
				"description", p.Result.Description,
				"error", err,
			)
			continue
		}

		plays = append(plays, play)
	}

	return plays, nil
}

// shapePlay flattens the provider's nested play into the core representation.
// Any absent required field fails this one play.
func (c *Client) shapePlay(game *models.Game, p *feedPlay) (models.Play, error) {
	// The final pitch carries the play id and pitch measurements.
	var pitch *playEvent
	for i := range p.PlayEvents {
		if p.PlayEvents[i].IsPitch {
			pitch = &p.PlayEvents[i]
		}
	}
	if pitch == nil {
		return models.Play{}, fmt.Errorf("play has no pitch events")
	}
	if pitch.PitchData == nil {
		return models.Play{}, fmt.Errorf("final pitch has no pitch data")
	}
	if pitch.Details.Type == nil {
		return models.Play{}, fmt.Errorf("final pitch has no type description")
	}
	if p.Matchup.Batter.ID == 0 || p.Matchup.Pitcher.ID == 0 {
		return models.Play{}, fmt.Errorf("matchup is missing a participant id")
	}

	battingTeam, pitchingTeam := game.Away.Name, game.Home.Name
	if p.About.HalfInning == "bottom" {
		battingTeam, pitchingTeam = game.Home.Name, game.Away.Name
	}

	return models.Play{
		PlayID: pitch.PlayID,
		GamePk: game.GamePk,
		Batter: models.Player{
			ID:   p.Matchup.Batter.ID,
			Name: p.Matchup.Batter.FullName,
			Hand: p.Matchup.BatSide.Code,
			Team: battingTeam,
		},
		Pitcher: models.Player{
			ID:   p.Matchup.Pitcher.ID,
			Name: p.Matchup.Pitcher.FullName,
			Hand: p.Matchup.PitchHand.Code,
			Team: pitchingTeam,
		},
		AtBat: models.AtBat{
			Balls:      pitch.Count.Balls,
			Strikes:    pitch.Count.Strikes,
			Outs:       pitch.Count.Outs,
			Inning:     p.About.Inning,
			HalfInning: p.About.HalfInning,
			StartSpeed: pitch.PitchData.StartSpeed,
			EndSpeed:   pitch.PitchData.EndSpeed,
			PitchName:  pitch.Details.Type.Description,
			PlateX:     pitch.PitchData.Coordinates.PX,
			PlateZ:     pitch.PitchData.Coordinates.PZ,
		},
		Description: p.Result.Description,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
