package models

import (
	"strconv"
	"strings"
)

// Event represents one persisted hit-by-pitch occurrence, keyed by the
// Statcast play id. Identifying and measurement attributes are written once
// at discovery time; only the lifecycle flags change afterwards.
type Event struct {
	PlayID    string  `json:"play_id"`
	GamePk    int     `json:"game_pk"`
	GameDate  string  `json:"game_date"` // YYYY-MM-DD
	PitcherID int     `json:"pitcher_id"`
	BatterID  int     `json:"batter_id"`
	EndSpeed  float64 `json:"end_speed"`
	PlateX    float64 `json:"plate_x"`
	PlateZ    float64 `json:"plate_z"`

	// Lifecycle flags. Each transitions false -> true exactly once.
	Downloaded bool `json:"downloaded"`
	Analyzed   bool `json:"analyzed"`
	Skeeted    bool `json:"skeeted"`
}

// HasMedia reports whether a Savant video can exist for this event. Statcast
// occasionally publishes a play without assigning a play id; for those no
// media is obtainable and the download stage is trivially complete.
func (e *Event) HasMedia() bool {
	return e.PlayID != ""
}

// Season returns the calendar year of the game date, or 0 when the date is
// malformed.
func (e *Event) Season() int {
	year, _, ok := strings.Cut(e.GameDate, "-")
	if !ok {
		return 0
	}
	season, err := strconv.Atoi(year)
	if err != nil {
		return 0
	}
	return season
}

// FlagSummary renders the set flags as a short status suffix, e.g.
// "(dl) (nz) (sk)" for a fully processed event. Empty when nothing is set.
func (e *Event) FlagSummary() string {
	var parts []string
	if e.Downloaded {
		parts = append(parts, "(dl)")
	}
	if e.Analyzed {
		parts = append(parts, "(nz)")
	}
	if e.Skeeted {
		parts = append(parts, "(sk)")
	}
	return strings.Join(parts, " ")
}

// Flag names one of the three monotonic lifecycle booleans.
type Flag string

const (
	FlagDownloaded Flag = "downloaded"
	FlagAnalyzed   Flag = "analyzed"
	FlagSkeeted    Flag = "skeeted"
)

// Valid reports whether f is one of the known lifecycle flags. Flag values
// are interpolated into SQL column positions, so anything else is rejected
// before it reaches the store.
func (f Flag) Valid() bool {
	switch f {
	case FlagDownloaded, FlagAnalyzed, FlagSkeeted:
		return true
	}
	return false
}
