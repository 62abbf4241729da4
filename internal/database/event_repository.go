package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/plunkbot/plunkbot/internal/models"
)

// EventRepository persists hit-by-pitch events in SQLite. All operations are
// single statements, each atomic under SQLite's per-statement transaction.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a repository over an open store connection.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = "play_id, game_pk, game_date, pitcher_id, batter_id, end_speed, plate_x, plate_z, downloaded, analyzed, skeeted"

// InsertIfAbsent inserts the event with all flags false unless a row with the
// same play id already exists. Returns true when a row was written. A
// duplicate is an expected no-op, never an error.
func (r *EventRepository) InsertIfAbsent(ctx context.Context, ev models.Event) (bool, error) {
	query := `
		INSERT INTO hbp_events (play_id, game_pk, game_date, pitcher_id, batter_id, end_speed, plate_x, plate_z)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (play_id) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query,
		ev.PlayID,
		ev.GamePk,
		ev.GameDate,
		ev.PitcherID,
		ev.BatterID,
		ev.EndSpeed,
		ev.PlateX,
		ev.PlateZ,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert event: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return rows == 1, nil
}

// Get retrieves an event by play id. An unknown id yields found=false, not an
// error.
func (r *EventRepository) Get(ctx context.Context, playID string) (models.Event, bool, error) {
	query := "SELECT " + eventColumns + " FROM hbp_events WHERE play_id = ?"

	ev, err := scanEvent(r.db.QueryRowContext(ctx, query, playID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, false, nil
	}
	if err != nil {
		return models.Event{}, false, fmt.Errorf("failed to get event: %w", err)
	}

	return ev, true, nil
}

// GetByGame retrieves all events for a game, ordered by play id. The order is
// stable but unrelated to insertion order; callers re-sort as needed.
func (r *EventRepository) GetByGame(ctx context.Context, gamePk int) ([]models.Event, error) {
	query := "SELECT " + eventColumns + " FROM hbp_events WHERE game_pk = ? ORDER BY play_id"
	return r.queryEvents(ctx, query, gamePk)
}

// GetByDateRange retrieves all events with game dates in [start, end],
// inclusive, using YYYY-MM-DD strings.
func (r *EventRepository) GetByDateRange(ctx context.Context, start, end string) ([]models.Event, error) {
	query := "SELECT " + eventColumns + " FROM hbp_events WHERE game_date BETWEEN ? AND ? ORDER BY game_date, play_id"
	return r.queryEvents(ctx, query, start, end)
}

// GetBySeason retrieves all events for a calendar year.
func (r *EventRepository) GetBySeason(ctx context.Context, season int) ([]models.Event, error) {
	start := fmt.Sprintf("%04d-01-01", season)
	end := fmt.Sprintf("%04d-12-31", season)
	return r.GetByDateRange(ctx, start, end)
}

// GetByPitcher retrieves every event a pitcher has been charged with.
func (r *EventRepository) GetByPitcher(ctx context.Context, pitcherID int) ([]models.Event, error) {
	query := "SELECT " + eventColumns + " FROM hbp_events WHERE pitcher_id = ? ORDER BY game_date, play_id"
	return r.queryEvents(ctx, query, pitcherID)
}

// GetByBatter retrieves every event a batter has absorbed.
func (r *EventRepository) GetByBatter(ctx context.Context, batterID int) ([]models.Event, error) {
	query := "SELECT " + eventColumns + " FROM hbp_events WHERE batter_id = ? ORDER BY game_date, play_id"
	return r.queryEvents(ctx, query, batterID)
}

// GetPending retrieves every event whose given lifecycle flag is still false,
// oldest games first. This is the work list for the corresponding stage.
func (r *EventRepository) GetPending(ctx context.Context, flag models.Flag) ([]models.Event, error) {
	if !flag.Valid() {
		return nil, fmt.Errorf("unknown lifecycle flag %q", flag)
	}

	query := fmt.Sprintf("SELECT "+eventColumns+" FROM hbp_events WHERE %s = 0 ORDER BY game_date, play_id", flag)
	return r.queryEvents(ctx, query)
}

// SetFlag advances one lifecycle flag to true. Zero affected rows means the
// event does not exist (ErrNotFound); more than one row trips the single-row
// invariant and must abort the run.
func (r *EventRepository) SetFlag(ctx context.Context, playID string, flag models.Flag) error {
	if !flag.Valid() {
		return fmt.Errorf("unknown lifecycle flag %q", flag)
	}

	// The flag name is interpolated, not bound: SQLite cannot parameterize a
	// column position. Flag.Valid restricts it to the three known columns.
	query := fmt.Sprintf("UPDATE hbp_events SET %s = 1 WHERE play_id = ?", flag)

	res, err := r.db.ExecContext(ctx, query, playID)
	if err != nil {
		return fmt.Errorf("failed to set %s flag: %w", flag, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}

	switch {
	case rows == 0:
		return fmt.Errorf("set %s flag for play %q: %w", flag, playID, ErrNotFound)
	case rows > 1:
		return &InvariantViolationError{Op: "set flag", PlayID: playID, Rows: rows}
	}

	return nil
}

// Delete removes an event row. Returns true when a row was removed; removing
// an unknown id is a no-op. More than one affected row trips the single-row
// invariant.
func (r *EventRepository) Delete(ctx context.Context, playID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM hbp_events WHERE play_id = ?", playID)
	if err != nil {
		return false, fmt.Errorf("failed to delete event: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}

	if rows > 1 {
		return false, &InvariantViolationError{Op: "delete", PlayID: playID, Rows: rows}
	}

	return rows == 1, nil
}

// Count returns the total number of stored events.
func (r *EventRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM hbp_events").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func (r *EventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (models.Event, error) {
	var ev models.Event
	err := row.Scan(
		&ev.PlayID,
		&ev.GamePk,
		&ev.GameDate,
		&ev.PitcherID,
		&ev.BatterID,
		&ev.EndSpeed,
		&ev.PlateX,
		&ev.PlateZ,
		&ev.Downloaded,
		&ev.Analyzed,
		&ev.Skeeted,
	)
	return ev, err
}
