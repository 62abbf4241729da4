package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver" // registers the "sqlite3" driver
	_ "github.com/ncruces/go-sqlite3/embed"  // bundles the SQLite wasm build
)

// Config holds event store connection configuration.
type Config struct {
	Path           string
	ConnectTimeout time.Duration
}

// DefaultConfig returns sensible defaults for store configuration.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		ConnectTimeout: 10 * time.Second,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS hbp_events (
	play_id    TEXT PRIMARY KEY,
	game_pk    INTEGER NOT NULL,
	game_date  TEXT NOT NULL,
	pitcher_id INTEGER NOT NULL,
	batter_id  INTEGER NOT NULL,
	end_speed  REAL NOT NULL,
	plate_x    REAL NOT NULL,
	plate_z    REAL NOT NULL,
	downloaded INTEGER NOT NULL DEFAULT 0,
	analyzed   INTEGER NOT NULL DEFAULT 0,
	skeeted    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_hbp_events_game_pk ON hbp_events (game_pk);
CREATE INDEX IF NOT EXISTS idx_hbp_events_game_date ON hbp_events (game_date);
`

// Connect opens (creating if necessary) the SQLite event store and ensures
// the schema exists. The connection pool is capped at one connection: the
// pipeline is single-threaded per process and the store file is shared only
// between non-overlapping runs.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return db, nil
}

// HealthCheck performs a store health check.
func HealthCheck(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("unexpected health check result: %d", result)
	}
	return nil
}
