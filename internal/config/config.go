package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration derived from environment variables.
// It is constructed once in main and passed by reference into component
// constructors; nothing reads ambient state after Load returns.
type Config struct {
	Database DatabaseConfig
	Paths    PathsConfig
	StatsAPI StatsAPIConfig
	Savant   SavantConfig
	Bluesky  BlueskyConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

// DatabaseConfig locates the SQLite event store file.
type DatabaseConfig struct {
	Path string
}

// PathsConfig holds the artifact directories shared across process runs.
type PathsConfig struct {
	SkeetDir string
	VideoDir string
	PlotDir  string
}

// StatsAPIConfig holds MLB Stats API parameters.
type StatsAPIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SavantConfig holds Baseball Savant video page parameters.
type SavantConfig struct {
	VideoPageURL string
	Timeout      time.Duration
}

// BlueskyConfig holds posting credentials for the Bluesky PDS.
type BlueskyConfig struct {
	Host        string
	Identifier  string
	AppPassword string
}

// MetricsConfig holds optional Pushgateway parameters. An empty URL disables
// pushing; the collectors still run.
type MetricsConfig struct {
	PushgatewayURL string
	Job            string
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

const (
	defaultDBPath       = "data/hbp.db"
	defaultSkeetDir     = "skeets"
	defaultVideoDir     = "videos"
	defaultPlotDir      = "plots"
	defaultStatsBaseURL = "https://statsapi.mlb.com"
	defaultSavantURL    = "https://baseballsavant.mlb.com/sporty-videos"
	defaultBlueskyHost  = "https://bsky.social"
	defaultMetricsJob   = "plunkbot"

	defaultStatsTimeout  = 10 * time.Second
	defaultSavantTimeout = 30 * time.Second

	defaultLogFormat = "json"
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided. A .env file in the working directory is folded in
// first when present, for local development.
func Load() (Config, error) {
	// Best effort; a missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := Config{
		Database: DatabaseConfig{
			Path: getEnv("HBP_DB_PATH", defaultDBPath),
		},
		Paths: PathsConfig{
			SkeetDir: getEnv("HBP_SKEET_DIR", defaultSkeetDir),
			VideoDir: getEnv("HBP_VIDEO_DIR", defaultVideoDir),
			PlotDir:  getEnv("HBP_PLOT_DIR", defaultPlotDir),
		},
		StatsAPI: StatsAPIConfig{
			BaseURL: getEnv("MLB_STATS_BASE_URL", defaultStatsBaseURL),
			Timeout: defaultStatsTimeout,
		},
		Savant: SavantConfig{
			VideoPageURL: getEnv("SAVANT_VIDEO_PAGE_URL", defaultSavantURL),
			Timeout:      defaultSavantTimeout,
		},
		Bluesky: BlueskyConfig{
			Host:        getEnv("BLUESKY_HOST", defaultBlueskyHost),
			Identifier:  os.Getenv("BLUESKY_IDENTIFIER"),
			AppPassword: os.Getenv("BLUESKY_APP_PASSWORD"),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
			Job:            getEnv("METRICS_JOB", defaultMetricsJob),
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
	}

	if v := os.Getenv("MLB_STATS_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MLB_STATS_TIMEOUT_SECONDS: %w", err)
		}
		cfg.StatsAPI.Timeout = d
	}

	if v := os.Getenv("SAVANT_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SAVANT_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Savant.Timeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
