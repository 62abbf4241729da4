package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Database.Path != defaultDBPath {
		t.Errorf("expected default db path %q, got %q", defaultDBPath, cfg.Database.Path)
	}
	if cfg.Paths.SkeetDir != defaultSkeetDir || cfg.Paths.VideoDir != defaultVideoDir || cfg.Paths.PlotDir != defaultPlotDir {
		t.Errorf("unexpected default paths: %+v", cfg.Paths)
	}
	if cfg.StatsAPI.BaseURL != defaultStatsBaseURL {
		t.Errorf("unexpected stats base URL %q", cfg.StatsAPI.BaseURL)
	}
	if cfg.StatsAPI.Timeout != defaultStatsTimeout {
		t.Errorf("unexpected stats timeout %v", cfg.StatsAPI.Timeout)
	}
	if cfg.Logging.Level != slog.LevelInfo || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HBP_DB_PATH", "/tmp/other.db")
	t.Setenv("MLB_STATS_TIMEOUT_SECONDS", "25")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Database.Path != "/tmp/other.db" {
		t.Errorf("db path override not applied: %q", cfg.Database.Path)
	}
	if cfg.StatsAPI.Timeout != 25*time.Second {
		t.Errorf("timeout override not applied: %v", cfg.StatsAPI.Timeout)
	}
	if cfg.Logging.Level != slog.LevelDebug || cfg.Logging.Format != "text" {
		t.Errorf("logging overrides not applied: %+v", cfg.Logging)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"negative timeout", "MLB_STATS_TIMEOUT_SECONDS", "-3"},
		{"non-numeric timeout", "SAVANT_TIMEOUT_SECONDS", "soon"},
		{"bad log level", "LOG_LEVEL", "shouty"},
		{"bad log format", "LOG_FORMAT", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
