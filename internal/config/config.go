// Package config loads the engine's hierarchical configuration: secret
// and environment-specific values from .env (via godotenv, the way the
// teacher's pkg/config does), layered under strategy thresholds from an
// optional YAML file (the way rustyeddy-trader's config package loads
// simulation parameters). YAML values override the compiled-in
// defaults; anything the YAML file omits keeps its default.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pivotbreak/engine/internal/breakout"
	"github.com/pivotbreak/engine/internal/exits"
	"github.com/pivotbreak/engine/internal/filters"
	"github.com/pivotbreak/engine/internal/position"
	"github.com/pivotbreak/engine/internal/scheduler"
)

// Config is the engine's full runtime configuration: secrets and
// per-environment values from the process environment, trading
// thresholds from an optional YAML strategy file.
type Config struct {
	PolygonAPIKey         string `yaml:"-"`
	SignalStackWebhookURL string `yaml:"-"`

	WatchlistPath string `yaml:"watchlist_path"`
	BarDataDir    string `yaml:"bar_data_dir"`

	// MLModelPath optionally points at a trained mlscore.Model; empty
	// leaves the supplemented secondary scorer disabled (SPEC_FULL.md §5).
	MLModelPath string `yaml:"ml_model_path"`

	Scheduler scheduler.Config  `yaml:"scheduler"`
	Breakout  breakout.Config   `yaml:"breakout"`
	Filters   filters.Config    `yaml:"filters"`
	GapFilter filters.GapConfig `yaml:"gap_filter"`
	Position  position.Config   `yaml:"position"`
	Exits     exits.Config      `yaml:"exits"`
}

// Defaults returns every component's stated defaults, the base layer
// before environment and YAML overrides are applied.
func Defaults() Config {
	return Config{
		Scheduler: scheduler.DefaultConfig(),
		Breakout:  breakout.DefaultConfig(),
		Filters:   filters.DefaultConfig(),
		GapFilter: filters.DefaultGapConfig(),
		Position:  position.DefaultConfig(),
		Exits:     exits.DefaultConfig(),
	}
}

// Load builds the layered configuration: defaults, then .env /
// process-environment values, then (if yamlPath is non-empty) the YAML
// strategy file on top.
func Load(yamlPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	cfg.PolygonAPIKey = getEnv("POLYGON_API_KEY", "")
	cfg.SignalStackWebhookURL = getEnv("SIGNALSTACK_WEBHOOK_URL", "")
	cfg.WatchlistPath = getEnv("WATCHLIST_PATH", "")
	cfg.BarDataDir = getEnv("BAR_DATA_DIR", "./data")

	if equity := os.Getenv("ACCOUNT_EQUITY"); equity != "" {
		v, err := strconv.ParseFloat(equity, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ACCOUNT_EQUITY: %w", err)
		}
		cfg.Scheduler.InitialAccountEquity = v
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", yamlPath, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load cannot sanely default, mirroring the
// teacher's fail-fast pkg/config.Validate.
func (c *Config) Validate() error {
	if c.PolygonAPIKey == "" {
		return fmt.Errorf("POLYGON_API_KEY is required")
	}
	if c.Scheduler.InitialAccountEquity <= 0 {
		return fmt.Errorf("account equity must be > 0")
	}
	if c.WatchlistPath == "" {
		return fmt.Errorf("WATCHLIST_PATH is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
