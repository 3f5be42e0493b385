// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds every runtime setting.
type Config struct {
	DBPath  string
	Addr    string
	LogFile string

	// NotifySchedule is a standard five-field cron spec for the daily rule run.
	NotifySchedule string
	Timezone       string

	RecommendTop  int
	WeatherMaxAge time.Duration
}

// Load reads envFile (when set and present) and then the ODEJE_* environment
// variables, falling back to defaults. It does not validate.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	} else {
		// A missing .env is fine.
		_ = godotenv.Load()
	}

	cfg := &Config{
		DBPath:         getenv("ODEJE_DB", "odeje.sqlite3"),
		Addr:           getenv("ODEJE_ADDR", ":8080"),
		LogFile:        os.Getenv("ODEJE_LOG"),
		NotifySchedule: getenv("ODEJE_NOTIFY_SCHEDULE", "0 7 * * *"),
		Timezone:       getenv("ODEJE_TIMEZONE", "Local"),
	}

	top, err := strconv.Atoi(getenv("ODEJE_RECOMMEND_TOP", "3"))
	if err != nil {
		return nil, fmt.Errorf("parsing ODEJE_RECOMMEND_TOP: %w", err)
	}
	cfg.RecommendTop = top

	cfg.WeatherMaxAge, err = time.ParseDuration(getenv("ODEJE_WEATHER_MAX_AGE", "6h"))
	if err != nil {
		return nil, fmt.Errorf("parsing ODEJE_WEATHER_MAX_AGE: %w", err)
	}

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("database path is required")
	}
	if c.Addr == "" {
		return errors.New("listen address is required")
	}
	if _, err := cron.ParseStandard(c.NotifySchedule); err != nil {
		return fmt.Errorf("invalid notify schedule %q: %w", c.NotifySchedule, err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.RecommendTop <= 0 {
		return fmt.Errorf("recommendation count must be positive, got %d", c.RecommendTop)
	}
	if c.WeatherMaxAge < 0 {
		return fmt.Errorf("weather max age must not be negative, got %s", c.WeatherMaxAge)
	}
	return nil
}

// Location returns the time zone the scheduler runs in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
