// Package config loads nflfeed settings from a TOML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// Feed configures the GameCenter HTTP client.
type Feed struct {
	BaseURL        string `toml:"base_url" env:"NFLFEED_FEED_URL"`
	RequestTimeout int    `toml:"request_timeout" env:"NFLFEED_FEED_TIMEOUT"` // seconds
}

// Poll configures the live poller.
type Poll struct {
	IntervalSeconds     int `toml:"interval_seconds" env:"NFLFEED_POLL_INTERVAL"`
	Workers             int `toml:"workers" env:"NFLFEED_POLL_WORKERS"`
	FetchTimeoutSeconds int `toml:"fetch_timeout_seconds" env:"NFLFEED_FETCH_TIMEOUT"`
	MaxAttempts         int `toml:"max_attempts" env:"NFLFEED_FETCH_ATTEMPTS"`
	LookaheadMinutes    int `toml:"lookahead_minutes"`
	MaxGameHours        int `toml:"max_game_hours"`
	ScheduleRefreshHrs  int `toml:"schedule_refresh_hours"`
}

// Redis configures the optional update stream.
type Redis struct {
	Addr     string `toml:"addr" env:"NFLFEED_REDIS_ADDR"`
	Password string `toml:"password" env:"NFLFEED_REDIS_PASSWORD"`
	DB       int    `toml:"db" env:"NFLFEED_REDIS_DB"`
	Stream   string `toml:"stream" env:"NFLFEED_REDIS_STREAM"`
	MaxLen   int64  `toml:"max_len"`
}

// Config is the full application configuration.
type Config struct {
	DBPath       string `toml:"db_path" env:"NFLFEED_DB"`
	ScheduleFile string `toml:"schedule_file" env:"NFLFEED_SCHEDULE"`
	LogLevel     string `toml:"log_level" env:"NFLFEED_LOG_LEVEL"`
	LogFormat    string `toml:"log_format" env:"NFLFEED_LOG_FORMAT"`

	Feed  Feed  `toml:"feed"`
	Poll  Poll  `toml:"poll"`
	Redis Redis `toml:"redis"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:       "~/.nflfeed/games.db",
		ScheduleFile: "~/.nflfeed/schedule.json",
		LogLevel:     "info",
		LogFormat:    "console",
		Feed: Feed{
			BaseURL:        "http://www.nfl.com/liveupdate/game-center",
			RequestTimeout: 10,
		},
		Poll: Poll{
			IntervalSeconds:     15,
			Workers:             8,
			FetchTimeoutSeconds: 20,
			MaxAttempts:         3,
			LookaheadMinutes:    15,
			MaxGameHours:        6,
			ScheduleRefreshHrs:  12,
		},
		Redis: Redis{
			Stream: "nflfeed:updates",
			MaxLen: 10000,
		},
	}
}

// DefaultConfigPath is where Load looks when no path is given.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/nflfeed/config.toml")
}

// Load reads the TOML file at path (or the default location), applies
// environment overrides, then normalizes and validates. A missing file is not
// an error; the defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	resolved, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	var err error
	if c.DBPath, err = expandPath(strings.TrimSpace(c.DBPath)); err != nil {
		return fmt.Errorf("db_path: %w", err)
	}
	if c.ScheduleFile, err = expandPath(strings.TrimSpace(c.ScheduleFile)); err != nil {
		return fmt.Errorf("schedule_file: %w", err)
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.Feed.BaseURL = strings.TrimRight(strings.TrimSpace(c.Feed.BaseURL), "/")
	c.Redis.Addr = strings.TrimSpace(c.Redis.Addr)
	if c.Redis.Stream == "" {
		c.Redis.Stream = Default().Redis.Stream
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format: unsupported value %q", c.LogFormat)
	}
	if c.Poll.IntervalSeconds < 1 {
		return fmt.Errorf("poll.interval_seconds must be at least 1, got %d", c.Poll.IntervalSeconds)
	}
	if c.Poll.Workers < 1 {
		return fmt.Errorf("poll.workers must be at least 1, got %d", c.Poll.Workers)
	}
	if c.Poll.MaxAttempts < 1 {
		return fmt.Errorf("poll.max_attempts must be at least 1, got %d", c.Poll.MaxAttempts)
	}
	if c.Poll.FetchTimeoutSeconds < 1 || c.Feed.RequestTimeout < 1 {
		return errors.New("poll.fetch_timeout_seconds and feed.request_timeout must be positive")
	}
	if c.Poll.MaxGameHours < 1 || c.Poll.LookaheadMinutes < 0 || c.Poll.ScheduleRefreshHrs < 1 {
		return errors.New("poll window settings must be positive")
	}
	return nil
}

// Interval is the poll period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// FetchTimeout bounds one game fetch including retries.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Poll.FetchTimeoutSeconds) * time.Second
}

// RequestTimeout bounds one HTTP request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Feed.RequestTimeout) * time.Second
}

// Lookahead is how early before kickoff a game becomes active.
func (c *Config) Lookahead() time.Duration {
	return time.Duration(c.Poll.LookaheadMinutes) * time.Minute
}

// MaxGameTime is how long after kickoff an unfinished game stays active.
func (c *Config) MaxGameTime() time.Duration {
	return time.Duration(c.Poll.MaxGameHours) * time.Hour
}

// ScheduleRefresh is how long a loaded schedule stays fresh.
func (c *Config) ScheduleRefresh() time.Duration {
	return time.Duration(c.Poll.ScheduleRefreshHrs) * time.Hour
}

func expandPath(p string) (string, error) {
	if p == "" || !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if p == "~" {
		return home, nil
	}
	if p[1] == '/' || p[1] == '\\' {
		return filepath.Join(home, p[2:]), nil
	}
	return p, nil
}
