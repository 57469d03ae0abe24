package config

import "time"

// Config holds runtime settings for the Dicerita CLI.
//
// Durations are time.Duration values; sizes are bytes.
type Config struct {
	ServerBaseURL       string
	DatabasePath        string
	OnlineCheckInterval time.Duration
	SyncSettleDelay     time.Duration
	RefreshInterval     time.Duration
	MaxCacheBytes       int64
	StoryMaxAge         time.Duration
	ImageEvictAge       time.Duration
	PreloadConcurrency  int

	// MetricsAddr enables a Prometheus endpoint when non-empty,
	// e.g. "127.0.0.1:9190".
	MetricsAddr string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "https://story-api.dicoding.dev/v1"
	c.DatabasePath = "dicerita.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncSettleDelay = 1 * time.Second
	c.RefreshInterval = 5 * time.Minute
	c.MaxCacheBytes = 50 * 1024 * 1024
	c.StoryMaxAge = 7 * 24 * time.Hour
	c.ImageEvictAge = 14 * 24 * time.Hour
	c.PreloadConcurrency = 2
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
