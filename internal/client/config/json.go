package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rizkyab/dicerita/internal/flagx"
	"github.com/rizkyab/dicerita/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerBaseURL       string         `json:"server_base_url"`
	DatabasePath        string         `json:"database_path"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	SyncSettleDelay     timex.Duration `json:"sync_settle_delay"`
	RefreshInterval     timex.Duration `json:"refresh_interval"`
	MaxCacheBytes       int64          `json:"max_cache_bytes"`
	StoryMaxAge         timex.Duration `json:"story_max_age"`
	ImageEvictAge       timex.Duration `json:"image_evict_age"`
	PreloadConcurrency  int            `json:"preload_concurrency"`
	MetricsAddr         string         `json:"metrics_addr"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The file path comes from the -c or -config flags via
// flagx.JsonConfigFlags(); when neither is set the function is a no-op.
// Only fields present in the JSON override the current values. Read or
// unmarshal errors panic (caller should recover if desired).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerBaseURL != "" {
		cfg.ServerBaseURL = jc.ServerBaseURL
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.SyncSettleDelay.Duration != 0 {
		cfg.SyncSettleDelay = time.Duration(jc.SyncSettleDelay.Duration)
	}
	if jc.RefreshInterval.Duration != 0 {
		cfg.RefreshInterval = time.Duration(jc.RefreshInterval.Duration)
	}
	if jc.MaxCacheBytes != 0 {
		cfg.MaxCacheBytes = jc.MaxCacheBytes
	}
	if jc.StoryMaxAge.Duration != 0 {
		cfg.StoryMaxAge = time.Duration(jc.StoryMaxAge.Duration)
	}
	if jc.ImageEvictAge.Duration != 0 {
		cfg.ImageEvictAge = time.Duration(jc.ImageEvictAge.Duration)
	}
	if jc.PreloadConcurrency != 0 {
		cfg.PreloadConcurrency = jc.PreloadConcurrency
	}
	if jc.MetricsAddr != "" {
		cfg.MetricsAddr = jc.MetricsAddr
	}
}
