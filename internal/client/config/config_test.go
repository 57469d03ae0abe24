package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "https://story-api.dicoding.dev/v1", c.ServerBaseURL)
	assert.Equal(t, "dicerita.db", c.DatabasePath)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 1*time.Second, c.SyncSettleDelay)
	assert.Equal(t, 5*time.Minute, c.RefreshInterval)
	assert.EqualValues(t, 50*1024*1024, c.MaxCacheBytes)
	assert.Equal(t, 7*24*time.Hour, c.StoryMaxAge)
	assert.Equal(t, 14*24*time.Hour, c.ImageEvictAge)
	assert.Equal(t, 2, c.PreloadConcurrency)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "https://story-api.dicoding.dev/v1", cfg.ServerBaseURL)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
}
