// Package config loads runtime configuration for the Dicerita CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the story API
//	-d string   path to the local SQLite database file
//	-i int      online status check interval (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "5m" or integer nanoseconds:
//
//	{
//	  "server_base_url": "https://story-api.dicoding.dev/v1",
//	  "database_path": "dicerita.db",
//	  "online_check_interval": "3s",
//	  "sync_settle_delay": "1s",
//	  "refresh_interval": "5m",
//	  "max_cache_bytes": 52428800,
//	  "story_max_age": "168h",
//	  "image_evict_age": "336h",
//	  "preload_concurrency": 2
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
