// Package config handles configuration for the client asset cache,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the client-side asset cache.
//
// Fields:
//   - CacheDir: root directory of the sharded on-disk cache.
//   - RegistryPath: path of the JSON registry document.
//   - MaxCacheAge: entries older than this are evicted first.
//   - MaxCacheBytes: total size cap enforced after the age pass.
//   - DownloadTimeout: bound on a single asset transfer.
type Config struct {
	CacheDir        string
	RegistryPath    string
	MaxCacheAge     time.Duration
	MaxCacheBytes   int64
	DownloadTimeout time.Duration
}

// LoadDefaults populates Config with sensible defaults.
func (c *Config) LoadDefaults() {
	c.CacheDir = "asset-cache"
	c.RegistryPath = "asset-cache/registry.json"
	c.MaxCacheAge = 30 * 24 * time.Hour
	c.MaxCacheBytes = 512 << 20
	c.DownloadTimeout = 60 * time.Second
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
