package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, "asset-cache", cfg.CacheDir)
	assert.Equal(t, "asset-cache/registry.json", cfg.RegistryPath)
	assert.Equal(t, 30*24*time.Hour, cfg.MaxCacheAge)
	assert.Equal(t, int64(512<<20), cfg.MaxCacheBytes)
	assert.Equal(t, 60*time.Second, cfg.DownloadTimeout)
}
