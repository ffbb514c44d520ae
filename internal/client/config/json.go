package config

import (
	"encoding/json"
	"os"

	"github.com/prtfnx/ttrpg-system-sub001/internal/flagx"
	"github.com/prtfnx/ttrpg-system-sub001/internal/timex"
)

// JsonConfig is the DTO for the optional JSON config file. Interval fields
// accept "72h"-style strings via timex.Duration.
type JsonConfig struct {
	CacheDir        string         `json:"cache_dir"`
	RegistryPath    string         `json:"registry_path"`
	MaxCacheAge     timex.Duration `json:"max_cache_age"`
	MaxCacheBytes   int64          `json:"max_cache_bytes"`
	DownloadTimeout timex.Duration `json:"download_timeout"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags, if any. Keys missing from the file keep their current
// values.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.CacheDir != "" {
		config.CacheDir = c.CacheDir
	}
	if c.RegistryPath != "" {
		config.RegistryPath = c.RegistryPath
	}
	if c.MaxCacheAge.Duration != 0 {
		config.MaxCacheAge = c.MaxCacheAge.Duration
	}
	if c.MaxCacheBytes != 0 {
		config.MaxCacheBytes = c.MaxCacheBytes
	}
	if c.DownloadTimeout.Duration != 0 {
		config.DownloadTimeout = c.DownloadTimeout.Duration
	}
}
