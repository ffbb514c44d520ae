package config

import (
	"flag"
	"os"
	"time"

	"github.com/prtfnx/ttrpg-system-sub001/internal/flagx"
)

// parseFlags populates selected client Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-C string   cache directory
//	-r string   registry document path
//	-a int      max cache age, days
//	-s int      max cache size, MiB
//	-t int      download timeout, seconds
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-C", "-r", "-a", "-s", "-t"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)

	fs.StringVar(&config.CacheDir, "C", config.CacheDir, "cache directory")
	fs.StringVar(&config.RegistryPath, "r", config.RegistryPath, "registry document path")

	maxAgeDays := fs.Int("a", int(config.MaxCacheAge.Hours()/24), "max cache age (days)")
	maxSizeMiB := fs.Int64("s", config.MaxCacheBytes>>20, "max cache size (MiB)")
	timeoutSec := fs.Int("t", int(config.DownloadTimeout.Seconds()), "download timeout (seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.MaxCacheAge = time.Duration(*maxAgeDays) * 24 * time.Hour
	config.MaxCacheBytes = *maxSizeMiB << 20
	config.DownloadTimeout = time.Duration(*timeoutSec) * time.Second
}
