package config

import (
	"flag"
	"os"

	"github.com/prtfnx/ttrpg-system-sub001/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-m int      max upload size, MiB
//	-U int      upload slots per user per hour
//	-D int      download slots per user per hour
//	-V          verify object existence before confirming uploads
//	-P          permissive sessions (testing only)
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-u", "-p", "-b", "-g", "-e", "-m", "-U", "-D", "-V", "-P"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	maxUploadMiB := fs.Int64("m", config.MaxUploadBytes>>20, "max upload size (MiB)")
	fs.IntVar(&config.UploadLimitPerHour, "U", config.UploadLimitPerHour, "upload slots per user per hour")
	fs.IntVar(&config.DownloadLimitPerHour, "D", config.DownloadLimitPerHour, "download slots per user per hour")
	fs.BoolVar(&config.VerifyUploads, "V", config.VerifyUploads, "verify uploads against the object store")
	fs.BoolVar(&config.PermissiveSessions, "P", config.PermissiveSessions, "permissive sessions (testing only)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.MaxUploadBytes = *maxUploadMiB << 20
}
