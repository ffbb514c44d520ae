package config

import (
	"encoding/json"
	"os"

	"github.com/prtfnx/ttrpg-system-sub001/internal/flagx"
	"github.com/prtfnx/ttrpg-system-sub001/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON config
// files; its set fields are overlaid onto the runtime Config.
type JsonConfig struct {
	DatabaseDSN string `json:"database_dsn"`

	S3AccessKey    string         `json:"s3_access_key"`
	S3SecretKey    string         `json:"s3_secret_key"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint"`
	BackendTimeout timex.Duration `json:"backend_timeout"`

	MaxUploadBytes      int64    `json:"max_upload_bytes"`
	AllowedExtensions   []string `json:"allowed_extensions"`
	AllowedContentTypes []string `json:"allowed_content_types"`

	UploadLimitPerHour   int `json:"upload_limit_per_hour"`
	DownloadLimitPerHour int `json:"download_limit_per_hour"`

	UploadURLExpiry   timex.Duration `json:"upload_url_expiry"`
	DownloadURLExpiry timex.Duration `json:"download_url_expiry"`

	PendingMaxAge timex.Duration `json:"pending_max_age"`
	SweepInterval timex.Duration `json:"sweep_interval"`

	ReconcileInterval timex.Duration `json:"reconcile_interval"`
	ReconcileMaxAge   timex.Duration `json:"reconcile_max_age"`

	VerifyUploads      *bool `json:"verify_uploads"`
	PermissiveSessions *bool `json:"permissive_sessions"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c/-config flags; when
// absent, no JSON file is loaded. Keys missing from the file keep their
// current (default) values. An unreadable or invalid file panics: starting
// with half a config is worse than not starting.
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

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.S3AccessKey != "" {
		config.S3AccessKey = c.S3AccessKey
	}
	if c.S3SecretKey != "" {
		config.S3SecretKey = c.S3SecretKey
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
	if c.BackendTimeout.Duration != 0 {
		config.BackendTimeout = c.BackendTimeout.Duration
	}
	if c.MaxUploadBytes != 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	if len(c.AllowedExtensions) > 0 {
		config.AllowedExtensions = c.AllowedExtensions
	}
	if len(c.AllowedContentTypes) > 0 {
		config.AllowedContentTypes = c.AllowedContentTypes
	}
	if c.UploadLimitPerHour != 0 {
		config.UploadLimitPerHour = c.UploadLimitPerHour
	}
	if c.DownloadLimitPerHour != 0 {
		config.DownloadLimitPerHour = c.DownloadLimitPerHour
	}
	if c.UploadURLExpiry.Duration != 0 {
		config.UploadURLExpiry = c.UploadURLExpiry.Duration
	}
	if c.DownloadURLExpiry.Duration != 0 {
		config.DownloadURLExpiry = c.DownloadURLExpiry.Duration
	}
	if c.PendingMaxAge.Duration != 0 {
		config.PendingMaxAge = c.PendingMaxAge.Duration
	}
	if c.SweepInterval.Duration != 0 {
		config.SweepInterval = c.SweepInterval.Duration
	}
	if c.ReconcileInterval.Duration != 0 {
		config.ReconcileInterval = c.ReconcileInterval.Duration
	}
	if c.ReconcileMaxAge.Duration != 0 {
		config.ReconcileMaxAge = c.ReconcileMaxAge.Duration
	}
	if c.VerifyUploads != nil {
		config.VerifyUploads = *c.VerifyUploads
	}
	if c.PermissiveSessions != nil {
		config.PermissiveSessions = *c.PermissiveSessions
	}
}
