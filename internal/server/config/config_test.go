package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, int64(25<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 50, cfg.UploadLimitPerHour)
	assert.Equal(t, 300, cfg.DownloadLimitPerHour)
	assert.Equal(t, 15*time.Minute, cfg.UploadURLExpiry)
	assert.Equal(t, time.Hour, cfg.DownloadURLExpiry)
	assert.Equal(t, time.Hour, cfg.PendingMaxAge)
	assert.True(t, cfg.VerifyUploads)
	assert.False(t, cfg.PermissiveSessions)
	assert.NotEmpty(t, cfg.AllowedExtensions)
	assert.NotEmpty(t, cfg.AllowedContentTypes)
}

func TestExtensionAllowed(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	tests := []struct {
		filename string
		want     bool
	}{
		{"map.png", true},
		{"MAP.PNG", true},
		{"token.jpeg", true},
		{"rules.pdf", true},
		{"theme.mp3", true},
		{"macro.exe", false},
		{"script.sh", false},
		{"noextension", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.ExtensionAllowed(tt.filename))
		})
	}
}

func TestContentTypeAllowed(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	tests := []struct {
		contentType string
		want        bool
	}{
		{"image/png", true},
		{"IMAGE/PNG", true},
		{"application/json; charset=utf-8", true},
		{" audio/ogg ", true},
		{"application/x-msdownload", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.ContentTypeAllowed(tt.contentType))
		})
	}
}

func TestJsonConfigOverlay(t *testing.T) {
	raw := `{
		"database_dsn": "postgres://app@db:5432/assets",
		"s3_bucket": "prod-assets",
		"backend_timeout": "30s",
		"max_upload_bytes": 1048576,
		"upload_url_expiry": "5m",
		"verify_uploads": false,
		"permissive_sessions": true
	}`

	jc := &JsonConfig{}
	require.NoError(t, json.Unmarshal([]byte(raw), jc))

	assert.Equal(t, "postgres://app@db:5432/assets", jc.DatabaseDSN)
	assert.Equal(t, "prod-assets", jc.S3Bucket)
	assert.Equal(t, 30*time.Second, jc.BackendTimeout.Duration)
	assert.Equal(t, int64(1<<20), jc.MaxUploadBytes)
	assert.Equal(t, 5*time.Minute, jc.UploadURLExpiry.Duration)
	require.NotNil(t, jc.VerifyUploads)
	assert.False(t, *jc.VerifyUploads)
	require.NotNil(t, jc.PermissiveSessions)
	assert.True(t, *jc.PermissiveSessions)
}

func TestJsonConfigOmittedBoolsStayNil(t *testing.T) {
	jc := &JsonConfig{}
	require.NoError(t, json.Unmarshal([]byte(`{"s3_bucket":"b"}`), jc))

	assert.Nil(t, jc.VerifyUploads, "absent key must not override the default")
	assert.Nil(t, jc.PermissiveSessions)
}
