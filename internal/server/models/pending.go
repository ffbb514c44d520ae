package models

import "time"

// UploadStatus tracks the in-memory state of an issued upload slot.
type UploadStatus string

const (
	StatusAwaitingUpload UploadStatus = "awaiting_upload"
	StatusUploaded       UploadStatus = "uploaded"
	StatusFailed         UploadStatus = "failed"
)

// PendingUpload is the ephemeral record of an issued upload slot. It lives
// only in coordinator memory: created when a slot is issued, destroyed by
// confirmation or by the staleness sweep. It never reaches durable storage.
type PendingUpload struct {
	AssetID     string
	RemoteKey   string
	UploaderID  string
	SessionID   string
	Filename    string
	SizeBytes   int64
	ContentType string
	ContentHash string
	CreatedAt   time.Time
	Status      UploadStatus
}
