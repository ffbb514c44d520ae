// Package models defines server-side data models for the asset core.
package models

import "time"

// AssetRecord is the durable row describing one confirmed asset. It is
// created only by a successful upload confirmation, never speculatively.
type AssetRecord struct {
	// AssetID is the truncated content hash used as the primary key.
	AssetID string
	// RemoteKey is the object-storage key of the blob.
	RemoteKey string
	// Filename is the display name supplied by the uploader.
	Filename string
	// ContentType is the declared MIME type.
	ContentType string
	// SizeBytes is the declared payload size.
	SizeBytes int64
	// ContentHash is the full hash, unique across the registry and used
	// for exact-duplicate detection.
	ContentHash string
	// UploaderID identifies who uploaded the content.
	UploaderID string
	// SessionID scopes the asset to a session; empty for shared assets.
	SessionID string

	CreatedAt      time.Time
	LastAccessedAt time.Time
}
