// Package objectstore is the only seam through which the asset core talks
// to the external blob backend. Everything else depends on the Store
// interface, which keeps the coordinator testable without a live network.
package objectstore

import (
	"context"
	"time"
)

// ObjectInfo describes one remote object returned by a prefix listing.
type ObjectInfo struct {
	Key       string
	SizeBytes int64
}

// Store exposes exactly the four operations the core needs from an
// S3-compatible backend.
type Store interface {
	// GenerateUploadURL issues a short-lived presigned PUT URL for key.
	GenerateUploadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)

	// GenerateDownloadURL issues a presigned GET URL for key.
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)

	// ObjectExists reports whether key is present in the backend.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// ListObjects returns the objects under prefix.
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
