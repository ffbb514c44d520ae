package assets

import (
	"context"
	"time"

	"github.com/prtfnx/ttrpg-system-sub001/internal/server/models"
)

// Repository describes durable storage for confirmed asset records.
type Repository interface {
	// Create inserts a new record. Returns common.ErrDuplicateContent when
	// the content hash or asset id is already registered.
	Create(ctx context.Context, rec *models.AssetRecord) error

	// GetByID returns the record for an asset id, or common.ErrNotFound.
	GetByID(ctx context.Context, assetID string) (*models.AssetRecord, error)

	// GetByHash returns the record for a full content hash, or
	// common.ErrNotFound. This is the dedup lookup.
	GetByHash(ctx context.Context, contentHash string) (*models.AssetRecord, error)

	// TouchLastAccessed bumps last_accessed_at for an asset id.
	TouchLastAccessed(ctx context.Context, assetID string) error

	// Delete removes the record for an asset id.
	Delete(ctx context.Context, assetID string) error

	// ListOlderThan returns records created before cutoff, optionally
	// scoped to one session (empty sessionID means all sessions).
	ListOlderThan(ctx context.Context, sessionID string, cutoff time.Time) ([]*models.AssetRecord, error)

	// CountBySession returns the number of assets scoped to a session.
	CountBySession(ctx context.Context, sessionID string) (int64, error)
}
