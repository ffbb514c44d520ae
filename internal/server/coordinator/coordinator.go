// Package coordinator orchestrates the two-phase asset upload/download
// protocol: slot issuance, confirmation, staleness sweeping and
// phantom-asset reconciliation. The durable registry write happens only at
// confirmation, so an upload that never completes leaves no trace beyond
// an in-memory pending entry that the sweep eventually removes.
package coordinator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prtfnx/ttrpg-system-sub001/internal/common"
	"github.com/prtfnx/ttrpg-system-sub001/internal/dbx"
	"github.com/prtfnx/ttrpg-system-sub001/internal/fingerprint"
	"github.com/prtfnx/ttrpg-system-sub001/internal/logging"
	"github.com/prtfnx/ttrpg-system-sub001/internal/server/config"
	"github.com/prtfnx/ttrpg-system-sub001/internal/server/models"
	"github.com/prtfnx/ttrpg-system-sub001/internal/server/objectstore"
	"github.com/prtfnx/ttrpg-system-sub001/internal/server/permissions"
	"github.com/prtfnx/ttrpg-system-sub001/internal/server/ratelimit"
	"github.com/prtfnx/ttrpg-system-sub001/internal/server/repositories/repomanager"
)

// Rate-limited operation kinds.
const (
	opUpload   = "upload"
	opDownload = "download"
)

const pendingShardCount = 16

type pendingShard struct {
	mu      sync.Mutex
	entries map[string]*models.PendingUpload
}

// Coordinator is the server-side asset service. All state is instance
// state; two coordinators never share pending uploads, permissions or
// rate-limit windows.
type Coordinator struct {
	db      *sql.DB
	repos   repomanager.RepositoryManager
	store   objectstore.Store
	perms   *permissions.Manager
	limiter *ratelimit.Limiter
	cfg     *config.Config
	logger  logging.Logger

	shards [pendingShardCount]pendingShard

	// now is swappable in tests.
	now func() time.Time
}

func New(db *sql.DB, repos repomanager.RepositoryManager, store objectstore.Store,
	perms *permissions.Manager, limiter *ratelimit.Limiter,
	cfg *config.Config, logger logging.Logger) *Coordinator {

	c := &Coordinator{
		db:      db,
		repos:   repos,
		store:   store,
		perms:   perms,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
	for i := range c.shards {
		c.shards[i].entries = make(map[string]*models.PendingUpload)
	}
	return c
}

// UploadRequest mirrors the inbound session-protocol upload message.
type UploadRequest struct {
	UserID      string
	Username    string
	SessionID   string
	Filename    string
	SizeBytes   int64
	ContentType string
	ContentHash string
}

// UploadSlot is the outcome of a granted upload request. When
// AlreadyExists is set the content was deduplicated: AssetID names the
// existing record and no URL is issued.
type UploadSlot struct {
	AssetID       string
	URL           string
	ExpiresIn     time.Duration
	AlreadyExists bool
}

// DownloadRequest mirrors the inbound session-protocol download message.
type DownloadRequest struct {
	UserID    string
	Username  string
	SessionID string
	AssetID   string
}

// DownloadSlot carries the presigned read URL plus basic metadata.
type DownloadSlot struct {
	AssetID     string
	URL         string
	ExpiresIn   time.Duration
	Filename    string
	ContentType string
	SizeBytes   int64
}

func (c *Coordinator) shardFor(assetID string) *pendingShard {
	h := fnv.New32a()
	h.Write([]byte(assetID))
	return &c.shards[h.Sum32()%pendingShardCount]
}

func (c *Coordinator) validateUpload(req *UploadRequest) error {
	if req.UserID == "" {
		return fmt.Errorf("%w: missing user id", common.ErrValidation)
	}
	if !c.cfg.ExtensionAllowed(req.Filename) {
		return fmt.Errorf("%w: extension of %q is not allowed", common.ErrValidation, req.Filename)
	}
	if !c.cfg.ContentTypeAllowed(req.ContentType) {
		return fmt.Errorf("%w: content type %q is not allowed", common.ErrValidation, req.ContentType)
	}
	if req.SizeBytes <= 0 {
		return fmt.Errorf("%w: size must be positive", common.ErrValidation)
	}
	if req.SizeBytes > c.cfg.MaxUploadBytes {
		return fmt.Errorf("%w: size %d exceeds limit %d", common.ErrValidation, req.SizeBytes, c.cfg.MaxUploadBytes)
	}
	if !fingerprint.ValidHash(req.ContentHash) {
		return fmt.Errorf("%w: malformed content hash", common.ErrValidation)
	}
	return nil
}

// buildRemoteKey scopes the object key by session and asset id. The random
// suffix keeps a re-issued slot from colliding with a half-written object
// left by an abandoned transfer.
func buildRemoteKey(sessionID, assetID, filename string) string {
	scope := "shared"
	if sessionID != "" {
		scope = "sessions/" + sessionID
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/assets/%s-%s%s", scope, assetID, uuid.New(), ext)
}

// RequestUploadSlot validates and authorizes an upload request, then
// either short-circuits on already-registered content or issues a
// presigned PUT URL and records a pending upload. Nothing durable is
// written here.
func (c *Coordinator) RequestUploadSlot(ctx context.Context, req *UploadRequest) (*UploadSlot, error) {
	if err := c.validateUpload(req); err != nil {
		return nil, err
	}

	if !c.perms.Can(req.SessionID, req.UserID, permissions.CapUpload) {
		return nil, fmt.Errorf("%w: user %s may not upload to session %s", common.ErrPermissionDenied, req.UserID, req.SessionID)
	}

	if !c.limiter.CheckAndRecord(req.UserID, opUpload, c.cfg.UploadLimitPerHour) {
		return nil, fmt.Errorf("%w: upload limit reached for user %s", common.ErrRateLimited, req.UserID)
	}

	repo := c.repos.Assets(c.db)

	// Dedup short-circuit: byte-identical content is never uploaded twice,
	// even when the new request belongs to a different session.
	existing, err := repo.GetByHash(ctx, req.ContentHash)
	if err == nil {
		c.logger.Info(ctx, "dedup hit", "asset_id", existing.AssetID, "user", req.UserID, "filename", req.Filename)
		return &UploadSlot{AssetID: existing.AssetID, AlreadyExists: true}, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("%w: dedup lookup: %w", common.ErrBackendUnavailable, err)
	}

	assetID, err := fingerprint.AssetID(req.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	// The truncated id is the primary key; distinct content colliding on
	// it cannot be registered and is refused outright.
	if byID, err := repo.GetByID(ctx, assetID); err == nil {
		if byID.ContentHash != req.ContentHash {
			return nil, fmt.Errorf("%w: asset id %s already maps to different content", common.ErrValidation, assetID)
		}
		return &UploadSlot{AssetID: assetID, AlreadyExists: true}, nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("%w: id lookup: %w", common.ErrBackendUnavailable, err)
	}

	if err := c.checkPendingConflict(assetID, req); err != nil {
		return nil, err
	}

	remoteKey := buildRemoteKey(req.SessionID, assetID, req.Filename)

	url, err := c.store.GenerateUploadURL(ctx, remoteKey, c.cfg.UploadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("issuing upload url: %w", err)
	}

	pending := &models.PendingUpload{
		AssetID:     assetID,
		RemoteKey:   remoteKey,
		UploaderID:  req.UserID,
		SessionID:   req.SessionID,
		Filename:    req.Filename,
		SizeBytes:   req.SizeBytes,
		ContentType: req.ContentType,
		ContentHash: req.ContentHash,
		CreatedAt:   c.now(),
		Status:      models.StatusAwaitingUpload,
	}
	if err := c.putPending(pending, req); err != nil {
		return nil, err
	}

	c.logger.Info(ctx, "upload slot issued",
		"asset_id", assetID, "user", req.UserID, "session", req.SessionID,
		"filename", req.Filename, "size", req.SizeBytes)

	return &UploadSlot{AssetID: assetID, URL: url, ExpiresIn: c.cfg.UploadURLExpiry}, nil
}

// checkPendingConflict rejects a slot request when another uploader is
// already mid-transfer for the same asset id. The same uploader retrying
// the same content is allowed through and later replaces its own entry.
func (c *Coordinator) checkPendingConflict(assetID string, req *UploadRequest) error {
	s := c.shardFor(assetID)
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.entries[assetID]
	if !ok {
		return nil
	}
	if p.UploaderID == req.UserID && p.ContentHash == req.ContentHash {
		return nil
	}
	return fmt.Errorf("%w: upload already in progress for asset %s", common.ErrValidation, assetID)
}

func (c *Coordinator) putPending(p *models.PendingUpload, req *UploadRequest) error {
	s := c.shardFor(p.AssetID)
	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check under the lock: a conflicting entry may have appeared while
	// the presign call ran.
	if prev, ok := s.entries[p.AssetID]; ok {
		if prev.UploaderID != req.UserID || prev.ContentHash != req.ContentHash {
			return fmt.Errorf("%w: upload already in progress for asset %s", common.ErrValidation, p.AssetID)
		}
	}
	s.entries[p.AssetID] = p
	return nil
}

// takePending removes and returns the pending entry for assetID, if present.
func (c *Coordinator) takePending(assetID string) (*models.PendingUpload, bool) {
	s := c.shardFor(assetID)
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.entries[assetID]
	if ok {
		delete(s.entries, assetID)
	}
	return p, ok
}

// restorePending puts an entry back unless something else claimed the slot
// meanwhile. Used when confirmation fails transiently so a retried confirm
// can still succeed.
func (c *Coordinator) restorePending(p *models.PendingUpload) {
	s := c.shardFor(p.AssetID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[p.AssetID]; !ok {
		s.entries[p.AssetID] = p
	}
}

// ConfirmUpload resolves a pending upload. Only the requesting uploader
// may confirm. On success it performs the single durable write for the
// asset; on failure it discards the pending entry with no durable trace.
// Confirming an unknown or already-resolved asset id is a benign no-op
// returning (false, nil).
func (c *Coordinator) ConfirmUpload(ctx context.Context, assetID, userID string, success bool, uploadErr string) (bool, error) {
	s := c.shardFor(assetID)
	s.mu.Lock()
	p, ok := s.entries[assetID]
	if !ok {
		s.mu.Unlock()
		c.logger.Debug(ctx, "confirm for unknown or already-resolved upload", "asset_id", assetID, "user", userID)
		return false, nil
	}
	if p.UploaderID != userID {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: only the uploader may confirm asset %s", common.ErrPermissionDenied, assetID)
	}
	// Claim the entry: the staleness sweep and concurrent confirms both
	// compare-and-remove on this key, so exactly one outcome wins.
	delete(s.entries, assetID)
	s.mu.Unlock()

	if !success {
		p.Status = models.StatusFailed
		c.logger.Info(ctx, "upload failed, pending entry discarded",
			"asset_id", assetID, "user", userID, "error", uploadErr)
		return true, nil
	}
	p.Status = models.StatusUploaded

	if c.cfg.VerifyUploads {
		exists, err := c.store.ObjectExists(ctx, p.RemoteKey)
		if err != nil {
			c.restorePending(p)
			return false, fmt.Errorf("verifying upload: %w", err)
		}
		if !exists {
			c.logger.Warn(ctx, "confirmed upload has no backing object", "asset_id", assetID, "remote_key", p.RemoteKey)
			return false, fmt.Errorf("%w: object %s missing after upload", common.ErrNotFound, p.RemoteKey)
		}
	}

	now := c.now()
	rec := &models.AssetRecord{
		AssetID:        p.AssetID,
		RemoteKey:      p.RemoteKey,
		Filename:       p.Filename,
		ContentType:    p.ContentType,
		SizeBytes:      p.SizeBytes,
		ContentHash:    p.ContentHash,
		UploaderID:     p.UploaderID,
		SessionID:      p.SessionID,
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := c.repos.Assets(tx)
		if existing, err := repo.GetByHash(ctx, p.ContentHash); err == nil {
			// A concurrent confirmation registered identical content first.
			c.logger.Info(ctx, "content already registered during confirm", "asset_id", existing.AssetID)
			return nil
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}
		return repo.Create(ctx, rec)
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateContent) {
			return true, nil
		}
		c.restorePending(p)
		return false, fmt.Errorf("%w: persisting asset record: %w", common.ErrBackendUnavailable, err)
	}

	c.logger.Info(ctx, "upload confirmed", "asset_id", assetID, "user", userID, "size", p.SizeBytes)
	return true, nil
}

// RequestDownloadSlot authorizes a download and returns a presigned read
// URL with basic metadata. The download rate limit is deliberately more
// generous than the upload one.
func (c *Coordinator) RequestDownloadSlot(ctx context.Context, req *DownloadRequest) (*DownloadSlot, error) {
	if req.AssetID == "" {
		return nil, fmt.Errorf("%w: missing asset id", common.ErrValidation)
	}

	if !c.perms.Can(req.SessionID, req.UserID, permissions.CapDownload) {
		return nil, fmt.Errorf("%w: user %s may not download from session %s", common.ErrPermissionDenied, req.UserID, req.SessionID)
	}

	if !c.limiter.CheckAndRecord(req.UserID, opDownload, c.cfg.DownloadLimitPerHour) {
		return nil, fmt.Errorf("%w: download limit reached for user %s", common.ErrRateLimited, req.UserID)
	}

	repo := c.repos.Assets(c.db)

	rec, err := repo.GetByID(ctx, req.AssetID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: asset %s", common.ErrNotFound, req.AssetID)
		}
		return nil, fmt.Errorf("%w: asset lookup: %w", common.ErrBackendUnavailable, err)
	}

	url, err := c.store.GenerateDownloadURL(ctx, rec.RemoteKey, c.cfg.DownloadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("issuing download url: %w", err)
	}

	if err := repo.TouchLastAccessed(ctx, rec.AssetID); err != nil {
		c.logger.Warn(ctx, "failed to touch last_accessed_at", "asset_id", rec.AssetID, "error", err.Error())
	}

	return &DownloadSlot{
		AssetID:     rec.AssetID,
		URL:         url,
		ExpiresIn:   c.cfg.DownloadURLExpiry,
		Filename:    rec.Filename,
		ContentType: rec.ContentType,
		SizeBytes:   rec.SizeBytes,
	}, nil
}

// PendingCount reports the number of outstanding upload slots.
func (c *Coordinator) PendingCount() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}
