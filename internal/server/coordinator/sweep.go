package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prtfnx/ttrpg-system-sub001/internal/common"
	"github.com/prtfnx/ttrpg-system-sub001/internal/server/models"
)

// SweepStalePendingUploads removes pending entries older than maxAge that
// were never confirmed, bounding memory growth from abandoned uploads. The
// removal is a compare-and-remove per asset id, so it races safely with a
// late confirmation: at most one of the two wins the entry.
func (c *Coordinator) SweepStalePendingUploads(maxAge time.Duration) int {
	cutoff := c.now().Add(-maxAge)
	removed := 0

	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		for id, p := range s.entries {
			if p.CreatedAt.Before(cutoff) {
				delete(s.entries, id)
				removed++
			}
		}
		s.mu.Unlock()
	}

	if removed > 0 {
		c.logger.Info(context.Background(), "swept stale pending uploads", "removed", removed)
	}
	return removed
}

// ReconcilePhantomAssets compares durable registry rows against object
// store reality and removes rows whose backing object is missing. Only
// rows older than maxAge are considered, which keeps in-flight uploads out
// of the pass. The pass is best-effort: individual item failures are
// counted and skipped.
func (c *Coordinator) ReconcilePhantomAssets(ctx context.Context, sessionID string, maxAge time.Duration) (*models.ReconcileReport, error) {
	repo := c.repos.Assets(c.db)

	rows, err := repo.ListOlderThan(ctx, sessionID, c.now().Add(-maxAge))
	if err != nil {
		return nil, fmt.Errorf("%w: listing assets: %w", common.ErrBackendUnavailable, err)
	}

	report := &models.ReconcileReport{}
	for _, rec := range rows {
		report.Checked++

		exists, err := c.store.ObjectExists(ctx, rec.RemoteKey)
		if err != nil {
			c.logger.Warn(ctx, "reconcile: existence check failed",
				"asset_id", rec.AssetID, "remote_key", rec.RemoteKey, "error", err.Error())
			report.Errors++
			continue
		}
		if exists {
			continue
		}

		report.Missing++
		if err := repo.Delete(ctx, rec.AssetID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				// Already gone; nothing left to remove.
				report.Removed++
				continue
			}
			c.logger.Warn(ctx, "reconcile: row removal failed", "asset_id", rec.AssetID, "error", err.Error())
			report.Errors++
			continue
		}
		c.logger.Info(ctx, "reconcile: removed phantom asset", "asset_id", rec.AssetID, "remote_key", rec.RemoteKey)
		report.Removed++
	}

	c.logger.Info(ctx, "reconcile pass finished",
		"checked", report.Checked, "missing", report.Missing,
		"removed", report.Removed, "errors", report.Errors)

	return report, nil
}
