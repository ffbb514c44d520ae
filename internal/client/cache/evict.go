package cache

import (
	"context"
	"os"
	"sort"
	"time"
)

// removeEntryLocked deletes the backing file and, only once that succeeds
// (or the file is already gone), drops the registry row. Callers hold c.mu.
func (c *Cache) removeEntryLocked(e *Entry, report *EvictReport) bool {
	if err := os.Remove(e.LocalPath); err != nil && !os.IsNotExist(err) {
		c.logger.Warn(context.Background(), "eviction: file removal failed",
			"asset_id", e.AssetID, "path", e.LocalPath, "error", err.Error())
		report.Errors++
		return false
	}
	delete(c.entries, e.AssetID)
	report.BytesFreed += e.SizeBytes
	return true
}

// EvictOldOrOversized enforces the cache bounds in two passes: entries
// older than maxAge go first; if the total size still exceeds maxBytes,
// remaining entries are removed oldest-cached-first until under the cap.
func (c *Cache) EvictOldOrOversized(maxAge time.Duration, maxBytes int64) (*EvictReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := &EvictReport{}
	cutoff := c.now().Add(-maxAge)

	for _, e := range c.entries {
		if e.CachedAt.Before(cutoff) {
			if c.removeEntryLocked(e, report) {
				report.RemovedByAge++
			}
		}
	}

	var total int64
	remaining := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		total += e.SizeBytes
		remaining = append(remaining, e)
	}

	if total > maxBytes {
		sort.Slice(remaining, func(i, j int) bool {
			return remaining[i].CachedAt.Before(remaining[j].CachedAt)
		})
		for _, e := range remaining {
			if total <= maxBytes {
				break
			}
			if c.removeEntryLocked(e, report) {
				report.RemovedBySize++
				total -= e.SizeBytes
			}
		}
	}

	if err := c.saveRegistryLocked(); err != nil {
		return report, err
	}

	c.logger.Info(context.Background(), "eviction pass finished",
		"removed_by_age", report.RemovedByAge, "removed_by_size", report.RemovedBySize,
		"bytes_freed", report.BytesFreed, "errors", report.Errors)

	return report, nil
}
