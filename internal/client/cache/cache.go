package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/prtfnx/ttrpg-system-sub001/internal/client/config"
	"github.com/prtfnx/ttrpg-system-sub001/internal/fingerprint"
	"github.com/prtfnx/ttrpg-system-sub001/internal/logging"
)

// chunkSize bounds how much of a transfer is held in memory at once.
const chunkSize = 32 * 1024

// Cache is the client-side asset cache. Construct with New, then Start to
// launch the download worker.
type Cache struct {
	cfg    *config.Config
	logger logging.Logger
	events Events
	client *http.Client

	// now is swappable in tests.
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*Entry
	stats   Stats

	qmu   sync.Mutex
	queue []DownloadTask
	wake  chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg *config.Config, logger logging.Logger) (*Cache, error) {
	if err := os.MkdirAll(cfg.CacheDir, 0o770); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	c := &Cache{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: cfg.DownloadTimeout},
		now:    time.Now,
		wake:   make(chan struct{}, 1),
	}
	c.entries = c.loadRegistry()

	return c, nil
}

// SetEvents installs the notification callbacks. Call before Start.
func (c *Cache) SetEvents(ev Events) {
	c.events = ev
}

// IsCached reports whether the asset is present locally. An entry whose
// file vanished out-of-band is dropped from the registry and reported as
// a miss.
func (c *Cache) IsCached(assetID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[assetID]
	if !ok {
		c.stats.Misses++
		return false
	}

	if _, err := os.Stat(e.LocalPath); err != nil {
		delete(c.entries, assetID)
		c.stats.SelfHeals++
		c.stats.Misses++
		if saveErr := c.saveRegistryLocked(); saveErr != nil {
			c.logger.Warn(context.Background(), "registry rewrite after self-heal failed", "error", saveErr.Error())
		}
		c.logger.Debug(context.Background(), "cached file vanished, entry dropped",
			"asset_id", assetID, "path", e.LocalPath)
		return false
	}

	c.stats.Hits++
	return true
}

// Get returns a copy of the registry entry for an asset, if present. It
// does not verify the file on disk; use IsCached first.
func (c *Cache) Get(assetID string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[assetID]
	if !ok {
		return nil, false
	}
	copied := *e
	return &copied, true
}

// sanitizeFilename keeps cache file names portable.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "asset"
	}
	return b.String()
}

// PathFor returns the deterministic local path for an asset, sharded by
// the first two characters of the id to bound per-directory fan-out.
func (c *Cache) PathFor(assetID, filename string) string {
	shard := assetID
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(c.cfg.CacheDir, shard, assetID+"_"+sanitizeFilename(filename))
}

// writeStream copies r to dest via a temporary file, hashing the bytes as
// they pass through. The destination only appears once the copy finished.
func (c *Cache) writeStream(dest string, r io.Reader) (hash string, written int64, err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o770); err != nil {
		return "", 0, fmt.Errorf("creating shard dir: %w", err)
	}

	tmp := dest + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return "", 0, fmt.Errorf("creating %s: %w", tmp, err)
	}

	h := sha256.New()
	buf := make([]byte, chunkSize)
	written, err = io.CopyBuffer(io.MultiWriter(f, h), r, buf)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return "", 0, fmt.Errorf("writing %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return "", 0, fmt.Errorf("finalizing %s: %w", dest, err)
	}

	return hex.EncodeToString(h.Sum(nil)), written, nil
}

// DownloadAsset streams the asset from url into the sharded cache path and
// records it in the registry. A declared/received size mismatch is a
// warning, not a failure. Filesystem and network failures surface as a
// failed download outcome with counters bumped, never as a panic.
func (c *Cache) DownloadAsset(ctx context.Context, assetID, url, filename string, expectedSize int64) (*Entry, error) {
	entry, err := c.downloadAsset(ctx, assetID, url, filename, expectedSize)
	if err != nil {
		c.mu.Lock()
		c.stats.Failures++
		c.mu.Unlock()
		if c.events.OnFailed != nil {
			c.events.OnFailed(assetID, err)
		}
		return nil, err
	}
	if c.events.OnDownloaded != nil {
		c.events.OnDownloaded(entry)
	}
	return entry, nil
}

func (c *Cache) downloadAsset(ctx context.Context, assetID, url, filename string, expectedSize int64) (*Entry, error) {
	dest := c.PathFor(assetID, filename)

	var hash string
	var written int64

	backoff := retry.WithMaxRetries(2, retry.NewExponential(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("fetching asset: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("fetching asset: status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("fetching asset: status %d", resp.StatusCode)
		}

		hash, written, err = c.writeStream(dest, resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", assetID, err)
	}

	if expectedSize > 0 && written != expectedSize {
		c.logger.Warn(ctx, "downloaded size differs from declared size",
			"asset_id", assetID, "declared", expectedSize, "received", written)
	}
	if fingerprint.ValidHash(hash) && !strings.HasPrefix(hash, assetID) {
		c.logger.Warn(ctx, "downloaded content hash does not match asset id",
			"asset_id", assetID, "hash", hash)
	}

	entry := &Entry{
		AssetID:     assetID,
		Filename:    filename,
		LocalPath:   dest,
		SizeBytes:   written,
		ContentHash: hash,
		CachedAt:    c.now(),
		OriginURL:   url,
	}

	c.mu.Lock()
	c.entries[assetID] = entry
	c.stats.Downloads++
	c.stats.BytesFetched += written
	saveErr := c.saveRegistryLocked()
	c.mu.Unlock()
	if saveErr != nil {
		c.logger.Warn(ctx, "registry rewrite after download failed", "error", saveErr.Error())
	}

	c.logger.Debug(ctx, "asset cached", "asset_id", assetID, "bytes", written)
	return entry, nil
}

// RegisterLocal copies locally produced content into the cache addressing
// scheme so future lookups hit without a round trip. When assetID is
// empty it is derived from the content.
func (c *Cache) RegisterLocal(assetID, sourcePath, filename string) (*Entry, error) {
	if assetID == "" {
		hash, _, err := fingerprint.HashFile(sourcePath)
		if err != nil {
			return nil, err
		}
		assetID, err = fingerprint.AssetID(hash)
		if err != nil {
			return nil, err
		}
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", sourcePath, err)
	}
	defer src.Close()

	dest := c.PathFor(assetID, filename)
	hash, written, err := c.writeStream(dest, src)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		AssetID:     assetID,
		Filename:    filename,
		LocalPath:   dest,
		SizeBytes:   written,
		ContentHash: hash,
		CachedAt:    c.now(),
	}

	c.mu.Lock()
	c.entries[assetID] = entry
	saveErr := c.saveRegistryLocked()
	c.mu.Unlock()
	if saveErr != nil {
		c.logger.Warn(context.Background(), "registry rewrite after local register failed", "error", saveErr.Error())
	}

	return entry, nil
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Len returns the number of registry entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
