// Package cache keeps a bounded, self-healing local copy of session
// assets keyed by asset id. A durable JSON registry document tracks what
// is on disk; a single background worker drains the download queue so at
// most one transfer runs at a time.
package cache

import "time"

// Entry describes one cached asset. An entry counts as cached only while
// its local file still exists; a dangling entry is treated as a miss and
// dropped, never as an error.
type Entry struct {
	AssetID     string    `json:"asset_id"`
	Filename    string    `json:"filename"`
	LocalPath   string    `json:"local_path"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentHash string    `json:"content_hash"`
	CachedAt    time.Time `json:"cached_at"`
	OriginURL   string    `json:"origin_url,omitempty"`
}

// DownloadTask is one queued fetch. Tasks whose URL has expired by the
// time the worker reaches them are discarded, not attempted.
type DownloadTask struct {
	AssetID   string
	URL       string
	Filename  string
	ExpiresAt time.Time
	QueuedAt  time.Time
}

// Stats is a snapshot of the cache counters.
type Stats struct {
	Hits           int64
	Misses         int64
	SelfHeals      int64
	Downloads      int64
	Failures       int64
	ExpiredSkipped int64
	BytesFetched   int64
}

// Events is the single notification contract toward the embedding
// application (UI layers subscribe here; the cache knows nothing about
// their object shapes). Callbacks run on the worker goroutine and must
// not block.
type Events struct {
	OnDownloaded func(entry *Entry)
	OnFailed     func(assetID string, err error)
}

// EvictReport summarizes one eviction pass.
type EvictReport struct {
	RemovedByAge  int
	RemovedBySize int
	BytesFreed    int64
	Errors        int
}
