package cache

import (
	"context"
	"time"
)

// EnqueueDownload appends a task to the in-process FIFO. It never blocks
// the calling thread: the queue is unbounded and the worker is only
// nudged, not waited on.
func (c *Cache) EnqueueDownload(assetID, url, filename string, expiresIn time.Duration) {
	now := c.now()
	task := DownloadTask{
		AssetID:   assetID,
		URL:       url,
		Filename:  filename,
		ExpiresAt: now.Add(expiresIn),
		QueuedAt:  now,
	}

	c.qmu.Lock()
	c.queue = append(c.queue, task)
	c.qmu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// QueueLen reports the number of tasks waiting for the worker.
func (c *Cache) QueueLen() int {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	return len(c.queue)
}

func (c *Cache) popTask() (DownloadTask, bool) {
	c.qmu.Lock()
	defer c.qmu.Unlock()

	if len(c.queue) == 0 {
		return DownloadTask{}, false
	}
	task := c.queue[0]
	c.queue = c.queue[1:]
	return task, true
}

// Start launches the single background download worker. Transfers run one
// at a time to bound bandwidth and disk contention.
func (c *Cache) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.runWorker(ctx)
}

// Close stops the worker and waits for an in-flight transfer to finish or
// abort. Queued tasks are dropped; their presigned URLs would expire
// anyway.
func (c *Cache) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

func (c *Cache) runWorker(ctx context.Context) {
	defer c.wg.Done()

	for {
		task, ok := c.popTask()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-c.wake:
				continue
			}
		}

		if ctx.Err() != nil {
			return
		}

		if c.now().After(task.ExpiresAt) {
			c.mu.Lock()
			c.stats.ExpiredSkipped++
			c.mu.Unlock()
			c.logger.Debug(ctx, "skipping expired download task",
				"asset_id", task.AssetID, "queued_at", task.QueuedAt)
			continue
		}

		if c.IsCached(task.AssetID) {
			c.logger.Debug(ctx, "asset already cached, task dropped", "asset_id", task.AssetID)
			continue
		}

		if _, err := c.DownloadAsset(ctx, task.AssetID, task.URL, task.Filename, 0); err != nil {
			c.logger.Error(ctx, "background download failed",
				"asset_id", task.AssetID, "error", err.Error())
		}
	}
}
