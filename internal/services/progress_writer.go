package services

import (
	"context"
	"sync"
	"time"

	"github.com/SAP-F-2025/toeic-import-service/internal/cache"
)

const progressWriteTimeout = 2 * time.Second

// progressWriter copies session snapshots into the progress cache off the
// notification path. Snapshots that arrive while a write is in flight
// collapse into the newest one.
type progressWriter struct {
	cache  *cache.ProgressCache
	logger *ServiceLogger

	mu      sync.Mutex
	pending *cache.ImportProgress
	running bool
	stopped bool
	wg      sync.WaitGroup
}

func newProgressWriter(c *cache.ProgressCache, logger *ServiceLogger) *progressWriter {
	return &progressWriter{cache: c, logger: logger}
}

// push queues the snapshot and returns without waiting for redis
func (w *progressWriter) push(state SessionState) {
	progress := progressFromState(state)

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.pending = &progress
	start := !w.running
	if start {
		w.running = true
		w.wg.Add(1)
	}
	w.mu.Unlock()

	if start {
		go w.drain()
	}
}

func (w *progressWriter) drain() {
	defer w.wg.Done()
	for {
		w.mu.Lock()
		progress := w.pending
		w.pending = nil
		if progress == nil || w.stopped {
			w.running = false
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), progressWriteTimeout)
		if err := w.cache.Put(ctx, *progress); err != nil {
			w.logger.Warn(ctx, "failed to cache progress", "session_id", progress.SessionID, "error", err)
		}
		cancel()
	}
}

// stop drops queued snapshots and waits for the write in flight
func (w *progressWriter) stop() {
	w.mu.Lock()
	w.stopped = true
	w.pending = nil
	w.mu.Unlock()
	w.wg.Wait()
}

