package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/good-listener/backend/vision/internal/grpcclient"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/trace"
)

// Indexer receives batches of frame text.
type Indexer interface {
	IndexBatch(ctx context.Context, items []grpcclient.IndexItem) (int, error)
}

// Batcher accumulates index items and flushes them by size or after a quiet period.
type Batcher struct {
	indexer    Indexer
	maxSize    int
	flushDelay time.Duration

	mu      sync.Mutex
	items   []grpcclient.IndexItem
	timer   *time.Timer
	stopped bool
	wg      sync.WaitGroup
}

// NewBatcher creates an index batcher.
func NewBatcher(indexer Indexer, maxSize int, flushDelay time.Duration) *Batcher {
	if maxSize <= 0 {
		maxSize = DefaultBatchSize
	}
	if flushDelay <= 0 {
		flushDelay = DefaultFlushDelay
	}
	return &Batcher{
		indexer:    indexer,
		maxSize:    maxSize,
		flushDelay: flushDelay,
		items:      make([]grpcclient.IndexItem, 0, maxSize),
	}
}

// Add queues an item. Items added after Stop are dropped.
func (b *Batcher) Add(item grpcclient.IndexItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}

	b.items = append(b.items, item)
	if len(b.items) >= b.maxSize {
		b.flushLocked()
		return
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.flushDelay, b.Flush)
	} else {
		b.timer.Reset(b.flushDelay)
	}
}

// Pending returns the number of queued items.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Flush sends pending items now.
func (b *Batcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

func (b *Batcher) flushLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.items) == 0 {
		return
	}
	items := b.items
	b.items = make([]grpcclient.IndexItem, 0, b.maxSize)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, span := trace.StartSpan(context.Background(), "index_batch_flush")
		defer span.End()
		span.SetAttr("count", len(items))

		log := trace.Logger(ctx)
		accepted, err := b.indexer.IndexBatch(ctx, items)
		if err != nil {
			span.SetAttr("error", err.Error())
			log.Warn("index batch failed", "error", err, "count", len(items))
			return
		}
		log.Debug("index batch stored", "accepted", accepted, "submitted", len(items))
	}()
}

// Stop flushes remaining items and waits for in-flight batches.
func (b *Batcher) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.flushLocked()
	b.mu.Unlock()
	b.wg.Wait()
}
