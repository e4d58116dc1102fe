package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/good-listener/backend/vision/internal/grpcclient"
)

type fakeIndexer struct {
	mu      sync.Mutex
	batches [][]grpcclient.IndexItem
	err     error
	flushed chan struct{}
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{flushed: make(chan struct{}, 16)}
}

func (f *fakeIndexer) IndexBatch(_ context.Context, items []grpcclient.IndexItem) (int, error) {
	f.mu.Lock()
	f.batches = append(f.batches, items)
	f.mu.Unlock()
	f.flushed <- struct{}{}
	if f.err != nil {
		return 0, f.err
	}
	return len(items), nil
}

func (f *fakeIndexer) total() (batches, items int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.batches {
		items += len(b)
	}
	return len(f.batches), items
}

func TestBatcherFlushesOnSize(t *testing.T) {
	idx := newFakeIndexer()
	b := NewBatcher(idx, 2, time.Hour)

	b.Add(grpcclient.IndexItem{ID: "1"})
	b.Add(grpcclient.IndexItem{ID: "2"})
	if b.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 after a full batch", b.Pending())
	}
	b.Stop()

	if batches, items := idx.total(); batches != 1 || items != 2 {
		t.Errorf("got %d batches / %d items, want 1 / 2", batches, items)
	}
}

func TestBatcherFlushesAfterDelay(t *testing.T) {
	idx := newFakeIndexer()
	b := NewBatcher(idx, 10, 20*time.Millisecond)
	defer b.Stop()

	b.Add(grpcclient.IndexItem{ID: "1"})
	select {
	case <-idx.flushed:
	case <-time.After(2 * time.Second):
		t.Fatal("batch was not flushed after the delay")
	}
}

func TestBatcherStopFlushesAndDropsLateItems(t *testing.T) {
	idx := newFakeIndexer()
	b := NewBatcher(idx, 10, time.Hour)

	for range 3 {
		b.Add(grpcclient.IndexItem{})
	}
	b.Stop()
	b.Add(grpcclient.IndexItem{})

	if _, items := idx.total(); items != 3 {
		t.Errorf("indexed %d items, want 3", items)
	}
	if b.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 after Stop", b.Pending())
	}
}

func TestBatcherIndexerError(t *testing.T) {
	idx := newFakeIndexer()
	idx.err = errors.New("sidecar down")
	b := NewBatcher(idx, 1, time.Hour)

	b.Add(grpcclient.IndexItem{})
	b.Stop()

	if batches, _ := idx.total(); batches != 1 {
		t.Errorf("batches = %d, want 1", batches)
	}
}

func TestNewBatcherDefaults(t *testing.T) {
	b := NewBatcher(newFakeIndexer(), 0, 0)
	if b.maxSize != DefaultBatchSize || b.flushDelay != DefaultFlushDelay {
		t.Errorf("defaults = %d / %v", b.maxSize, b.flushDelay)
	}
}
