package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestCounterConcurrentRecordSums(t *testing.T) {
	c := newSentCounter()
	repo := &fakeRepo{}

	const workers = 16
	const perWorker = 250
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				c.Record(42)
			}
		}()
	}
	wg.Wait()

	if err := c.Flush(context.Background(), repo, testLogger()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := repo.flushedTotal(42); got != workers*perWorker {
		t.Fatalf("flushed total = %d, want %d", got, workers*perWorker)
	}
	if got := c.size(); got != 0 {
		t.Fatalf("pending size = %d after flush, want 0", got)
	}
}

func TestCounterFlushEmptyIsNoop(t *testing.T) {
	c := newSentCounter()
	repo := &fakeRepo{}

	if err := c.Flush(context.Background(), repo, testLogger()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	repo.mu.Lock()
	n := len(repo.flushed)
	repo.mu.Unlock()
	if n != 0 {
		t.Fatalf("empty flush issued %d writes, want 0", n)
	}
}

func TestCounterFlushFailureDropsIncrements(t *testing.T) {
	c := newSentCounter()
	repo := &fakeRepo{flushErr: errors.New("db down")}

	c.Record(1)
	c.Record(1)
	if err := c.Flush(context.Background(), repo, testLogger()); err == nil {
		t.Fatalf("Flush succeeded against a failing repo")
	}

	// The taken increments are dropped, not requeued.
	if got := c.size(); got != 0 {
		t.Fatalf("pending size = %d after failed flush, want 0", got)
	}

	repo.mu.Lock()
	repo.flushErr = nil
	repo.mu.Unlock()
	if err := c.Flush(context.Background(), repo, testLogger()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := repo.flushedTotal(1); got != 0 {
		t.Fatalf("dropped increments resurfaced: flushed total = %d", got)
	}
}

func TestCounterFlushBoundary(t *testing.T) {
	c := newSentCounter()
	repo := &fakeRepo{}

	c.Record(5)
	c.Record(5)
	c.Record(6)
	if err := c.Flush(context.Background(), repo, testLogger()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// Records after a flush land in the next batch only.
	c.Record(5)
	if err := c.Flush(context.Background(), repo, testLogger()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if got := repo.flushedTotal(5); got != 3 {
		t.Fatalf("flushed total for 5 = %d, want 3", got)
	}
	if got := repo.flushedTotal(6); got != 1 {
		t.Fatalf("flushed total for 6 = %d, want 1", got)
	}
}
