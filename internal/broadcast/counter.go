package broadcast

import (
	"context"
	"sync"

	logx "blastbot/pkg/logx"
)

// sentCounter accumulates per-post delivery counts in memory so delivery
// ticks never touch the repository's write path directly.
type sentCounter struct {
	mu      sync.Mutex
	pending map[int64]int64
}

func newSentCounter() *sentCounter {
	return &sentCounter{pending: map[int64]int64{}}
}

func (c *sentCounter) Record(postID int64) {
	c.mu.Lock()
	c.pending[postID]++
	c.mu.Unlock()
}

// take swaps out the whole pending map.
func (c *sentCounter) take() map[int64]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return nil
	}
	taken := c.pending
	c.pending = map[int64]int64{}
	return taken
}

// Flush writes all pending increments as one batched update. If the write
// fails the taken increments are dropped: losing at most one flush interval
// of counts is preferred over a retry queue growing during an outage.
func (c *sentCounter) Flush(ctx context.Context, repo Repository, log logx.Logger) error {
	taken := c.take()
	if len(taken) == 0 {
		return nil
	}
	if err := repo.BatchIncrementSent(ctx, taken); err != nil {
		log.Error("sent counter flush failed; increments dropped",
			logx.Int("posts", len(taken)), logx.Err(err))
		return err
	}
	log.Debug("sent counters flushed", logx.Int("posts", len(taken)))
	return nil
}

func (c *sentCounter) pendingFor(postID int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[postID]
}

func (c *sentCounter) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
