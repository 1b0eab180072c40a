package broadcast

import (
	"context"
	"math/rand"
	"sync/atomic"

	logx "blastbot/pkg/logx"

	"blastbot/internal/storage"
)

// postCache holds an immutable snapshot of the currently active posts.
// Refresh swaps the whole snapshot; Sample never blocks on a refresh.
type postCache struct {
	repo Repository
	log  logx.Logger

	snap atomic.Value // []storage.Post

	// refreshing dedupes out-of-band refreshes triggered by empty samples.
	refreshing atomic.Bool
}

func newPostCache(repo Repository, log logx.Logger) *postCache {
	c := &postCache{repo: repo, log: log}
	c.snap.Store([]storage.Post(nil))
	return c
}

// Refresh fetches all active posts and atomically replaces the snapshot.
// On failure the previous snapshot stays visible.
func (c *postCache) Refresh(ctx context.Context) error {
	posts, err := c.repo.ListActivePosts(ctx)
	if err != nil {
		c.log.Error("post cache refresh failed", logx.Err(err))
		return err
	}
	c.snap.Store(posts)
	c.log.Debug("post cache refreshed", logx.Int("posts", len(posts)))
	return nil
}

// RefreshAsync triggers one background refresh unless one is already in
// flight, so a burst of ticks against an empty cache issues a single query.
func (c *postCache) RefreshAsync(ctx context.Context) {
	if !c.refreshing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.refreshing.Store(false)
		_ = c.Refresh(ctx)
	}()
}

// Sample returns one post chosen uniformly at random, or false when the
// snapshot is empty. Safe under a concurrent Refresh.
func (c *postCache) Sample() (storage.Post, bool) {
	posts, _ := c.snap.Load().([]storage.Post)
	if len(posts) == 0 {
		return storage.Post{}, false
	}
	return posts[rand.Intn(len(posts))], true
}

func (c *postCache) Len() int {
	posts, _ := c.snap.Load().([]storage.Post)
	return len(posts)
}
