package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"

	"blastbot/internal/storage"
)

func TestCacheSampleEmpty(t *testing.T) {
	c := newPostCache(&fakeRepo{}, testLogger())
	if _, ok := c.Sample(); ok {
		t.Fatalf("Sample returned a post from an empty cache")
	}

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, ok := c.Sample(); ok {
		t.Fatalf("Sample returned a post after refreshing zero active posts")
	}
}

func TestCacheSampleReturnsActivePost(t *testing.T) {
	repo := &fakeRepo{posts: []storage.Post{
		{ID: 1, Kind: storage.MediaText, Body: "a"},
		{ID: 2, Kind: storage.MediaPhoto, MediaRef: "ref", Body: "b"},
	}}
	c := newPostCache(repo, testLogger())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	seen := map[int64]bool{}
	for i := 0; i < 100; i++ {
		p, ok := c.Sample()
		if !ok {
			t.Fatalf("Sample empty after refresh")
		}
		if p.ID != 1 && p.ID != 2 {
			t.Fatalf("Sample returned unknown post %d", p.ID)
		}
		seen[p.ID] = true
	}
	if len(seen) != 2 {
		t.Fatalf("100 samples over 2 posts hit only %d of them", len(seen))
	}
}

func TestCacheRefreshFailureKeepsSnapshot(t *testing.T) {
	repo := &fakeRepo{posts: []storage.Post{{ID: 1, Kind: storage.MediaText, Body: "a"}}}
	c := newPostCache(repo, testLogger())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	repo.mu.Lock()
	repo.listErr = errors.New("db down")
	repo.mu.Unlock()

	if err := c.Refresh(context.Background()); err == nil {
		t.Fatalf("Refresh succeeded against a failing repo")
	}
	if p, ok := c.Sample(); !ok || p.ID != 1 {
		t.Fatalf("previous snapshot lost after failed refresh")
	}
}

func TestCacheConcurrentSampleAndRefresh(t *testing.T) {
	repo := &fakeRepo{posts: []storage.Post{{ID: 1, Kind: storage.MediaText, Body: "a"}}}
	c := newPostCache(repo, testLogger())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if _, ok := c.Sample(); !ok {
					t.Error("Sample observed an empty snapshot mid-refresh")
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		_ = c.Refresh(context.Background())
	}
	wg.Wait()
}
