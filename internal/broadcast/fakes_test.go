package broadcast

import (
	"context"
	"sync"
	"sync/atomic"

	logx "blastbot/pkg/logx"

	"blastbot/internal/storage"
	"blastbot/internal/transport"
)

type fakeRepo struct {
	mu         sync.Mutex
	posts      []storage.Post
	listErr    error
	recipients []int64

	listCalls atomic.Int32
	flushed   []map[int64]int64
	flushErr  error
}

func (r *fakeRepo) ListActivePosts(ctx context.Context) ([]storage.Post, error) {
	r.listCalls.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]storage.Post(nil), r.posts...), nil
}

func (r *fakeRepo) ListUnblockedRecipients(ctx context.Context, excluding []int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int64
next:
	for _, id := range r.recipients {
		for _, ex := range excluding {
			if id == ex {
				continue next
			}
		}
		out = append(out, id)
	}
	return out, nil
}

func (r *fakeRepo) BatchIncrementSent(ctx context.Context, deltas map[int64]int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flushErr != nil {
		return r.flushErr
	}
	cp := make(map[int64]int64, len(deltas))
	for k, v := range deltas {
		cp[k] = v
	}
	r.flushed = append(r.flushed, cp)
	return nil
}

func (r *fakeRepo) flushedTotal(postID int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.flushed {
		n += m[postID]
	}
	return n
}

// fakeDeliverer returns a configurable outcome and signals each send.
type fakeDeliverer struct {
	mu      sync.Mutex
	outcome transport.Outcome
	err     error

	calls atomic.Int32
	sent  chan int64 // receives the chat ID of each send
}

func newFakeDeliverer(outcome transport.Outcome) *fakeDeliverer {
	return &fakeDeliverer{outcome: outcome, sent: make(chan int64, 64)}
}

func (d *fakeDeliverer) SendPost(ctx context.Context, chatID int64, p storage.Post) (transport.Outcome, error) {
	d.calls.Add(1)
	select {
	case d.sent <- chatID:
	default:
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outcome, d.err
}

func testLogger() logx.Logger { return logx.Nop() }
