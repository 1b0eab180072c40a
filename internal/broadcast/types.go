package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	logx "blastbot/pkg/logx"

	"blastbot/internal/storage"
	"blastbot/internal/transport"
)

type Config struct {
	// DefaultInterval is the initial process-wide delivery period.
	DefaultInterval time.Duration
	// RefreshInterval is the post-cache refresh period (default 300s).
	RefreshInterval time.Duration
	// FlushInterval is the sent-counter flush period (default 60s).
	FlushInterval time.Duration
	// RatePerSec caps outbound sends across all recipients; 0 disables the cap.
	RatePerSec int
	// AdminIDs are never subscribed to the broadcast stream.
	AdminIDs []int64
}

// Repository is the narrow slice of the content repository the engine needs.
// storage.Store satisfies it.
type Repository interface {
	ListActivePosts(ctx context.Context) ([]storage.Post, error)
	ListUnblockedRecipients(ctx context.Context, excluding []int64) ([]int64, error)
	BatchIncrementSent(ctx context.Context, deltas map[int64]int64) error
}

type recipientJob struct {
	entry    cron.EntryID
	interval time.Duration
}

type Service struct {
	cfg       Config
	repo      Repository
	deliverer transport.Deliverer
	log       logx.Logger

	cache   *postCache
	counter *sentCounter
	limiter *rate.Limiter

	// mu guards jobs, defaultInterval and cron entry mutation.
	mu              sync.Mutex
	cron            *cron.Cron
	jobs            map[int64]recipientJob
	defaultInterval time.Duration
	started         bool

	runCtx    context.Context
	runCancel context.CancelFunc
}
