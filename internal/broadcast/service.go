package broadcast

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	logx "blastbot/pkg/logx"

	"blastbot/internal/transport"
)

const (
	defaultRefreshInterval = 300 * time.Second
	defaultFlushInterval   = 60 * time.Second
)

func New(cfg Config, repo Repository, deliverer transport.Deliverer, log logx.Logger) *Service {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.DefaultInterval <= 0 {
		cfg.DefaultInterval = 30 * time.Second
	}

	s := &Service{
		cfg:             cfg,
		repo:            repo,
		deliverer:       deliverer,
		log:             log,
		cache:           newPostCache(repo, log),
		counter:         newSentCounter(),
		jobs:            map[int64]recipientJob{},
		defaultInterval: cfg.DefaultInterval,
	}
	if cfg.RatePerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}

	cl := cronLogger{log: log}
	// Recover is the outermost wrapper: a panicking tick must never take the
	// runner down. SkipIfStillRunning serializes firings per entry, so a slow
	// delivery delays that recipient's next tick instead of overlapping it.
	s.cron = cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	return s
}

// Start performs the eager cache refresh, registers the two background
// timers, restores recipient jobs from the repository, and starts the runner.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	runCtx := s.runCtx
	s.mu.Unlock()

	// Eager refresh so the first ticks have content to sample from. An
	// unreachable repository is not fatal; the refresh timer will catch up.
	_ = s.cache.Refresh(runCtx)

	s.cron.Schedule(cron.Every(s.cfg.RefreshInterval), cron.FuncJob(func() {
		_ = s.cache.Refresh(runCtx)
	}))
	s.cron.Schedule(cron.Every(s.cfg.FlushInterval), cron.FuncJob(func() {
		_ = s.counter.Flush(runCtx, s.repo, s.log)
	}))

	s.restore(runCtx)

	s.cron.Start()
	s.log.Info("broadcast engine started",
		logx.Duration("default_interval", s.DefaultInterval()),
		logx.Duration("refresh_interval", s.cfg.RefreshInterval),
		logx.Duration("flush_interval", s.cfg.FlushInterval),
		logx.Int("posts", s.cache.Len()),
		logx.Int("jobs", s.ActiveCount()))
	return nil
}

// Stop cancels future firings, waits for in-flight ticks to complete (they
// always run to completion), and flushes whatever counters are pending.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.runCancel
	s.mu.Unlock()

	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		s.log.Warn("broadcast stop grace elapsed with ticks in flight")
	}
	if cancel != nil {
		cancel()
	}

	// Final flush narrows the bounded-loss window on clean shutdown.
	fctx, fcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer fcancel()
	_ = s.counter.Flush(fctx, s.repo, s.log)

	s.log.Info("broadcast engine stopped")
	return nil
}

// StartRecipient begins (or reschedules) the recurring delivery job for one
// recipient. interval <= 0 means "use the current process-wide default".
// Idempotent: a second call never creates a duplicate timer.
func (s *Service) StartRecipient(chatID int64, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if interval <= 0 {
		interval = s.defaultInterval
	}
	s.scheduleLocked(chatID, interval)
	s.log.Info("delivery job started",
		logx.Int64("chat_id", chatID), logx.Duration("interval", interval))
}

// StopRecipient cancels the recipient's job if present; otherwise a no-op.
// A tick already in flight runs to completion.
func (s *Service) StopRecipient(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[chatID]
	if !ok {
		return
	}
	s.cron.Remove(j.entry)
	delete(s.jobs, chatID)
	s.log.Info("delivery job stopped", logx.Int64("chat_id", chatID))
}

// RescheduleAll updates the process-wide default interval and moves every
// active job to the new period. The lock is held across "set default, walk
// jobs", so a StartRecipient racing with this call can never observe the old
// default after RescheduleAll returns.
func (s *Service) RescheduleAll(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultInterval = interval
	for chatID := range s.jobs {
		s.scheduleLocked(chatID, interval)
	}
	s.log.Info("all delivery jobs rescheduled",
		logx.Duration("interval", interval), logx.Int("jobs", len(s.jobs)))
}

func (s *Service) DefaultInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultInterval
}

// ActiveCount reports the number of recipients with a live job.
func (s *Service) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// scheduleLocked installs (or replaces) the cron entry for chatID. Callers
// hold s.mu. Replacing an entry removes the old one first, so at most one
// timer per recipient ever exists.
func (s *Service) scheduleLocked(chatID int64, interval time.Duration) {
	if old, ok := s.jobs[chatID]; ok {
		s.cron.Remove(old.entry)
	}
	id := s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		s.tick(chatID)
	}))
	s.jobs[chatID] = recipientJob{entry: id, interval: interval}
}

func (s *Service) jobInterval(chatID int64) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[chatID]
	return j.interval, ok
}
