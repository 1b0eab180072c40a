package broadcast

import (
	"context"

	logx "blastbot/pkg/logx"
)

// restore re-registers a delivery job for every unblocked recipient. Jobs
// live only in memory, so this runs once per process start, after the eager
// cache refresh. Admin accounts are never subject to broadcast.
func (s *Service) restore(ctx context.Context) {
	ids, err := s.repo.ListUnblockedRecipients(ctx, s.cfg.AdminIDs)
	if err != nil {
		s.log.Error("restoring delivery jobs failed", logx.Err(err))
		return
	}

	s.mu.Lock()
	interval := s.defaultInterval
	for _, chatID := range ids {
		s.scheduleLocked(chatID, interval)
	}
	s.mu.Unlock()

	s.log.Info("delivery jobs restored", logx.Int("recipients", len(ids)))
}
