package broadcast

import (
	"context"
	"time"

	logx "blastbot/pkg/logx"

	"blastbot/internal/transport"
)

// tickTimeout bounds a single delivery attempt end to end.
const tickTimeout = time.Minute

// tick performs one delivery attempt for one recipient. It never propagates
// an error upward: every failure path degrades this recipient (or nothing)
// and leaves the rest of the schedule untouched.
func (s *Service) tick(chatID int64) {
	s.mu.Lock()
	base := s.runCtx
	s.mu.Unlock()
	if base == nil || base.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(base, tickTimeout)
	defer cancel()

	post, ok := s.cache.Sample()
	if !ok {
		// No deliverable content is not an error; poke the cache and move on.
		s.cache.RefreshAsync(base)
		return
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
	}

	outcome, err := s.deliverer.SendPost(ctx, chatID, post)
	switch outcome {
	case transport.OutcomeDelivered:
		s.counter.Record(post.ID)
	case transport.OutcomePermanentReject:
		s.log.Warn("recipient unreachable; stopping delivery job",
			logx.Int64("chat_id", chatID), logx.Err(err))
		s.StopRecipient(chatID)
	case transport.OutcomeBadRequest:
		s.log.Error("delivery rejected as malformed",
			logx.Int64("chat_id", chatID), logx.Int64("post_id", post.ID),
			logx.String("kind", string(post.Kind)), logx.Err(err))
	case transport.OutcomeTransient:
		s.log.Warn("delivery channel unavailable",
			logx.Int64("chat_id", chatID), logx.Int64("post_id", post.ID), logx.Err(err))
	default:
		s.log.Error("unexpected delivery failure",
			logx.Int64("chat_id", chatID), logx.Int64("post_id", post.ID),
			logx.String("kind", string(post.Kind)), logx.Err(err))
	}
}
