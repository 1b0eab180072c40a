// Package transport defines the delivery-channel boundary: a Deliverer sends
// one post to one recipient and reports a classified Outcome instead of
// leaking channel-specific errors into the scheduler.
package transport

import (
	"context"

	"blastbot/internal/storage"
)

// Outcome classifies a single delivery attempt.
type Outcome int

const (
	// OutcomeDelivered: the message reached the recipient.
	OutcomeDelivered Outcome = iota
	// OutcomePermanentReject: the recipient can never again be reached
	// (blocked the sender, account deleted). Terminates their job.
	OutcomePermanentReject
	// OutcomeBadRequest: the request itself was malformed (broken media
	// reference, invalid markup). A content problem, not a recipient problem.
	OutcomeBadRequest
	// OutcomeTransient: the channel is temporarily unavailable; the next
	// scheduled tick is the retry.
	OutcomeTransient
	// OutcomeUnexpected: anything the classifier does not recognize.
	OutcomeUnexpected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomePermanentReject:
		return "permanent_reject"
	case OutcomeBadRequest:
		return "bad_request"
	case OutcomeTransient:
		return "transient"
	case OutcomeUnexpected:
		return "unexpected"
	}
	return "unknown"
}

type Deliverer interface {
	// SendPost delivers p to the chat. The returned error carries detail for
	// logging; the Outcome is authoritative for scheduling decisions.
	SendPost(ctx context.Context, chatID int64, p storage.Post) (Outcome, error)
}
