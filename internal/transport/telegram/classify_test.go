package telegram

import (
	"errors"
	"fmt"
	"testing"

	tele "gopkg.in/telebot.v4"

	"blastbot/internal/transport"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want transport.Outcome
	}{
		{"nil", nil, transport.OutcomeDelivered},
		{"blocked by user", tele.ErrBlockedByUser, transport.OutcomePermanentReject},
		{"deactivated", tele.ErrUserIsDeactivated, transport.OutcomePermanentReject},
		{"wrapped forbidden", fmt.Errorf("send: %w", tele.ErrBlockedByUser), transport.OutcomePermanentReject},
		{"bad request", tele.NewError(400, "Bad Request: wrong file identifier"), transport.OutcomeBadRequest},
		{"flood", tele.FloodError{RetryAfter: 5}, transport.OutcomeTransient},
		{"server error", tele.NewError(502, "Bad Gateway"), transport.OutcomeTransient},
		{"plain error", errors.New("connection reset"), transport.OutcomeUnexpected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classify(tc.err); got != tc.want {
				t.Fatalf("classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
