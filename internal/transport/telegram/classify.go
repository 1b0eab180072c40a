package telegram

import (
	"errors"

	tele "gopkg.in/telebot.v4"

	"blastbot/internal/transport"
)

// classify maps a telebot send error onto a transport outcome. It is a pure
// function of the error so the taxonomy stays exhaustive and testable.
//
//   - 403 means the recipient is gone for good (blocked the bot, deactivated
//     account); their job must stop.
//   - 429 and 5xx self-resolve; the next tick is the retry.
//   - Other 4xx are one-off content/API problems, not recipient problems.
func classify(err error) transport.Outcome {
	if err == nil {
		return transport.OutcomeDelivered
	}

	var flood tele.FloodError
	if errors.As(err, &flood) {
		return transport.OutcomeTransient
	}
	var floodp *tele.FloodError
	if errors.As(err, &floodp) {
		return transport.OutcomeTransient
	}

	var te *tele.Error
	if errors.As(err, &te) {
		switch {
		case te.Code == 403:
			return transport.OutcomePermanentReject
		case te.Code == 429 || te.Code >= 500:
			return transport.OutcomeTransient
		case te.Code >= 400:
			return transport.OutcomeBadRequest
		}
	}

	return transport.OutcomeUnexpected
}
