// Package telegram adapts telebot.v4 to the transport.Deliverer boundary and
// routes the few inbound updates the engine cares about (/start, chat-member
// transitions, the admin /interval command).
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "blastbot/pkg/logx"

	"blastbot/internal/storage"
)

type Config struct {
	Token       string
	AdminIDs    []int64
	PollTimeout time.Duration
}

// Handlers are the application callbacks behind inbound updates. Any nil
// handler turns the corresponding update into a no-op.
type Handlers struct {
	// Registered fires on /start. admin is true for operator accounts.
	Registered func(ctx context.Context, r storage.Recipient, admin bool) error
	// Blocked fires when a user blocks the bot.
	Blocked func(ctx context.Context, chatID int64) error
	// IntervalChanged fires on an accepted admin /interval command.
	IntervalChanged func(ctx context.Context, seconds int) error
}

type Adapter struct {
	cfg      Config
	log      logx.Logger
	bot      *tele.Bot
	handlers Handlers

	runMu   sync.Mutex
	running bool
	doneCh  chan struct{}
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{cfg: cfg, log: log, bot: b}, nil
}

// SetHandlers must be called before Start.
func (a *Adapter) SetHandlers(h Handlers) { a.handlers = h }

func (a *Adapter) Start(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.running {
		return nil
	}
	a.running = true
	a.doneCh = make(chan struct{})

	a.registerHandlers(ctx)

	go func() {
		defer close(a.doneCh)
		a.bot.Start()
	}()
	a.log.Info("telegram polling started", logx.String("bot", a.bot.Me.Username))
	return nil
}

// Stop halts long polling. In-flight handler calls run to completion.
func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	if !a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = false
	done := a.doneCh
	a.runMu.Unlock()

	a.bot.Stop()

	t := time.NewTimer(5 * time.Second)
	defer t.Stop()
	select {
	case <-done:
		a.log.Info("telegram polling stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		a.log.Warn("telegram stop grace elapsed; continuing shutdown")
		return nil
	}
}

func (a *Adapter) isAdmin(id int64) bool {
	for _, v := range a.cfg.AdminIDs {
		if v == id {
			return true
		}
	}
	return false
}

func (a *Adapter) registerHandlers(ctx context.Context) {
	a.bot.Handle("/start", func(c tele.Context) error {
		u := c.Sender()
		if u == nil {
			return nil
		}
		if a.handlers.Registered != nil {
			rec := storage.Recipient{
				ChatID:    u.ID,
				FirstName: u.FirstName,
				LastName:  u.LastName,
				Username:  u.Username,
				LangCode:  u.LanguageCode,
			}
			if err := a.handlers.Registered(ctx, rec, a.isAdmin(u.ID)); err != nil {
				a.log.Error("register recipient failed", logx.Int64("chat_id", u.ID), logx.Err(err))
				return nil
			}
		}
		return c.Send("Hi! You are subscribed. 👋")
	})

	a.bot.Handle(tele.OnMyChatMember, func(c tele.Context) error {
		upd := c.ChatMember()
		if upd == nil || upd.NewChatMember == nil || upd.Chat == nil {
			return nil
		}
		if upd.Chat.Type != tele.ChatPrivate {
			return nil
		}
		switch upd.NewChatMember.Role {
		case tele.Kicked:
			if a.handlers.Blocked != nil {
				if err := a.handlers.Blocked(ctx, upd.Sender.ID); err != nil {
					a.log.Error("mark blocked failed", logx.Int64("chat_id", upd.Sender.ID), logx.Err(err))
				}
			}
		case tele.Member:
			// The user un-blocked the bot. Their job resumes on the next /start.
			_, _ = a.bot.Send(tele.ChatID(upd.Sender.ID), "Glad you're back! Send /start to resume.")
		}
		return nil
	})

	a.bot.Handle("/interval", func(c tele.Context) error {
		u := c.Sender()
		if u == nil || !a.isAdmin(u.ID) {
			return nil
		}
		secs, err := strconv.Atoi(strings.TrimSpace(c.Message().Payload))
		if err != nil || secs <= 0 {
			return c.Send("Usage: /interval <seconds>")
		}
		if a.handlers.IntervalChanged != nil {
			if err := a.handlers.IntervalChanged(ctx, secs); err != nil {
				a.log.Error("interval change failed", logx.Err(err))
				return c.Send("Failed to apply the new interval.")
			}
		}
		return c.Send(fmt.Sprintf("All delivery jobs rescheduled to every %ds.", secs))
	})
}
