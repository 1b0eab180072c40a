// Package app wires the process together: config manager, logging service,
// store, telegram adapter, and the broadcast engine.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	logx "blastbot/pkg/logx"

	"blastbot/internal/broadcast"
	"blastbot/internal/config"
	"blastbot/internal/storage"
	"blastbot/internal/transport/telegram"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store   storage.Store
	adapter *telegram.Adapter
	engine  *broadcast.Service

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	mgr.SetLogger(log.With(logx.String("comp", "config")))
	mgr.SetValidator(func(ctx context.Context, c *config.Config) error { return c.Validate() })

	busyTimeout, _ := config.ParseDurationField("database.busy_timeout", cfg.Database.BusyTimeout)
	store, err := storage.Open(storage.Config{
		Path:        cfg.Database.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	pollTimeout, _ := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		AdminIDs:    cfg.Telegram.AdminIDs,
		PollTimeout: pollTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("telegram adapter: %w", err)
	}

	refresh, _ := config.ParseDurationOrDefault("broadcast.refresh_interval", cfg.Broadcast.RefreshInterval, 300*time.Second)
	flush, _ := config.ParseDurationOrDefault("broadcast.flush_interval", cfg.Broadcast.FlushInterval, 60*time.Second)
	engine := broadcast.New(broadcast.Config{
		DefaultInterval: time.Duration(cfg.Broadcast.DefaultInterval) * time.Second,
		RefreshInterval: refresh,
		FlushInterval:   flush,
		RatePerSec:      cfg.Broadcast.RatePerSec,
		AdminIDs:        cfg.Telegram.AdminIDs,
	}, store, adapter, log.With(logx.String("comp", "broadcast")))

	a := &App{
		cfgMgr:  mgr,
		logSvc:  logSvc,
		log:     log,
		store:   store,
		adapter: adapter,
		engine:  engine,
	}
	adapter.SetHandlers(a.botHandlers())
	return a, nil
}

func (a *App) botHandlers() telegram.Handlers {
	return telegram.Handlers{
		Registered: func(ctx context.Context, r storage.Recipient, admin bool) error {
			if err := a.store.UpsertRecipient(ctx, r); err != nil {
				return err
			}
			if !admin {
				a.engine.StartRecipient(r.ChatID, 0)
			}
			return nil
		},
		Blocked: func(ctx context.Context, chatID int64) error {
			a.engine.StopRecipient(chatID)
			return a.store.SetRecipientBlocked(ctx, chatID, true)
		},
		IntervalChanged: func(ctx context.Context, seconds int) error {
			a.engine.RescheduleAll(time.Duration(seconds) * time.Second)
			return nil
		},
	}
}

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.engine.Start(runCtx); err != nil {
		cancel()
		return err
	}
	if err := a.adapter.Start(runCtx); err != nil {
		cancel()
		return err
	}

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		_ = a.cfgMgr.Watch(runCtx)
	}()
	go func() {
		defer a.wg.Done()
		a.watchConfig(runCtx)
	}()

	a.log.Info("app started")
	return nil
}

// watchConfig reacts to published config updates: logging settings re-apply
// in place, and a changed default interval reschedules every delivery job.
func (a *App) watchConfig(ctx context.Context) {
	sub := a.cfgMgr.Subscribe(1)
	defer a.cfgMgr.Unsubscribe(sub)

	prev := a.cfgMgr.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok || cfg == nil {
				return
			}
			changed, attrs := config.SummarizeChange(prev, cfg)
			if len(changed) > 0 {
				a.log.Info("config change applied", append(attrs, logx.Any("sections", changed))...)
			}

			if prev == nil || prev.Logging != cfg.Logging {
				a.logSvc.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
				})
			}
			if prev == nil || prev.Broadcast.DefaultInterval != cfg.Broadcast.DefaultInterval {
				a.engine.RescheduleAll(time.Duration(cfg.Broadcast.DefaultInterval) * time.Second)
			}
			prev = cfg
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	_ = a.adapter.Stop(ctx)
	_ = a.engine.Stop(ctx)
	a.wg.Wait()
	_ = a.store.Close()
	_ = a.logSvc.Close()
	return nil
}
