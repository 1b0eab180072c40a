package config

import (
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Database  DatabaseConfig  `json:"database"`
	Broadcast BroadcastConfig `json:"broadcast"`
	Logging   LoggingConfig   `json:"logging"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// AdminIDs are operator accounts: they can run /interval and are never
	// subscribed to the broadcast stream.
	AdminIDs []int64 `json:"admin_ids"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
	// BusyTimeout is a Go duration string passed to sqlite's busy_timeout pragma.
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// BroadcastConfig controls the delivery engine.
//
// DefaultInterval is in whole seconds (scheduling granularity is one second);
// the remaining intervals are Go duration strings.
type BroadcastConfig struct {
	DefaultInterval int `json:"default_interval"`
	// RefreshInterval is the post-cache refresh period. Default "300s".
	RefreshInterval string `json:"refresh_interval,omitempty"`
	// FlushInterval is the sent-counter flush period. Default "60s".
	FlushInterval string `json:"flush_interval,omitempty"`
	// RatePerSec caps outbound sends across all recipients. 0 disables the cap.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path is required")
	}
	if c.Broadcast.DefaultInterval <= 0 {
		return fmt.Errorf("broadcast.default_interval must be > 0 seconds, got %d", c.Broadcast.DefaultInterval)
	}
	if c.Broadcast.RatePerSec < 0 {
		return errors.New("broadcast.rate_per_sec must be >= 0")
	}
	for _, f := range []struct{ path, raw string }{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"database.busy_timeout", c.Database.BusyTimeout},
		{"broadcast.refresh_interval", c.Broadcast.RefreshInterval},
		{"broadcast.flush_interval", c.Broadcast.FlushInterval},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	return nil
}
