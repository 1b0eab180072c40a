package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
telegram:
  token: "123:abc"
  admin_ids: [1, 2]
  poll_timeout: "10s"
database:
  path: "./bot.sqlite3"
broadcast:
  default_interval: 30
  refresh_interval: "300s"
  flush_interval: "60s"
  rate_per_sec: 25
logging:
  level: "debug"
  console: true
  file:
    enabled: false
    path: ""
`

func TestLoadYAML(t *testing.T) {
	m := NewManager(writeConfig(t, "config.yaml", validYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.AdminIDs) != 2 || cfg.Telegram.AdminIDs[1] != 2 {
		t.Fatalf("admin_ids = %v", cfg.Telegram.AdminIDs)
	}
	if cfg.Broadcast.DefaultInterval != 30 || cfg.Broadcast.RatePerSec != 25 {
		t.Fatalf("broadcast = %+v", cfg.Broadcast)
	}
	if got := m.Get(); got != cfg {
		t.Fatalf("Get returned a different config")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	m := NewManager(writeConfig(t, "config.yaml", validYAML+"\nextra_section:\n  x: 1\n"))
	if _, err := m.Load(); err == nil {
		t.Fatalf("unknown section accepted")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Telegram:  TelegramConfig{Token: "t"},
			Database:  DatabaseConfig{Path: "p"},
			Broadcast: BroadcastConfig{DefaultInterval: 30},
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	c := base()
	c.Telegram.Token = " "
	if err := c.Validate(); err == nil {
		t.Fatalf("missing token accepted")
	}

	c = base()
	c.Broadcast.DefaultInterval = 0
	if err := c.Validate(); err == nil {
		t.Fatalf("zero interval accepted")
	}

	c = base()
	c.Broadcast.RefreshInterval = "soon"
	if err := c.Validate(); err == nil {
		t.Fatalf("bad duration accepted")
	}
}

func TestSummarizeChangeDetectsIntervalEdit(t *testing.T) {
	oldCfg := &Config{Broadcast: BroadcastConfig{DefaultInterval: 30}}
	newCfg := &Config{Broadcast: BroadcastConfig{DefaultInterval: 90}}

	changed, _ := SummarizeChange(oldCfg, newCfg)
	found := false
	for _, s := range changed {
		if s == "broadcast" {
			found = true
		}
	}
	if !found {
		t.Fatalf("changed sections = %v, want broadcast", changed)
	}

	changed, _ = SummarizeChange(newCfg, newCfg)
	if len(changed) != 0 {
		t.Fatalf("identical configs reported changes: %v", changed)
	}
}
