package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
telegram:
  token: "123:abc"
  owner_user_ids: [42]
reddit:
  client_id: cid
  client_secret: secret
stream:
  subreddit: all
  poll_interval: 5s
sweep:
  schedule: 5m
owner:
  chat_id: -100123
`

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", validYAML)
	cfg, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.OwnerUserIDs) != 1 || cfg.Telegram.OwnerUserIDs[0] != 42 {
		t.Fatalf("owner_user_ids = %v", cfg.Telegram.OwnerUserIDs)
	}
	if cfg.Owner.ChatID != -100123 {
		t.Fatalf("owner chat_id = %d", cfg.Owner.ChatID)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
		"telegram": {"token": "123:abc", "owner_user_ids": [42]},
		"reddit": {"client_id": "cid", "client_secret": "secret"},
		"owner": {"chat_id": 7}
	}`)
	cfg, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Reddit.ClientID != "cid" {
		t.Fatalf("client_id = %q", cfg.Reddit.ClientID)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", validYAML+"\nnot_a_real_key: true\n")
	if _, err := Parse(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"owner": {"chat_id": 1}} {"extra": true}`)
	if _, err := Parse(path); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestValidateRequiredFields(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "missing token", mutate: func(c *Config) { c.Telegram.Token = "" }, want: "telegram.token"},
		{name: "missing client id", mutate: func(c *Config) { c.Reddit.ClientID = "" }, want: "reddit.client_id"},
		{name: "missing client secret", mutate: func(c *Config) { c.Reddit.ClientSecret = "" }, want: "reddit.client_secret"},
		{name: "missing owner chat", mutate: func(c *Config) { c.Owner.ChatID = 0 }, want: "owner.chat_id"},
		{name: "inverted watermarks", mutate: func(c *Config) { c.Dedup.HighWater = 100; c.Dedup.LowWater = 200 }, want: "dedup.low_water"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Telegram.Token = "t"
			cfg.Reddit.ClientID = "c"
			cfg.Reddit.ClientSecret = "s"
			cfg.Owner.ChatID = 1
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestDurationHelper(t *testing.T) {
	t.Parallel()
	if d, err := Duration("x", "", time.Second); err != nil || d != time.Second {
		t.Fatalf("empty = (%v, %v), want default", d, err)
	}
	if d, err := Duration("x", "250ms", time.Second); err != nil || d != 250*time.Millisecond {
		t.Fatalf("parse = (%v, %v)", d, err)
	}
	if _, err := Duration("x", "soon", time.Second); err == nil {
		t.Fatal("expected error for bad duration")
	}
	if _, err := Duration("x", "-1s", time.Second); err == nil {
		t.Fatal("expected error for negative duration")
	}
}

func TestOwnerGroupIDDefault(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	if got := cfg.OwnerGroupID(); got != "owner" {
		t.Fatalf("OwnerGroupID = %q, want owner", got)
	}
	cfg.Owner.GroupID = "hq"
	if got := cfg.OwnerGroupID(); got != "hq" {
		t.Fatalf("OwnerGroupID = %q, want hq", got)
	}
}

func TestManagerLoadAndCurrent(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", validYAML)
	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Current() != cfg {
		t.Fatal("Current should return the committed config")
	}
}

func TestManagerLoadRejectsInvalid(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", "telegram:\n  token: \"\"\n")
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected validation error")
	}
}
