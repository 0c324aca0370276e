package config

import (
	"errors"
	"fmt"
	"strings"
)

// Config is the on-disk configuration (YAML or JSON).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "5m").
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Telegram TelegramConfig `json:"telegram"`
	Reddit   RedditConfig   `json:"reddit"`
	Stream   StreamConfig   `json:"stream"`
	Sweep    SweepConfig    `json:"sweep"`
	Dispatch DispatchConfig `json:"dispatch"`
	Dedup    DedupConfig    `json:"dedup,omitempty"`
	Storage  *StorageConfig `json:"storage,omitempty"`
	Owner    OwnerConfig    `json:"owner"`
}

type LoggingConfig struct {
	Level   string `json:"level,omitempty"`
	Console bool   `json:"console"`
	File    struct {
		Enabled bool   `json:"enabled"`
		Path    string `json:"path,omitempty"`
	} `json:"file,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// OwnerUserIDs may issue configuration commands.
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	PollTimeout  string  `json:"poll_timeout,omitempty"`
}

type RedditConfig struct {
	ClientID       string `json:"client_id"`
	ClientSecret   string `json:"client_secret"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	RequestsPerMin int    `json:"requests_per_min,omitempty"`
}

type StreamConfig struct {
	Subreddit        string `json:"subreddit,omitempty"`
	PollInterval     string `json:"poll_interval,omitempty"`
	Cooldown         string `json:"cooldown,omitempty"`
	LongCooldown     string `json:"long_cooldown,omitempty"`
	FailureThreshold int    `json:"failure_threshold,omitempty"`
}

type SweepConfig struct {
	// Schedule is a cron expression ("*/5 * * * *") or interval ("5m").
	Schedule       string   `json:"schedule,omitempty"`
	TimeWindow     string   `json:"time_window,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	Pacing         string   `json:"pacing,omitempty"`
	DefaultTargets []string `json:"default_targets,omitempty"`
}

type DispatchConfig struct {
	SendDelay      string `json:"send_delay,omitempty"`
	FailureBackoff string `json:"failure_backoff,omitempty"`
	RetryMax       int    `json:"retry_max,omitempty"`
}

type DedupConfig struct {
	HighWater int `json:"high_water,omitempty"`
	LowWater  int `json:"low_water,omitempty"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./subwatch_state.json" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite
	// SaveInterval is how often the snapshot is written (default "1m").
	SaveInterval string `json:"save_interval,omitempty"`
}

// OwnerConfig describes the distinguished control group created at boot.
// It cannot be removed at runtime.
type OwnerConfig struct {
	GroupID  string `json:"group_id,omitempty"` // default "owner"
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
}

// Validate checks the statically checkable parts. Duration fields are
// validated where they are materialized into component configs.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []string
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		errs = append(errs, "telegram.token is required")
	}
	if strings.TrimSpace(cfg.Reddit.ClientID) == "" {
		errs = append(errs, "reddit.client_id is required")
	}
	if strings.TrimSpace(cfg.Reddit.ClientSecret) == "" {
		errs = append(errs, "reddit.client_secret is required")
	}
	if cfg.Owner.ChatID == 0 {
		errs = append(errs, "owner.chat_id is required")
	}
	if cfg.Dedup.HighWater != 0 && cfg.Dedup.LowWater >= cfg.Dedup.HighWater {
		errs = append(errs, "dedup.low_water must be below dedup.high_water")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// OwnerGroupID returns the configured owner group id or its default.
func (c *Config) OwnerGroupID() string {
	if strings.TrimSpace(c.Owner.GroupID) == "" {
		return "owner"
	}
	return c.Owner.GroupID
}
