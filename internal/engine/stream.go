package engine

import (
	"context"
	"time"

	"subwatch/internal/eventbus"
	"subwatch/internal/reddit"
	"subwatch/pkg/logx"
)

type StreamConfig struct {
	// Subreddit is the stream scope ("all" for site-wide).
	Subreddit string
	// PollInterval is the pause between stream polls.
	PollInterval time.Duration
	// Cooldown is the wait before reopening a failed subscription.
	Cooldown time.Duration
	// LongCooldown replaces Cooldown once FailureThreshold consecutive
	// failures accumulate, so a throttled upstream isn't tight-looped.
	LongCooldown     time.Duration
	FailureThreshold int
}

func (c *StreamConfig) defaults() {
	if c.Subreddit == "" {
		c.Subreddit = "all"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
	if c.LongCooldown <= 0 {
		c.LongCooldown = 5 * time.Minute
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
}

// Subscription is one live, skip-existing comment feed. It is not
// restartable: after Next errors the caller must discard it and open a fresh
// one through the Subscriber.
type Subscription interface {
	Next(ctx context.Context) ([]reddit.Item, error)
}

// Subscriber opens fresh comment subscriptions.
type Subscriber interface {
	Subscribe(subreddit string) Subscription
}

// SubscriberFunc adapts a plain open function to Subscriber.
type SubscriberFunc func(subreddit string) Subscription

func (f SubscriberFunc) Subscribe(subreddit string) Subscription { return f(subreddit) }

// Stream is the live producer: one long-lived loop consuming the
// skip-existing comment stream. It never replays history; on any error the
// dead subscription is discarded and a fresh one opened after a cooldown
// (the sweep backstops whatever was missed).
type Stream struct {
	cfg      StreamConfig
	source   Subscriber
	pipeline *Pipeline
	bus      eventbus.Bus
	log      logx.Logger
}

func NewStream(cfg StreamConfig, source Subscriber, p *Pipeline, bus eventbus.Bus, log logx.Logger) *Stream {
	cfg.defaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Stream{cfg: cfg, source: source, pipeline: p, bus: bus, log: log}
}

// Run consumes until ctx is cancelled.
func (s *Stream) Run(ctx context.Context) {
	failures := 0
	for ctx.Err() == nil {
		st := s.source.Subscribe(s.cfg.Subreddit)
		s.log.Info("comment stream opened", logx.String("subreddit", s.cfg.Subreddit))

		err := s.consume(ctx, st, &failures)
		if ctx.Err() != nil {
			return
		}

		failures++
		cooldown := s.cfg.Cooldown
		if failures >= s.cfg.FailureThreshold {
			cooldown = s.cfg.LongCooldown
		}
		s.log.Warn("comment stream failed; reconnecting",
			logx.Err(err),
			logx.Int("consecutive_failures", failures),
			logx.Duration("cooldown", cooldown))
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeStreamReconnect, Data: err.Error()})

		if !sleep(ctx, cooldown) {
			return
		}
	}
}

// consume polls one subscription until it errors or ctx ends. A successful
// poll resets the consecutive-failure count.
func (s *Stream) consume(ctx context.Context, st Subscription, failures *int) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		items, err := st.Next(ctx)
		if err != nil {
			return err
		}
		*failures = 0

		for _, it := range items {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.pipeline.Process(it)
		}

		if !sleep(ctx, s.cfg.PollInterval) {
			return ctx.Err()
		}
	}
}

// sleep waits d or until ctx is done; reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
