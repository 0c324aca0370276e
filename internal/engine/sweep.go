package engine

import (
	"context"
	"time"

	"subwatch/internal/eventbus"
	"subwatch/internal/reddit"
	"subwatch/internal/registry"
	"subwatch/pkg/logx"
)

type SweepConfig struct {
	// Schedule is a cron expression or interval string (see ParseSchedule).
	Schedule string
	// TimeWindow bounds the server-side search ("hour", "day", ...).
	TimeWindow string
	// Limit caps results per (keyword, subreddit) request.
	Limit int
	// Pacing is the pause between search requests inside one pass.
	Pacing time.Duration
	// DefaultTargets are the subreddits searched for groups whose allowlist
	// is empty (universal allow needs a concrete search scope).
	DefaultTargets []string
}

func (c *SweepConfig) defaults() {
	if c.Schedule == "" {
		c.Schedule = "5m"
	}
	if c.TimeWindow == "" {
		c.TimeWindow = "hour"
	}
	if c.Limit <= 0 {
		c.Limit = 100
	}
	if c.Pacing <= 0 {
		c.Pacing = 2 * time.Second
	}
	if len(c.DefaultTargets) == 0 {
		c.DefaultTargets = []string{"all"}
	}
}

// Searcher serves one bounded, server-filtered search request.
// *reddit.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, subreddit, phrase string, opt reddit.SearchOptions) ([]reddit.Item, error)
}

// Sweep is the periodic producer: for every enabled group and every
// (keyword, subreddit-target) pair it requests a bounded page of
// server-filtered posts and routes them through the same pipeline as the
// stream. It backstops what the stream could not have observed: items
// created before the stream (re)started, and posts (the stream carries
// comments only).
type Sweep struct {
	cfg      SweepConfig
	sched    Schedule
	client   Searcher
	registry *registry.Registry
	pipeline *Pipeline
	bus      eventbus.Bus
	log      logx.Logger
}

func NewSweep(cfg SweepConfig, client Searcher, reg *registry.Registry, p *Pipeline, bus eventbus.Bus, log logx.Logger) (*Sweep, error) {
	cfg.defaults()
	sched, err := ParseSchedule(cfg.Schedule)
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sweep{cfg: cfg, sched: sched, client: client, registry: reg, pipeline: p, bus: bus, log: log}, nil
}

// Run executes passes per the schedule until ctx is cancelled.
func (s *Sweep) Run(ctx context.Context) {
	for {
		next := s.sched.Next(time.Now())
		if !sleep(ctx, time.Until(next)) {
			return
		}
		s.Pass(ctx)
	}
}

// Pass walks every enabled group's (keyword, target) pairs once.
func (s *Sweep) Pass(ctx context.Context) {
	start := time.Now()
	requests, found := 0, 0

	for _, g := range s.registry.Snapshot() {
		if !g.Enabled {
			continue
		}
		targets := s.targets(g)
		keywords := append(append([]string(nil), g.Keywords...), g.CaseKeywords...)
		for _, kw := range keywords {
			for _, target := range targets {
				if ctx.Err() != nil {
					return
				}
				items, err := s.client.Search(ctx, target, kw, reddit.SearchOptions{
					Sort:       "new",
					TimeWindow: s.cfg.TimeWindow,
					Limit:      s.cfg.Limit,
				})
				requests++
				if err != nil {
					// Transient upstream error: log and move on; the next
					// pass retries the same pair.
					s.log.Warn("sweep search failed",
						logx.String("group", g.ID),
						logx.String("keyword", kw),
						logx.String("subreddit", target),
						logx.Err(err))
					continue
				}
				for _, it := range items {
					found += s.pipeline.Process(it)
				}
				if !sleep(ctx, s.cfg.Pacing) {
					return
				}
			}
		}
	}

	s.log.Info("sweep pass completed",
		logx.Int("requests", requests),
		logx.Int("matches", found),
		logx.Duration("took", time.Since(start)))
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeSweepPass})
}

// targets picks the subreddits to search for a group: its allowlist when it
// has one, the configured defaults otherwise, denied subreddits excluded
// either way.
func (s *Sweep) targets(g registry.Group) []string {
	base := g.AllowedSubreddits
	if len(base) == 0 {
		base = s.cfg.DefaultTargets
	}
	out := make([]string, 0, len(base))
	for _, t := range base {
		if g.EligibleSubreddit(t) {
			out = append(out, registry.NormalizeSubreddit(t))
		}
	}
	return out
}
