// Package engine runs the two candidate producers (live comment stream and
// periodic sweep) and the shared match→dedup→enqueue pipeline they both feed.
package engine

import (
	"subwatch/internal/dedup"
	"subwatch/internal/dispatch"
	"subwatch/internal/eventbus"
	"subwatch/internal/match"
	"subwatch/internal/reddit"
	"subwatch/internal/registry"
	"subwatch/internal/stats"
	"subwatch/pkg/logx"
)

// MatchEvent is the bus payload for a confirmed, deduplicated match.
type MatchEvent struct {
	GroupID   string `json:"group_id"`
	ItemID    string `json:"item_id"`
	Keyword   string `json:"keyword"`
	Subreddit string `json:"subreddit"`
}

// Pipeline is the single shared path both producers route candidates
// through, so match and dedup semantics are identical regardless of which
// producer observes an item first.
type Pipeline struct {
	registry *registry.Registry
	index    *dedup.Index
	queue    *dispatch.Queue
	bus      eventbus.Bus
	stats    *stats.Collector
	log      logx.Logger
}

func NewPipeline(reg *registry.Registry, idx *dedup.Index, queue *dispatch.Queue, bus eventbus.Bus, st *stats.Collector, log logx.Logger) *Pipeline {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Pipeline{registry: reg, index: idx, queue: queue, bus: bus, stats: st, log: log}
}

// Process evaluates one candidate against every enabled, subreddit-eligible
// group and enqueues at most one envelope per group. Returns the number of
// envelopes enqueued.
func (p *Pipeline) Process(item reddit.Item) int {
	p.stats.ItemProcessed()

	enqueued := 0
	for _, g := range p.registry.Snapshot() {
		if !g.Enabled {
			continue
		}
		if !g.EligibleSubreddit(item.Subreddit) {
			continue
		}
		kw, ok := match.FirstMatch(item.Title, item.Body, g.Keywords, g.CaseKeywords)
		if !ok {
			continue
		}
		// Atomic check-and-mark: whichever producer gets here first owns the
		// notification for this (group, item).
		if !p.index.CheckAndMark(g.ID, item.ID) {
			continue
		}

		p.queue.Push(dispatch.Envelope{GroupID: g.ID, Text: Render(item, kw)})
		p.bus.Publish(eventbus.Event{
			Type: eventbus.TypeMatchFound,
			Data: MatchEvent{GroupID: g.ID, ItemID: item.ID, Keyword: kw, Subreddit: item.Subreddit},
		})
		p.log.Info("match",
			logx.String("group", g.ID),
			logx.String("keyword", kw),
			logx.String("kind", string(item.Kind)),
			logx.String("subreddit", item.Subreddit),
			logx.String("item", item.ID))
		enqueued++
	}
	return enqueued
}
