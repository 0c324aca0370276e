// Package stats keeps engine-wide counters for operator status reporting.
package stats

import (
	"context"
	"sync/atomic"
	"time"

	"subwatch/internal/eventbus"
)

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	StartedAt      time.Time
	ItemsProcessed uint64
	MatchesFound   uint64
	Enqueued       uint64
	Sent           uint64
	Dropped        uint64
	StreamRestarts uint64
	SweepPasses    uint64
	QueueDepth     int
}

// QueueDepther reports the current notification backlog.
type QueueDepther interface {
	Len() int
}

// Collector accumulates counters. All methods are safe for concurrent use.
type Collector struct {
	startedAt time.Time
	queue     QueueDepther

	itemsProcessed atomic.Uint64
	matchesFound   atomic.Uint64
	enqueued       atomic.Uint64
	sent           atomic.Uint64
	dropped        atomic.Uint64
	streamRestarts atomic.Uint64
	sweepPasses    atomic.Uint64
}

func New(queue QueueDepther) *Collector {
	return &Collector{startedAt: time.Now(), queue: queue}
}

func (c *Collector) ItemProcessed() { c.itemsProcessed.Add(1) }

func (c *Collector) ItemsProcessed(n int) {
	if n > 0 {
		c.itemsProcessed.Add(uint64(n))
	}
}

func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{
		StartedAt:      c.startedAt,
		ItemsProcessed: c.itemsProcessed.Load(),
		MatchesFound:   c.matchesFound.Load(),
		Enqueued:       c.enqueued.Load(),
		Sent:           c.sent.Load(),
		Dropped:        c.dropped.Load(),
		StreamRestarts: c.streamRestarts.Load(),
		SweepPasses:    c.sweepPasses.Load(),
	}
	if c.queue != nil {
		s.QueueDepth = c.queue.Len()
	}
	return s
}

// Run consumes bus events until ctx is cancelled. Matches, sends, drops and
// producer lifecycle events all land here so the command layer reads one place.
func (c *Collector) Run(ctx context.Context, bus eventbus.Bus) {
	ch, unsub := bus.Subscribe(64)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			switch e.Type {
			case eventbus.TypeMatchFound:
				c.matchesFound.Add(1)
				c.enqueued.Add(1)
			case eventbus.TypeNotifySent:
				c.sent.Add(1)
			case eventbus.TypeNotifyDropped:
				c.dropped.Add(1)
			case eventbus.TypeStreamReconnect:
				c.streamRestarts.Add(1)
			case eventbus.TypeSweepPass:
				c.sweepPasses.Add(1)
			}
		}
	}
}
