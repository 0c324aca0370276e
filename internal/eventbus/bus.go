// Package eventbus is the in-memory signal fanout decoupling the engine's
// producers and dispatcher from the stats collector.
//
// Publish never blocks: a subscriber that cannot keep up loses events rather
// than stalling the pipeline. Counters tolerate that; nothing
// correctness-critical rides on the bus.
package eventbus

import (
	"sync"
	"time"
)

// Event types emitted by the monitoring engine.
const (
	TypeMatchFound      = "match.found"
	TypeNotifySent      = "notify.sent"
	TypeNotifyDropped   = "notify.dropped"
	TypeStreamReconnect = "stream.reconnect"
	TypeSweepPass       = "sweep.pass"
)

// Event is one engine signal. Data should stay small and JSON-serializable.
type Event struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus. It owns no goroutines; delivery
// happens inline on the publisher's stack.
func New() Bus {
	return &bus{subs: map[int]chan Event{}}
}

type bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

func (b *bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	targets := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		offer(ch, e)
	}
}

// offer attempts a non-blocking send. A concurrent unsubscribe may close the
// channel between the snapshot and the send; the recover absorbs that race.
func offer(ch chan Event, e Event) {
	defer func() { _ = recover() }()
	select {
	case ch <- e:
	default:
	}
}

func (b *bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}
