// Package dispatch buffers rendered notifications and drains them with
// pacing, retry, and a bounded-retry drop policy.
package dispatch

import (
	"sync"
	"time"
)

// Envelope is one rendered notification awaiting delivery.
type Envelope struct {
	GroupID   string
	Text      string
	CreatedAt time.Time
	Attempts  int
}

// Queue is the single FIFO shared by every group. Enqueue always succeeds;
// growth is bounded in practice by upstream dedup. The head slot exists so a
// failed envelope can be retried before anything behind it (strict FIFO apart
// from that head-of-line requeue).
type Queue struct {
	mu    sync.Mutex
	items []Envelope

	// signal wakes the dispatcher when the queue transitions to non-empty.
	signal chan struct{}
}

func NewQueue() *Queue {
	return &Queue{signal: make(chan struct{}, 1)}
}

// Push appends to the tail.
func (q *Queue) Push(e Envelope) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
	q.wake()
}

// PushFront reinserts a failed envelope at the head.
func (q *Queue) PushFront(e Envelope) {
	q.mu.Lock()
	q.items = append([]Envelope{e}, q.items...)
	q.mu.Unlock()
	q.wake()
}

// Pop removes the head. Returns false when the queue is empty.
func (q *Queue) Pop() (Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Envelope{}, false
	}
	e := q.items[0]
	q.items = q.items[1:]
	return e, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Wait returns a channel that receives when items may be available.
func (q *Queue) Wait() <-chan struct{} { return q.signal }

func (q *Queue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
