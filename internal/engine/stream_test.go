package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"subwatch/internal/eventbus"
	"subwatch/internal/reddit"
	"subwatch/internal/registry"
	"subwatch/pkg/logx"
)

// fakeSubscription replays scripted polls; when the script runs out it
// returns errDead so the consumer reconnects.
type fakeSubscription struct {
	mu    sync.Mutex
	polls []pollResult
}

type pollResult struct {
	items []reddit.Item
	err   error
}

var errDead = errors.New("subscription died")

func (f *fakeSubscription) Next(ctx context.Context) ([]reddit.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.polls) == 0 {
		return nil, errDead
	}
	p := f.polls[0]
	f.polls = f.polls[1:]
	return p.items, p.err
}

// fakeSource counts how many fresh subscriptions were opened and hands out
// the scripted ones in order; past the script every subscription is dead on
// arrival.
type fakeSource struct {
	mu    sync.Mutex
	subs  []*fakeSubscription
	opens int
}

func (f *fakeSource) Subscribe(string) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if len(f.subs) == 0 {
		return &fakeSubscription{}
	}
	s := f.subs[0]
	f.subs = f.subs[1:]
	return s
}

func (f *fakeSource) opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func fastStreamConfig() StreamConfig {
	return StreamConfig{
		Subreddit:        "all",
		PollInterval:     time.Millisecond,
		Cooldown:         time.Millisecond,
		LongCooldown:     time.Hour,
		FailureThreshold: 3,
	}
}

func runStream(t *testing.T, s *Stream) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return func() {
		stop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("stream did not stop after cancel")
		}
	}
}

func TestStreamRoutesItemsThroughPipeline(t *testing.T) {
	t.Parallel()
	f := newPipelineFixture(t)
	f.addGroup(t, registry.Group{ID: "g1", Enabled: true, Keywords: []string{"pain killer"}})

	src := &fakeSource{subs: []*fakeSubscription{{polls: []pollResult{
		{items: []reddit.Item{comment("t1_a", "askdocs", "any pain killer advice?")}},
		{items: []reddit.Item{comment("t1_b", "askdocs", "nothing relevant")}},
	}}}}
	s := NewStream(fastStreamConfig(), src, f.pipeline, eventbus.New(), logx.Nop())
	stop := runStream(t, s)
	defer stop()

	deadline := time.Now().Add(2 * time.Second)
	for f.queue.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if f.queue.Len() != 1 {
		t.Fatalf("queue len = %d, want 1", f.queue.Len())
	}
	env, _ := f.queue.Pop()
	if env.GroupID != "g1" {
		t.Fatalf("envelope group = %s, want g1", env.GroupID)
	}
}

func TestStreamEscalatesCooldownAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()
	f := newPipelineFixture(t)
	// Every subscription is dead on arrival; after FailureThreshold failures
	// the long cooldown (1h here) parks the loop, so opens must stall.
	src := &fakeSource{}
	s := NewStream(fastStreamConfig(), src, f.pipeline, eventbus.New(), logx.Nop())
	stop := runStream(t, s)
	defer stop()

	deadline := time.Now().Add(2 * time.Second)
	for src.opened() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	// Give the loop room to misbehave, then confirm it parked.
	time.Sleep(50 * time.Millisecond)
	if got := src.opened(); got != 3 {
		t.Fatalf("subscriptions opened = %d, want exactly 3 before the long cooldown", got)
	}
}

func TestStreamSuccessResetsFailureCount(t *testing.T) {
	t.Parallel()
	f := newPipelineFixture(t)
	// Each subscription serves one good poll before dying, so the failure
	// count keeps resetting and reconnects stay on the short cooldown well
	// past the threshold.
	var subs []*fakeSubscription
	for i := 0; i < 8; i++ {
		subs = append(subs, &fakeSubscription{polls: []pollResult{{items: nil}}})
	}
	src := &fakeSource{subs: subs}
	cfg := fastStreamConfig()
	cfg.FailureThreshold = 2
	s := NewStream(cfg, src, f.pipeline, eventbus.New(), logx.Nop())
	stop := runStream(t, s)
	defer stop()

	deadline := time.Now().Add(2 * time.Second)
	for src.opened() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := src.opened(); got < 5 {
		t.Fatalf("subscriptions opened = %d, want reconnects to continue past the threshold", got)
	}
}

func TestStreamPublishesReconnectEvents(t *testing.T) {
	t.Parallel()
	f := newPipelineFixture(t)
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16)
	defer unsub()

	src := &fakeSource{}
	s := NewStream(fastStreamConfig(), src, f.pipeline, bus, logx.Nop())
	stop := runStream(t, s)
	defer stop()

	select {
	case e := <-ch:
		if e.Type != eventbus.TypeStreamReconnect {
			t.Fatalf("event type = %s, want %s", e.Type, eventbus.TypeStreamReconnect)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reconnect event published")
	}
}
