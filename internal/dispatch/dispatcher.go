package dispatch

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"subwatch/internal/eventbus"
	"subwatch/internal/registry"
	"subwatch/internal/transport"
	"subwatch/pkg/logx"
)

type Config struct {
	// SendDelay is the global pause between successful sends. Pacing is
	// intentionally shared across destinations: true-match volume is low and
	// a single budget keeps the worst case predictable.
	SendDelay time.Duration
	// FailureBackoff is the pause after a non-throttle send failure.
	FailureBackoff time.Duration
	// RetryMax bounds attempts per envelope; beyond it the envelope is
	// dropped with an error log so one poisoned destination cannot stall the
	// shared queue.
	RetryMax int
}

func (c *Config) defaults() {
	if c.SendDelay <= 0 {
		c.SendDelay = 3 * time.Second
	}
	if c.FailureBackoff <= 0 {
		c.FailureBackoff = 2 * c.SendDelay
	}
	if c.RetryMax <= 0 {
		c.RetryMax = 5
	}
}

// GroupResolver resolves an envelope's destination at send time, so groups
// removed while queued simply drop out.
type GroupResolver interface {
	Get(id string) (registry.Group, bool)
}

// Dispatcher drains the shared queue in FIFO order through the platform
// senders. One long-lived loop; start with Run.
type Dispatcher struct {
	cfg     Config
	queue   *Queue
	groups  GroupResolver
	senders transport.Sender
	bus     eventbus.Bus
	log     logx.Logger

	pacer *rate.Limiter
}

func New(cfg Config, queue *Queue, groups GroupResolver, senders transport.Sender, bus eventbus.Bus, log logx.Logger) *Dispatcher {
	cfg.defaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		cfg:     cfg,
		queue:   queue,
		groups:  groups,
		senders: senders,
		bus:     bus,
		log:     log,
		pacer:   rate.NewLimiter(rate.Every(cfg.SendDelay), 1),
	}
}

// Run drains the queue until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		env, ok := d.queue.Pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-d.queue.Wait():
				continue
			}
		}
		if ctx.Err() != nil {
			// Shutdown wins over queued work; put the envelope back instead
			// of half-delivering it.
			d.queue.PushFront(env)
			return
		}
		d.deliver(ctx, env)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, env Envelope) {
	g, ok := d.groups.Get(env.GroupID)
	if !ok {
		d.log.Debug("dropping envelope for removed group", logx.String("group", env.GroupID))
		return
	}

	// Global pacing between sends.
	if err := d.pacer.Wait(ctx); err != nil {
		d.queue.PushFront(env)
		return
	}

	env.Attempts++
	err := d.senders.Send(ctx, g.Destination, env.Text)

	var throttled *transport.ThrottledError
	if errors.As(err, &throttled) {
		// Honor the platform's retry-after exactly, then retry once.
		d.log.Warn("send throttled",
			logx.String("group", env.GroupID),
			logx.Duration("retry_after", throttled.RetryAfter))
		if !sleep(ctx, throttled.RetryAfter) {
			d.queue.PushFront(env)
			return
		}
		env.Attempts++
		err = d.senders.Send(ctx, g.Destination, env.Text)
	}

	if err == nil {
		d.bus.Publish(eventbus.Event{Type: eventbus.TypeNotifySent, Data: env.GroupID})
		return
	}

	if env.Attempts > d.cfg.RetryMax {
		d.log.Error("dropping poisoned envelope",
			logx.String("group", env.GroupID),
			logx.Int("attempts", env.Attempts),
			logx.Err(err))
		d.bus.Publish(eventbus.Event{Type: eventbus.TypeNotifyDropped, Data: env.GroupID})
		return
	}

	d.log.Warn("send failed; requeued at head",
		logx.String("group", env.GroupID),
		logx.Int("attempts", env.Attempts),
		logx.Err(err))
	d.queue.PushFront(env)
	sleep(ctx, d.cfg.FailureBackoff)
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
