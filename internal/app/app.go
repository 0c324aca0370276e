// Package app wires the components into a running engine: config, logging,
// storage, registry, dedup index, producers (stream + sweep), the dispatch
// queue, platform senders and the Telegram command surface.
package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"subwatch/internal/config"
	"subwatch/internal/control"
	"subwatch/internal/dedup"
	"subwatch/internal/dispatch"
	"subwatch/internal/engine"
	"subwatch/internal/eventbus"
	"subwatch/internal/reddit"
	"subwatch/internal/registry"
	"subwatch/internal/stats"
	"subwatch/internal/storage"
	"subwatch/internal/transport"
	"subwatch/internal/transport/discord"
	"subwatch/internal/transport/telegram"
	"subwatch/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store    storage.Store
	registry *registry.Registry
	index    *dedup.Index
	queue    *dispatch.Queue
	stats    *stats.Collector

	telegram   *telegram.Adapter
	dispatcher *dispatch.Dispatcher
	pipeline   *engine.Pipeline
	stream     *engine.Stream
	sweep      *engine.Sweep

	saveInterval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	a := &App{cfgm: cfgm, log: log, logs: logSvc, bus: eventbus.New()}
	if err := a.build(cfg); err != nil {
		logSvc.Close()
		return nil, err
	}
	return a, nil
}

// build constructs every component from a validated config. Durations are
// materialized here so a bad duration string fails boot, not a send.
func (a *App) build(cfg *config.Config) error {
	log := a.log

	// Storage first: boot restores from it before the producers start.
	if sc := cfg.Storage; sc != nil {
		busy, err := config.Duration("storage.busy_timeout", sc.BusyTimeout, 0)
		if err != nil {
			return err
		}
		st, err := storage.Open(storage.Config{
			Driver:      sc.Driver,
			Path:        sc.Path,
			BusyTimeout: busy,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			return err
		}
		a.store = st
		a.saveInterval, err = config.Duration("storage.save_interval", sc.SaveInterval, time.Minute)
		if err != nil {
			return err
		}
		if st != nil {
			log.Info("storage enabled", logx.String("driver", sc.Driver))
		}
	}

	a.registry = registry.New(cfg.OwnerGroupID())
	a.index = dedup.New(cfg.Dedup.HighWater, cfg.Dedup.LowWater)
	a.registry.OnRemove(a.index.Forget)

	if a.store != nil {
		if err := a.restore(context.Background()); err != nil {
			log.Warn("state restore failed; starting fresh", logx.Err(err))
		}
	}
	a.ensureOwnerGroup(cfg)

	a.queue = dispatch.NewQueue()
	a.stats = stats.New(a.queue)

	pollTimeout, err := config.Duration("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return err
	}
	tg, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return err
	}
	a.telegram = tg

	senders := transport.Senders{
		registry.PlatformTelegram: tg,
		registry.PlatformDiscord:  discord.New(),
	}

	sendDelay, err := config.Duration("dispatch.send_delay", cfg.Dispatch.SendDelay, 3*time.Second)
	if err != nil {
		return err
	}
	failureBackoff, err := config.Duration("dispatch.failure_backoff", cfg.Dispatch.FailureBackoff, 2*sendDelay)
	if err != nil {
		return err
	}
	a.dispatcher = dispatch.New(dispatch.Config{
		SendDelay:      sendDelay,
		FailureBackoff: failureBackoff,
		RetryMax:       cfg.Dispatch.RetryMax,
	}, a.queue, a.registry, senders, a.bus, log.With(logx.String("comp", "dispatch")))

	client, err := reddit.NewClient(reddit.Config{
		ClientID:       cfg.Reddit.ClientID,
		ClientSecret:   cfg.Reddit.ClientSecret,
		Username:       cfg.Reddit.Username,
		Password:       cfg.Reddit.Password,
		UserAgent:      cfg.Reddit.UserAgent,
		RequestsPerMin: cfg.Reddit.RequestsPerMin,
	}, log.With(logx.String("comp", "reddit")))
	if err != nil {
		return err
	}

	a.pipeline = engine.NewPipeline(a.registry, a.index, a.queue, a.bus, a.stats,
		log.With(logx.String("comp", "pipeline")))

	pollInterval, err := config.Duration("stream.poll_interval", cfg.Stream.PollInterval, 5*time.Second)
	if err != nil {
		return err
	}
	cooldown, err := config.Duration("stream.cooldown", cfg.Stream.Cooldown, 30*time.Second)
	if err != nil {
		return err
	}
	longCooldown, err := config.Duration("stream.long_cooldown", cfg.Stream.LongCooldown, 5*time.Minute)
	if err != nil {
		return err
	}
	source := engine.SubscriberFunc(func(subreddit string) engine.Subscription {
		return client.NewCommentStream(subreddit)
	})
	a.stream = engine.NewStream(engine.StreamConfig{
		Subreddit:        cfg.Stream.Subreddit,
		PollInterval:     pollInterval,
		Cooldown:         cooldown,
		LongCooldown:     longCooldown,
		FailureThreshold: cfg.Stream.FailureThreshold,
	}, source, a.pipeline, a.bus, log.With(logx.String("comp", "stream")))

	pacing, err := config.Duration("sweep.pacing", cfg.Sweep.Pacing, 2*time.Second)
	if err != nil {
		return err
	}
	a.sweep, err = engine.NewSweep(engine.SweepConfig{
		Schedule:       cfg.Sweep.Schedule,
		TimeWindow:     cfg.Sweep.TimeWindow,
		Limit:          cfg.Sweep.Limit,
		Pacing:         pacing,
		DefaultTargets: cfg.Sweep.DefaultTargets,
	}, client, a.registry, a.pipeline, a.bus, log.With(logx.String("comp", "sweep")))
	if err != nil {
		return err
	}

	ctl := control.New(a.registry, a.stats, cfg.Telegram.OwnerUserIDs,
		log.With(logx.String("comp", "control")))
	ctl.Register(tg.Bot())

	return nil
}

// ensureOwnerGroup creates the protected control group bound to the
// configured owner chat if the restored state did not carry it.
func (a *App) ensureOwnerGroup(cfg *config.Config) {
	id := cfg.OwnerGroupID()
	if _, ok := a.registry.Get(id); ok {
		return
	}
	_, err := a.registry.AddGroup(registry.Group{
		ID:      id,
		Enabled: true,
		Destination: registry.Destination{
			Platform: registry.PlatformTelegram,
			ChatID:   cfg.Owner.ChatID,
			ThreadID: cfg.Owner.ThreadID,
		},
	})
	if err != nil {
		a.log.Warn("owner group not created", logx.Err(err))
		return
	}
	a.log.Info("owner group created", logx.String("group", id), logx.Int64("chat_id", cfg.Owner.ChatID))
}

func (a *App) restore(ctx context.Context) error {
	st, err := a.store.Load(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoState) {
			return nil
		}
		return err
	}
	a.registry.Restore(st.Groups)
	a.index.Restore(st.Dedup)
	a.log.Info("state restored",
		logx.Int("groups", len(st.Groups)),
		logx.Time("saved_at", st.SavedAt))
	return nil
}

func (a *App) save(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	return a.store.Save(ctx, &storage.State{
		SavedAt: time.Now().UTC(),
		Groups:  a.registry.Snapshot(),
		Dedup:   a.index.Snapshot(),
	})
}

func (a *App) Start(ctx context.Context) error {
	rctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.go0(func() { a.stats.Run(rctx, a.bus) })
	a.go0(func() { a.dispatcher.Run(rctx) })
	a.go0(func() { a.stream.Run(rctx) })
	a.go0(func() { a.sweep.Run(rctx) })
	a.telegram.Start(rctx)

	// Hot reload: only logging applies live; everything else needs a restart.
	sub := a.cfgm.Subscribe(8)
	a.go0(func() { a.applyLoop(rctx, sub) })
	a.go0(func() {
		if err := a.cfgm.Watch(rctx); err != nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	})

	if a.store != nil {
		a.go0(func() { a.saveLoop(rctx) })
	}

	a.log.Info("started",
		logx.Int("groups", a.registry.Len()),
		logx.String("stream_subreddit", streamSubreddit(a.cfgm.Current())))
	return nil
}

func (a *App) applyLoop(ctx context.Context, sub chan *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			a.logs.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			a.log.Info("logging config applied",
				logx.String("level", cfg.Logging.Level))
		}
	}
}

func (a *App) saveLoop(ctx context.Context) {
	t := time.NewTicker(a.saveInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := a.save(sctx); err != nil {
				a.log.Warn("periodic save failed", logx.Err(err))
			}
			cancel()
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.telegram.Stop()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("shutdown timed out waiting for workers")
	}

	var err error
	if a.store != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if serr := a.save(sctx); serr != nil {
			a.log.Error("final save failed", logx.Err(serr))
			err = serr
		}
		cancel()
		if cerr := a.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	a.log.Info("stopped")
	a.logs.Close()
	return err
}

func (a *App) go0(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

func streamSubreddit(cfg *config.Config) string {
	if cfg == nil || strings.TrimSpace(cfg.Stream.Subreddit) == "" {
		return "all"
	}
	return cfg.Stream.Subreddit
}
