// Package telegram adapts telebot to the transport.Sender contract and hosts
// the long-poll loop the operator command layer attaches to.
package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"subwatch/internal/registry"
	"subwatch/internal/transport"
	"subwatch/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
}

type Adapter struct {
	log logx.Logger
	bot *tele.Bot

	runMu     sync.Mutex
	runCancel context.CancelFunc
	running   bool
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{log: log, bot: b}, nil
}

// Bot exposes the underlying bot for command handler registration.
// Handlers must be registered before Start.
func (a *Adapter) Bot() *tele.Bot { return a.bot }

// Start begins long polling. It returns immediately; polling runs until the
// context is cancelled or Stop is called.
func (a *Adapter) Start(ctx context.Context) {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return
	}
	a.running = true
	rctx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	a.runMu.Unlock()

	go func() {
		<-rctx.Done()
		a.bot.Stop()
	}()
	go func() {
		a.log.Info("telegram polling started")
		a.bot.Start() // blocks until Stop() called
		a.log.Info("telegram polling stopped")
	}()
}

func (a *Adapter) Stop() {
	a.runMu.Lock()
	cancel := a.runCancel
	a.runCancel = nil
	a.running = false
	a.runMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Send delivers one message. Telegram flood control is surfaced as
// *transport.ThrottledError with the wait Telegram asked for.
func (a *Adapter) Send(ctx context.Context, dest registry.Destination, text string) error {
	chat := &tele.Chat{ID: dest.ChatID}
	// Plain text: rendered messages carry user content verbatim, so no parse
	// mode that could choke on stray markup.
	opt := &tele.SendOptions{
		DisableWebPagePreview: true,
		ThreadID:              dest.ThreadID,
	}
	_, err := a.bot.Send(chat, text, opt)
	if err == nil {
		return nil
	}
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return &transport.ThrottledError{RetryAfter: time.Duration(flood.RetryAfter) * time.Second}
	}
	return err
}
