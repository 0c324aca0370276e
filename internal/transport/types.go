// Package transport defines the platform-neutral sending contract.
//
// Each chat platform (Telegram, Discord webhooks) implements Sender; the
// dispatcher only sees this interface plus the throttling signal.
package transport

import (
	"context"
	"fmt"
	"time"

	"subwatch/internal/registry"
)

// ThrottledError signals a platform rate limit carrying the wait the platform
// asked for. The dispatcher sleeps exactly RetryAfter and retries once.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("throttled: retry after %s", e.RetryAfter)
}

// Sender delivers one rendered message to a destination.
//
// Implementations return *ThrottledError for platform rate limits and plain
// errors for transport failures; they never retry internally.
type Sender interface {
	Send(ctx context.Context, dest registry.Destination, text string) error
}

// Senders routes by destination platform.
type Senders map[registry.Platform]Sender

func (s Senders) Send(ctx context.Context, dest registry.Destination, text string) error {
	snd, ok := s[dest.Platform]
	if !ok {
		return fmt.Errorf("no sender for platform %q", dest.Platform)
	}
	return snd.Send(ctx, dest, text)
}
