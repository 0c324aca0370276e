// Package discord sends messages through Discord webhooks.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"subwatch/internal/registry"
	"subwatch/internal/transport"
)

// maxContentRunes is Discord's message content limit.
const maxContentRunes = 2000

type Sender struct {
	client *http.Client
}

func New() *Sender {
	return &Sender{client: &http.Client{Timeout: 10 * time.Second}}
}

type payload struct {
	Content string `json:"content"`
}

// rateLimited is the 429 body Discord returns; retry_after is in seconds
// (fractional).
type rateLimited struct {
	RetryAfter float64 `json:"retry_after"`
}

// Send posts one message to the group's webhook. HTTP 429 is surfaced as
// *transport.ThrottledError carrying Discord's retry_after.
func (s *Sender) Send(ctx context.Context, dest registry.Destination, text string) error {
	if dest.Webhook == "" {
		return fmt.Errorf("discord destination has no webhook url")
	}
	// Discord caps content at 2000 characters (codepoints, not bytes).
	if r := []rune(text); len(r) > maxContentRunes {
		text = string(r[:maxContentRunes-3]) + "..."
	}

	body, err := json.Marshal(payload{Content: text})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dest.Webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		var rl rateLimited
		_ = json.NewDecoder(resp.Body).Decode(&rl)
		wait := time.Duration(rl.RetryAfter * float64(time.Second))
		if wait <= 0 {
			wait = 5 * time.Second
		}
		return &transport.ThrottledError{RetryAfter: wait}
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("discord webhook error: %s", resp.Status)
	}
	return nil
}
