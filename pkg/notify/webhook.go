// Package notify delivers attempt outcomes to external systems.
// Currently the only transport is a JSON webhook POST.
package notify

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/presencelabs/go-presence/internal/httpc"
	"github.com/presencelabs/go-presence/internal/log"
	"github.com/presencelabs/go-presence/pkg/gesture"
)

// Event is the webhook payload for a finished attempt.
type Event struct {
	AttemptID string       `json:"attempt_id"`
	Kind      gesture.Kind `json:"kind"`
	Outcome   string       `json:"outcome"` // "confirmed" or "failed"
	Reason    string       `json:"reason,omitempty"`
	FrameID   string       `json:"frame_id,omitempty"`
	At        time.Time    `json:"at"`
}

// Webhook posts attempt events to a configured URL.
type Webhook struct {
	url string
}

// NewWebhook creates a webhook notifier. An empty URL yields a no-op
// notifier so callers don't need to branch on configuration.
func NewWebhook(url string) *Webhook {
	return &Webhook{url: url}
}

// Enabled reports whether a destination URL is configured.
func (w *Webhook) Enabled() bool {
	return w.url != ""
}

// Send posts the event. Delivery failures are returned, not retried;
// the caller decides whether a missed notification matters.
func (w *Webhook) Send(ev Event) error {
	if !w.Enabled() {
		return nil
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}

	resp, err := httpc.Post(w.url, "application/json", body)
	if err != nil {
		return fmt.Errorf("notify: post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned %d", resp.StatusCode)
	}

	log.Debug("webhook delivered", "attempt", ev.AttemptID, "outcome", ev.Outcome)
	return nil
}
