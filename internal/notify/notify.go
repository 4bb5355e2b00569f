// Package notify delivers planning summary events to an external webhook.
// Delivery is fire-and-forget: failures are logged and never propagate
// into the planning pass.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/config"
	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/events"
)

// Sink receives planning summary events.
type Sink interface {
	events.Listener
}

// NopSink discards all events.
type NopSink = events.NopListener

// summaryTypes lists the event kinds worth pushing externally. Progress
// ticks stay local.
var summaryTypes = map[events.Type]bool{
	events.TypePlanCommitted:           true,
	events.TypeReadinessBelowThreshold: true,
	events.TypeOptimizationSuggestions: true,
}

// WebhookSink posts summary events as JSON to a configured URL.
type WebhookSink struct {
	url     string
	http    *http.Client
	timeout time.Duration
}

// NewWebhookSink creates a sink from configuration. Returns a NopSink
// when no webhook URL is configured.
func NewWebhookSink(cfg config.NotifyConfig) Sink {
	if cfg.WebhookURL == "" {
		return NopSink{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		url:     cfg.WebhookURL,
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Handle implements events.Listener. Progress events are dropped;
// summary events are posted synchronously with a short timeout.
func (s *WebhookSink) Handle(event events.Event) {
	if !summaryTypes[event.Type] {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		slog.Warn("notify: encoding event failed", "type", event.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		slog.Warn("notify: building request failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		slog.Warn("notify: webhook delivery failed", "type", event.Type, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("notify: webhook rejected event", "type", event.Type, "status", resp.StatusCode)
	}
}

// Fanout delivers every event to each listener in order.
type Fanout []events.Listener

// Handle implements events.Listener.
func (f Fanout) Handle(event events.Event) {
	for _, l := range f {
		l.Handle(event)
	}
}
