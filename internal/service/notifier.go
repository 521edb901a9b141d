package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/google/uuid"
)

// EventPublisher receives domain events after the state change they
// describe has been saved. Publish must not block the caller.
type EventPublisher interface {
	Publish(evt domain.Event)
}

// MultiPublisher fans an event out to several publishers.
type MultiPublisher []EventPublisher

// Publish forwards evt to every publisher.
func (m MultiPublisher) Publish(evt domain.Event) {
	for _, p := range m {
		p.Publish(evt)
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(domain.Event) {}

// WebhookNotifier posts every event as JSON to a fixed list of URLs.
// Delivery is fire-and-forget: failures are logged and never retried.
type WebhookNotifier struct {
	urls   []string
	client *http.Client
	logger *slog.Logger
}

// NewWebhookNotifier creates a WebhookNotifier.
func NewWebhookNotifier(urls []string, timeout time.Duration, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		urls: urls,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Publish delivers evt to each configured URL in its own goroutine.
func (n *WebhookNotifier) Publish(evt domain.Event) {
	if len(n.urls) == 0 {
		return
	}
	body, err := json.Marshal(evt)
	if err != nil {
		n.logger.Error("webhook: marshal event",
			slog.String("event", evt.Type),
			slog.String("error", err.Error()),
		)
		return
	}
	for _, u := range n.urls {
		go n.deliver(u, evt.Type, body)
	}
}

// deliver sends the payload via HTTP POST with the delivery headers.
func (n *WebhookNotifier) deliver(url, eventType string, body []byte) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("webhook: build request", slog.String("url", url), slog.String("error", err.Error()))
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Event-Type", eventType)

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook: delivery failed",
			slog.String("url", url),
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("webhook: non-2xx response",
			slog.String("url", url),
			slog.String("event", eventType),
			slog.Int("status", resp.StatusCode),
		)
	}
}

func newEvent(typ string, now time.Time, data any) domain.Event {
	return domain.Event{
		Type:      typ,
		Timestamp: now.UTC().Truncate(time.Second),
		Data:      data,
	}
}

// Event payloads. Money is rendered as JSON numbers.

type playerRegisteredData struct {
	PlayerID string  `json:"playerId"`
	Name     string  `json:"name"`
	Cash     float64 `json:"cash"`
}

type tradeExecutedData struct {
	TradeID  string  `json:"tradeId"`
	PlayerID string  `json:"playerId"`
	Symbol   string  `json:"symbol"`
	Action   string  `json:"action"`
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
	Total    float64 `json:"total"`
	Cash     float64 `json:"cash"`
}

type gameEventData struct {
	GameID       string   `json:"gameId"`
	Name         string   `json:"name"`
	Status       string   `json:"status"`
	WinnerID     *string  `json:"winnerId,omitempty"`
	WinnerName   *string  `json:"winnerName,omitempty"`
	WinnerValue  *float64 `json:"winnerValue,omitempty"`
	Participants int      `json:"participants"`
}
