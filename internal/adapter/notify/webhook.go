package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"creator-payout-service/internal/core/domain"

	"github.com/rs/zerolog"
)

// HTTPClient abstracts http.Client for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookNotifier implements ports.Notifier by POSTing the notification
// as JSON to the delivery collaborator. This core never inspects
// delivery results beyond the response status.
type WebhookNotifier struct {
	url    string
	client HTTPClient
	log    zerolog.Logger
}

// NewWebhookNotifier creates a notifier targeting the given endpoint.
func NewWebhookNotifier(url string, client HTTPClient, log zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{url: url, client: client, log: log}
}

// payload is the wire shape handed to the delivery collaborator.
type payload struct {
	AccountID string            `json:"account_id"`
	Type      string            `json:"type"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// Send delivers one notification. Callers treat errors as transient and
// only log them; the state change that triggered the notification has
// already committed.
func (n *WebhookNotifier) Send(ctx context.Context, notification domain.Notification) error {
	body, err := json.Marshal(payload{
		AccountID: notification.AccountID.String(),
		Type:      string(notification.Type),
		Data:      notification.Data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}

	n.log.Debug().
		Str("account_id", notification.AccountID.String()).
		Str("type", string(notification.Type)).
		Msg("notification delivered")
	return nil
}

// LogNotifier implements ports.Notifier by logging only, for
// environments without a delivery endpoint configured.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Send logs the notification and reports success.
func (n *LogNotifier) Send(_ context.Context, notification domain.Notification) error {
	n.log.Info().
		Str("account_id", notification.AccountID.String()).
		Str("type", string(notification.Type)).
		Msg("notification (log only)")
	return nil
}
