package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Notifier delivers a message to a human-facing channel. Delivery is best
// effort: failures are logged, never returned.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// NotificationError describes a failed webhook delivery.
type NotificationError struct {
	StatusCode int
	Err        error
}

func (e *NotificationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("notification rejected with status %d", e.StatusCode)
	}
	return fmt.Sprintf("notification failed: %v", e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

var _ Notifier = (*WebhookNotifier)(nil)

// WebhookNotifier posts {"text": message} to a Slack-compatible incoming webhook.
type WebhookNotifier struct {
	httpClient *http.Client
	webhookURL string
	userAgent  string
	timeout    time.Duration
	onFailure  func(error)
}

func NewWebhookNotifier(httpClient *http.Client, webhookURL, userAgent string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		httpClient: httpClient,
		webhookURL: webhookURL,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// OnFailure registers a hook invoked for every failed delivery.
func (n *WebhookNotifier) OnFailure(hook func(error)) {
	n.onFailure = hook
}

func (n *WebhookNotifier) Notify(ctx context.Context, message string) {
	if n.webhookURL == "" {
		slog.Warn("Webhook URL not configured, skipping notification")
		return
	}

	if err := n.send(ctx, message); err != nil {
		slog.Error("Failed to send notification", "error", err)
		if n.onFailure != nil {
			n.onFailure(err)
		}
		return
	}

	slog.Debug("Notification sent")
}

func (n *WebhookNotifier) send(ctx context.Context, message string) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return &NotificationError{Err: fmt.Errorf("failed to encode payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return &NotificationError{Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return &NotificationError{Err: err}
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &NotificationError{StatusCode: resp.StatusCode}
	}

	return nil
}
