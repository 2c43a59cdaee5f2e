package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/felixgeelhaar/taskplan/internal/errors"
	"github.com/felixgeelhaar/taskplan/internal/plan"
)

const defaultWebhookTimeout = 5 * time.Second

// WebhookNotifier POSTs plan snapshots to a configured URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier for the given URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: defaultWebhookTimeout,
		},
	}
}

// webhookPayload is the wire format of a plan-changed notification.
type webhookPayload struct {
	Event string     `json:"event"`
	Plan  *plan.Plan `json:"plan"`
}

// NotifyPlanChanged implements Notifier.
func (n *WebhookNotifier) NotifyPlanChanged(ctx context.Context, p *plan.Plan) error {
	body, err := json.Marshal(webhookPayload{Event: "plan.changed", Plan: p})
	if err != nil {
		return errors.Wrap(errors.ErrCodeNotifyDelivery, "failed to encode webhook payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(errors.ErrCodeNotifyDelivery, "failed to build webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNotifyDelivery, "webhook delivery failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New(errors.ErrCodeNotifyDelivery,
			fmt.Sprintf("webhook responded with status %d", resp.StatusCode))
	}
	return nil
}
