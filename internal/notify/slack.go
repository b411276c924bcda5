package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matthieukhl/storepulse/internal/types"
)

// DeliveryError reports a webhook that did not accept the message.
type DeliveryError struct {
	Status int
	Body   string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook post failed: %d %s", e.Status, e.Body)
}

type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

type slackMessage struct {
	Text string `json:"text"`
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Notify posts {"text": text} once. Only a 200 counts as delivered; there
// is no retry.
func (n *SlackNotifier) Notify(ctx context.Context, text string) error {
	jsonData, err := json.Marshal(slackMessage{Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return &DeliveryError{Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// Compile-time interface check
var _ types.Notifier = (*SlackNotifier)(nil)
