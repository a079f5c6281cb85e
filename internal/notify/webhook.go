package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

var _ Sender = (*Webhook)(nil)

// Webhook posts messages as JSON to an arbitrary URL.
type Webhook struct {
	url        string
	headers    map[string]string
	httpClient *http.Client
}

// NewWebhook creates a webhook sender. headers are added to every request.
func NewWebhook(url string, headers map[string]string) *Webhook {
	return &Webhook{url: url, headers: headers, httpClient: newHTTPClient()}
}

func (w *Webhook) Name() string { return "webhook" }

type webhookPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// Send posts the message.
func (w *Webhook) Send(ctx context.Context, m Message) error {
	body, err := json.Marshal(webhookPayload{Title: m.Title, Body: m.Body, URL: m.URL})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	return statusError(resp)
}
