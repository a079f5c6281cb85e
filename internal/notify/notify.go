//go:generate mockgen -source=notify.go -destination=mocks/mock_notify.go -package=mocks

// Package notify delivers chapter notifications to chat and webhook
// endpoints.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ErrRejected indicates the endpoint refused the message in a way a retry
// will not fix, such as a bad token or chat id.
var ErrRejected = errors.New("notification rejected")

// Message is a rendered notification.
type Message struct {
	Title string
	Body  string
	URL   string // optional link appended to the message
}

// ChapterMessage renders the notification for a downloaded chapter. index
// is 0-based and shown 1-based.
func ChapterMessage(title string, index int, fileName, source string, url *string) Message {
	m := Message{
		Title: "Chapter grabbed",
		Body:  fmt.Sprintf("Chapter #%d downloaded as %s for %s from %s", index+1, fileName, title, source),
	}
	if url != nil {
		m.URL = *url
	}
	return m
}

// Sender delivers a message to one endpoint.
type Sender interface {
	Name() string
	Send(ctx context.Context, m Message) error
}

// Notifier fans a message out to every configured sender.
type Notifier struct {
	senders []Sender
	log     *slog.Logger
}

// NewNotifier creates a Notifier. With no senders Send does nothing.
func NewNotifier(log *slog.Logger, senders ...Sender) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{senders: senders, log: log.With("component", "notify")}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return len(n.senders) > 0
}

// Send delivers m to every sender. The result joins each sender's error.
func (n *Notifier) Send(ctx context.Context, m Message) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, m); err != nil {
			n.log.Warn("notification failed", "sender", s.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.log.Debug("notification sent", "sender", s.Name(), "title", m.Title)
	}
	return errors.Join(errs...)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// statusError maps a non-2xx response to an error. Client errors other than
// rate limiting are not retryable.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	return fmt.Errorf("unexpected status: %d", resp.StatusCode)
}
