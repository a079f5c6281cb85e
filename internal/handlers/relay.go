package handlers

import (
	"context"
	"log/slog"

	"github.com/vmunix/kaizoku/internal/events"
	"github.com/vmunix/kaizoku/internal/integration"
	"github.com/vmunix/kaizoku/internal/queue"
	"github.com/vmunix/kaizoku/pkg/naming"
)

// RelayHandler turns chapter downloads into notification and integration
// jobs. Those jobs retry on their own; a failed notification never touches
// the download that caused it.
type RelayHandler struct {
	base
	bus           *events.Bus
	notifications queue.JobQueue // nil when no sender is configured
	integrations  queue.JobQueue // nil when no server is configured
}

// NewRelayHandler creates a relay. Either queue may be nil to disable that
// fan-out.
func NewRelayHandler(bus *events.Bus, notifications, integrations queue.JobQueue, logger *slog.Logger) *RelayHandler {
	return &RelayHandler{
		base:          newBase("relay", logger),
		bus:           bus,
		notifications: notifications,
		integrations:  integrations,
	}
}

// Start begins processing events.
func (h *RelayHandler) Start(ctx context.Context) error {
	ch := h.bus.Subscribe(256, events.EventChapterDownloaded)
	defer h.bus.Unsubscribe(ch)

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return nil // bus closed
			}
			if d, ok := e.(*events.ChapterDownloaded); ok {
				h.chapterDownloaded(ctx, d)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *RelayHandler) chapterDownloaded(ctx context.Context, e *events.ChapterDownloaded) {
	if h.notifications != nil {
		h.add(ctx, h.notifications, queue.Request{
			Key:     naming.NotifyKey(e.Title, e.Index),
			GroupID: e.TitleID,
			Payload: NotifyPayload{
				TitleID:  e.TitleID,
				Title:    e.Title,
				Index:    e.Index,
				FileName: e.FileName,
				Source:   e.Source,
				URL:      e.URL,
			},
		})
	}
	if h.integrations != nil {
		// One waiting refresh per title covers a burst of downloads.
		h.add(ctx, h.integrations, queue.Request{
			Key:     naming.IntegrationKey(e.Title),
			GroupID: e.TitleID,
			Payload: integration.Payload{TitleID: e.TitleID, Title: e.Title},
		})
	}
}

func (h *RelayHandler) add(ctx context.Context, q queue.JobQueue, r queue.Request) {
	added, err := q.Add(ctx, r)
	if err != nil {
		h.logger.Error("enqueue failed", "queue", q.Name(), "key", r.Key, "error", err)
		return
	}
	if added {
		h.logger.Debug("job queued", "queue", q.Name(), "key", r.Key)
	}
}
