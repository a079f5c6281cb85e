// Package metadata rewrites the series metadata embedded in a title's
// archives and asks library servers to pick the change up.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vmunix/kaizoku/internal/events"
	"github.com/vmunix/kaizoku/internal/integration"
	"github.com/vmunix/kaizoku/internal/library"
	"github.com/vmunix/kaizoku/internal/queue"
	"github.com/vmunix/kaizoku/pkg/naming"
)

// Tool rewrites archive metadata in a directory.
type Tool interface {
	UpdateMetadata(ctx context.Context, dir string) error
}

// Payload is the body of a metadata job.
type Payload struct {
	TitleID int64 `json:"title_id"`
}

// Request queues a metadata update of the title on q. It reports false when
// one is already pending.
func Request(ctx context.Context, q queue.JobQueue, title *library.Title) (bool, error) {
	added, err := q.Add(ctx, queue.Request{
		Key:     naming.MetadataKey(title.Name),
		GroupID: title.ID,
		Payload: Payload{TitleID: title.ID},
	})
	if err != nil {
		return false, fmt.Errorf("queue metadata update of %s: %w", title.Name, err)
	}
	return added, nil
}

// Updater runs metadata jobs.
type Updater struct {
	store        *library.Store
	tool         Tool
	integrations queue.JobQueue // nil when no server is configured
	bus          *events.Bus
	logger       *slog.Logger
}

// NewUpdater creates an Updater. integrations and bus may be nil.
func NewUpdater(store *library.Store, tool Tool, integrations queue.JobQueue, bus *events.Bus, logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.Default()
	}
	return &Updater{
		store:        store,
		tool:         tool,
		integrations: integrations,
		bus:          bus,
		logger:       logger.With("component", "metadata"),
	}
}

// Process runs a metadata job. It is the metadata queue's handler.
func (u *Updater) Process(ctx context.Context, job *queue.Job) error {
	var p Payload
	if err := job.Decode(&p); err != nil {
		return fmt.Errorf("%w: %v", queue.ErrPermanent, err)
	}

	title, err := u.store.GetTitle(p.TitleID)
	if errors.Is(err, library.ErrNotFound) {
		return fmt.Errorf("title %d removed: %w", p.TitleID, queue.ErrObsolete)
	}
	if err != nil {
		return fmt.Errorf("load title %d: %w", p.TitleID, err)
	}

	if err := u.tool.UpdateMetadata(ctx, title.Dir()); err != nil {
		return fmt.Errorf("update metadata of %s: %w", title.Name, err)
	}
	u.logger.Info("metadata updated", "title", title.Name, "attempt", job.Attempts)

	if u.bus != nil {
		_ = u.bus.Publish(ctx, &events.MetadataUpdated{
			BaseEvent: events.ForTitle(events.EventMetadataUpdated, title.ID),
			Name:      title.Name,
		})
	}

	if u.integrations == nil {
		return nil
	}
	// A failed refresh retries on its own queue, not by rewriting the
	// archives again.
	if _, err := u.integrations.Add(ctx, queue.Request{
		Key:     naming.IntegrationKey(title.Name),
		GroupID: title.ID,
		Payload: integration.Payload{TitleID: title.ID, Title: title.Name},
	}); err != nil {
		u.logger.Error("enqueue refresh failed", "title", title.Name, "error", err)
	}
	return nil
}
