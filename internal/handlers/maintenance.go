package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/vmunix/kaizoku/internal/events"
)

// Cleaner drops finished jobs older than a cutoff.
type Cleaner interface {
	Name() string
	Clean(ctx context.Context, olderThan time.Duration) (int, error)
}

// MaintenanceConfig configures the maintenance handler.
type MaintenanceConfig struct {
	Interval       time.Duration // default 1h
	EventRetention time.Duration // 0 keeps events forever
	JobRetention   time.Duration // 0 keeps finished jobs forever
}

// MaintenanceHandler prunes the event log and finished jobs.
type MaintenanceHandler struct {
	base
	log    *events.EventLog
	queues []Cleaner
	config MaintenanceConfig
}

// NewMaintenanceHandler creates a maintenance handler.
func NewMaintenanceHandler(log *events.EventLog, queues []Cleaner, config MaintenanceConfig, logger *slog.Logger) *MaintenanceHandler {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	return &MaintenanceHandler{
		base:   newBase("maintenance", logger),
		log:    log,
		queues: queues,
		config: config,
	}
}

// Start runs a pass immediately, then on every interval.
func (h *MaintenanceHandler) Start(ctx context.Context) error {
	ticker := time.NewTicker(h.config.Interval)
	defer ticker.Stop()

	h.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			h.RunOnce(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs one maintenance pass.
func (h *MaintenanceHandler) RunOnce(ctx context.Context) {
	if h.log != nil && h.config.EventRetention > 0 {
		n, err := h.log.Prune(ctx, h.config.EventRetention)
		if err != nil {
			h.logger.Error("prune events failed", "error", err)
		} else if n > 0 {
			h.logger.Info("pruned events", "count", n)
		}
	}
	if h.config.JobRetention <= 0 {
		return
	}
	for _, q := range h.queues {
		n, err := q.Clean(ctx, h.config.JobRetention)
		if err != nil {
			h.logger.Error("clean jobs failed", "queue", q.Name(), "error", err)
			continue
		}
		if n > 0 {
			h.logger.Info("cleaned finished jobs", "queue", q.Name(), "count", n)
		}
	}
}
