package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/kaizoku/internal/config"
	"github.com/vmunix/kaizoku/internal/handlers"
	"github.com/vmunix/kaizoku/internal/queue"
	"github.com/vmunix/kaizoku/internal/watcher"
)

// Runner manages the daemon's long-lived components.
type Runner struct {
	app    *App
	logger *slog.Logger
}

// NewRunner creates a new runner.
func NewRunner(app *App, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		app:    app,
		logger: logger.With("component", "runner"),
	}
}

// Recover returns work left active by a previous process to waiting, lifts
// a download pause nobody is left to lift and reinstalls check triggers.
func (r *Runner) Recover(ctx context.Context) error {
	for _, q := range r.app.Queues.All() {
		n, err := q.ResetStalled(ctx)
		if err != nil {
			return fmt.Errorf("reset stalled %s: %w", q.Name(), err)
		}
		if n > 0 {
			r.logger.Info("requeued stalled jobs", "queue", q.Name(), "count", n)
		}
	}

	if paused, err := r.app.Queues.Download.Paused(ctx); err != nil {
		return err
	} else if paused {
		r.logger.Warn("download queue was left paused, resuming")
		if err := r.app.Queues.Download.Resume(ctx); err != nil {
			return err
		}
	}

	n, err := r.app.Scheduler.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore schedules: %w", err)
	}
	r.logger.Info("schedules restored", "titles", n)
	return nil
}

// Handlers builds the components Run starts.
func (r *Runner) Handlers() []handlers.Handler {
	cfg := r.app.Config
	a := r.app

	worker := func(q *queue.Queue, h queue.Handler, qc config.QueueConfig) handlers.Handler {
		return queue.NewWorker(q, h, queue.WorkerConfig{
			Concurrency:  qc.Concurrency,
			PollInterval: qc.PollInterval,
			Limiter:      queue.NewLimiter(qc.RateLimit, qc.RateWindow),
		}, a.logger)
	}

	hs := []handlers.Handler{
		worker(a.Queues.Check, handlers.CheckJob(a.Reconciler), cfg.Queues.Check),
		worker(a.Queues.Download, a.Downloads.Process, cfg.Queues.Download),
		worker(a.Queues.OutOfSync, handlers.FixJob(a.Fixer), cfg.Queues.OutOfSync),
		worker(a.Queues.Metadata, a.Metadata.Process, cfg.Queues.Metadata),
	}

	// Fan-out queues only exist when something consumes them.
	if a.Notifier.Enabled() {
		hs = append(hs, worker(a.Queues.Notify, handlers.NotifyJob(a.Notifier), cfg.Queues.Notify))
	}
	if a.Integrations.Enabled() {
		hs = append(hs, worker(a.Queues.Integration, handlers.IntegrationJob(a.Integrations), cfg.Queues.Integration))
	}
	hs = append(hs, handlers.NewRelayHandler(a.Bus, a.notifyQueue(), a.integrationQueue(), a.logger))

	cleaners := make([]handlers.Cleaner, 0, len(a.Queues.All()))
	for _, q := range a.Queues.All() {
		cleaners = append(cleaners, q)
	}
	hs = append(hs, handlers.NewMaintenanceHandler(a.EventLog, cleaners, handlers.MaintenanceConfig{
		EventRetention: cfg.Events.Retention,
		JobRetention:   cfg.Events.JobRetention,
	}, a.logger))

	if cfg.Library.Watch {
		hs = append(hs, watcher.New(a.Store, a.Reconciler, watcher.Config{Debounce: cfg.Library.Debounce}, a.logger))
	}
	return hs
}

// Run recovers state, then runs every component until ctx is canceled or
// one of them fails.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Recover(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, h := range r.Handlers() {
		g.Go(func() error {
			r.logger.Debug("starting", "handler", h.Name())
			if err := h.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: %w", h.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
