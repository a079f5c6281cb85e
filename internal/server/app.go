// Package server assembles the engine from configuration and runs its
// long-lived components.
package server

import (
	"database/sql"
	"log/slog"

	"github.com/vmunix/kaizoku/internal/config"
	"github.com/vmunix/kaizoku/internal/download"
	"github.com/vmunix/kaizoku/internal/events"
	"github.com/vmunix/kaizoku/internal/integration"
	"github.com/vmunix/kaizoku/internal/library"
	"github.com/vmunix/kaizoku/internal/metadata"
	"github.com/vmunix/kaizoku/internal/notify"
	"github.com/vmunix/kaizoku/internal/outofsync"
	"github.com/vmunix/kaizoku/internal/queue"
	"github.com/vmunix/kaizoku/internal/reconcile"
	"github.com/vmunix/kaizoku/internal/scheduler"
	"github.com/vmunix/kaizoku/internal/source"
	"github.com/vmunix/kaizoku/internal/titles"
)

// Queue names as stored in the jobs table.
const (
	QueueCheck       = "check"
	QueueDownload    = "download"
	QueueOutOfSync   = "outofsync"
	QueueNotify      = "notify"
	QueueIntegration = "integration"
	QueueMetadata    = "metadata"
)

// Queues holds one queue per work category.
type Queues struct {
	Check       *queue.Queue
	Download    *queue.Queue
	OutOfSync   *queue.Queue
	Notify      *queue.Queue
	Integration *queue.Queue
	Metadata    *queue.Queue
}

// All returns the queues in a stable order.
func (q Queues) All() []*queue.Queue {
	return []*queue.Queue{q.Check, q.Download, q.OutOfSync, q.Notify, q.Integration, q.Metadata}
}

// App is the wired engine. The CLI uses it to enqueue work and inspect
// state; the daemon additionally runs it.
type App struct {
	DB       *sql.DB
	Config   *config.Config
	Store    *library.Store
	EventLog *events.EventLog
	Bus      *events.Bus
	Queues   Queues
	Source   source.Provider

	Downloads    *download.Coordinator
	Reconciler   *reconcile.Reconciler
	Scheduler    *scheduler.Scheduler
	Fixer        *outofsync.Fixer
	Metadata     *metadata.Updater
	Titles       *titles.Service
	Notifier     *notify.Notifier
	Integrations *integration.Set

	logger *slog.Logger
}

// NewApp wires the engine over db. A nil provider uses the mangal CLI
// described by cfg.
func NewApp(db *sql.DB, cfg *config.Config, provider source.Provider, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		provider = source.NewMangal(source.Config{
			Binary:  cfg.Mangal.Binary,
			Timeout: cfg.Mangal.Timeout,
		}, logger.With("component", "mangal"))
	}

	newQueue := func(name string, qc config.QueueConfig) *queue.Queue {
		return queue.New(db, name, queue.Options{Attempts: qc.Attempts, Backoff: qc.Backoff}, logger)
	}

	a := &App{
		DB:       db,
		Config:   cfg,
		Store:    library.NewStore(db),
		EventLog: events.NewEventLog(db),
		Source:   provider,
		Queues: Queues{
			Check:       newQueue(QueueCheck, cfg.Queues.Check),
			Download:    newQueue(QueueDownload, cfg.Queues.Download),
			OutOfSync:   newQueue(QueueOutOfSync, cfg.Queues.OutOfSync),
			Notify:      newQueue(QueueNotify, cfg.Queues.Notify),
			Integration: newQueue(QueueIntegration, cfg.Queues.Integration),
			Metadata:    newQueue(QueueMetadata, cfg.Queues.Metadata),
		},
		logger: logger,
	}
	a.Bus = events.NewBus(a.EventLog, logger)
	a.Notifier = notify.NewNotifier(logger, senders(cfg.Notifications)...)
	a.Integrations = integration.NewSet(logger, refreshers(cfg.Integrations)...)

	a.Downloads = download.NewCoordinator(a.Store, a.Queues.Download, provider, a.Bus, logger)
	a.Reconciler = reconcile.New(a.Store, provider, a.Downloads, a.Bus, logger)
	a.Scheduler = scheduler.New(a.Store, a.Queues.Check, logger)
	a.Fixer = outofsync.NewFixer(a.Store, a.Reconciler, a.Scheduler, a.Queues.OutOfSync, a.Bus, logger)
	a.Metadata = metadata.NewUpdater(a.Store, provider, a.integrationQueue(), a.Bus, logger)
	a.Titles = titles.New(a.Store, provider, a.Scheduler, titles.Queues{
		Downloads:    a.Queues.Download,
		Checks:       a.Queues.Check,
		Fixes:        a.Queues.OutOfSync,
		Metadata:     a.Queues.Metadata,
		Integrations: a.integrationQueue(),
	}, a.Bus, titles.Config{LibraryRoot: cfg.Library.Root}, logger)
	return a
}

// notifyQueue returns the notification queue, or nil when no sender is
// configured.
func (a *App) notifyQueue() queue.JobQueue {
	if !a.Notifier.Enabled() {
		return nil
	}
	return a.Queues.Notify
}

// integrationQueue returns the integration queue, or nil when no library
// server is configured.
func (a *App) integrationQueue() queue.JobQueue {
	if !a.Integrations.Enabled() {
		return nil
	}
	return a.Queues.Integration
}

// Close releases the bus. The database is owned by the caller.
func (a *App) Close() error {
	return a.Bus.Close()
}

func senders(cfg config.NotificationsConfig) []notify.Sender {
	var out []notify.Sender
	if t := cfg.Telegram; t != nil {
		out = append(out, notify.NewTelegram(t.URL, t.Token, t.ChatID))
	}
	if w := cfg.Webhook; w != nil {
		out = append(out, notify.NewWebhook(w.URL, w.Headers))
	}
	return out
}

func refreshers(cfg config.IntegrationsConfig) []integration.Refresher {
	var out []integration.Refresher
	if k := cfg.Komga; k != nil {
		out = append(out, integration.NewKomga(k.URL, k.Username, k.Password))
	}
	if k := cfg.Kavita; k != nil {
		out = append(out, integration.NewKavita(k.URL, k.Username, k.Password))
	}
	return out
}
