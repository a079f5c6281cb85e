// Package titles is the boundary for adding, updating and removing tracked
// titles. It validates input, writes the registry and keeps schedules and
// queued work consistent with it.
package titles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/vmunix/kaizoku/internal/events"
	"github.com/vmunix/kaizoku/internal/integration"
	"github.com/vmunix/kaizoku/internal/library"
	"github.com/vmunix/kaizoku/internal/metadata"
	"github.com/vmunix/kaizoku/internal/queue"
	"github.com/vmunix/kaizoku/internal/source"
	"github.com/vmunix/kaizoku/pkg/interval"
	"github.com/vmunix/kaizoku/pkg/naming"
)

// Source reports the installed sources and pins metadata entries.
type Source interface {
	Sources(ctx context.Context) ([]string, error)
	BindAnilist(ctx context.Context, title, anilistID string) error
}

// Scheduler installs and removes check triggers.
type Scheduler interface {
	Schedule(ctx context.Context, title *library.Title, runNow bool) error
	Unschedule(ctx context.Context, title *library.Title) error
}

// Queues are the queues holding per-title work. Integrations is nil when no
// library server is configured.
type Queues struct {
	Downloads    queue.JobQueue
	Checks       queue.JobQueue
	Fixes        queue.JobQueue
	Metadata     queue.JobQueue
	Integrations queue.JobQueue
}

// Config configures the service.
type Config struct {
	LibraryRoot  string
	PauseTimeout time.Duration // wait for in-flight downloads on removal, default 30s
}

// AddRequest describes a new title.
type AddRequest struct {
	Name     string
	Source   string
	Interval interval.Interval
	URL      *string
	// LibraryRoot overrides the configured root.
	LibraryRoot string
	// AnilistID pins the metadata entry when the name alone is ambiguous.
	AnilistID string
	RunNow    bool
}

// UpdateRequest changes a title. Nil fields are left as they are.
type UpdateRequest struct {
	Source   *string
	Interval *interval.Interval
	URL      *string
	// AnilistID rebinds the metadata entry and queues a metadata update.
	AnilistID *string
	RunNow    bool
}

// RemoveOptions controls title removal.
type RemoveOptions struct {
	DeleteFiles bool
}

// Service manages the lifecycle of tracked titles.
type Service struct {
	store   *library.Store
	sources Source
	sched   Scheduler
	queues  Queues
	bus     *events.Bus
	cfg     Config
	logger  *slog.Logger
}

// New creates a title service.
func New(store *library.Store, sources Source, sched Scheduler, queues Queues, bus *events.Bus, cfg Config, logger *slog.Logger) *Service {
	if cfg.PauseTimeout <= 0 {
		cfg.PauseTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		sources: sources,
		sched:   sched,
		queues:  queues,
		bus:     bus,
		cfg:     cfg,
		logger:  logger.With("component", "titles"),
	}
}

// Add validates and registers a title, then schedules it.
func (s *Service) Add(ctx context.Context, req AddRequest) (*library.Title, error) {
	name := strings.TrimSpace(req.Name)
	if naming.Sanitize(name) == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, req.Name)
	}
	root := req.LibraryRoot
	if root == "" {
		root = s.cfg.LibraryRoot
	}
	if root == "" {
		return nil, errors.New("no library root configured")
	}
	if err := s.checkSource(ctx, req.Source); err != nil {
		return nil, err
	}
	if err := s.checkDirFree(name, 0); err != nil {
		return nil, err
	}
	if id := strings.TrimSpace(req.AnilistID); id != "" {
		if err := s.sources.BindAnilist(ctx, name, id); err != nil {
			return nil, fmt.Errorf("bind %q to anilist %s: %w", name, id, err)
		}
	}

	title := &library.Title{
		Name:        name,
		Source:      req.Source,
		LibraryRoot: root,
		Interval:    req.Interval,
		URL:         req.URL,
	}
	if err := s.store.AddTitle(title); err != nil {
		if errors.Is(err, library.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %q", ErrTitleExists, name)
		}
		return nil, err
	}
	s.logger.Info("title added", "title_id", title.ID, "title", title.Name, "source", title.Source,
		"interval", title.Interval.String())

	s.publish(ctx, &events.TitleAdded{
		BaseEvent: events.ForTitle(events.EventTitleAdded, title.ID),
		Name:      title.Name,
		Source:    title.Source,
		Interval:  title.Interval.String(),
	})

	if err := s.sched.Schedule(ctx, title, req.RunNow); err != nil {
		return title, fmt.Errorf("schedule %q: %w", title.Name, err)
	}
	return title, nil
}

// Update applies req to the title and reschedules it.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*library.Title, error) {
	title, err := s.store.GetTitle(id)
	if err != nil {
		return nil, err
	}
	if req.Source != nil && *req.Source != title.Source {
		if err := s.checkSource(ctx, *req.Source); err != nil {
			return nil, err
		}
		title.Source = *req.Source
	}
	if req.Interval != nil && !req.Interval.Equal(title.Interval) {
		s.logger.Info("interval changed", "title_id", title.ID, "from", title.Interval.String(),
			"to", req.Interval.String())
		title.Interval = *req.Interval
	}
	if req.URL != nil {
		if *req.URL == "" {
			title.URL = nil
		} else {
			title.URL = req.URL
		}
	}

	if err := s.store.UpdateTitle(title); err != nil {
		return nil, err
	}
	s.logger.Info("title updated", "title_id", title.ID, "title", title.Name, "interval", title.Interval.String())

	s.publish(ctx, &events.TitleUpdated{
		BaseEvent: events.ForTitle(events.EventTitleUpdated, title.ID),
		Name:      title.Name,
		Source:    title.Source,
		Interval:  title.Interval.String(),
	})

	if err := s.sched.Schedule(ctx, title, req.RunNow); err != nil {
		return title, fmt.Errorf("schedule %q: %w", title.Name, err)
	}

	if req.AnilistID != nil && strings.TrimSpace(*req.AnilistID) != "" {
		id := strings.TrimSpace(*req.AnilistID)
		if err := s.sources.BindAnilist(ctx, title.Name, id); err != nil {
			return title, fmt.Errorf("bind %q to anilist %s: %w", title.Name, id, err)
		}
		if _, err := s.RefreshMetadata(ctx, title.ID); err != nil {
			return title, err
		}
	}
	return title, nil
}

// RefreshMetadata queues a rewrite of the title's archive metadata. It
// reports false when one is already pending.
func (s *Service) RefreshMetadata(ctx context.Context, id int64) (bool, error) {
	if s.queues.Metadata == nil {
		return false, errors.New("no metadata queue configured")
	}
	title, err := s.store.GetTitle(id)
	if err != nil {
		return false, err
	}
	added, err := metadata.Request(ctx, s.queues.Metadata, title)
	if err != nil {
		return false, err
	}
	if added {
		s.logger.Info("metadata update queued", "title_id", title.ID, "title", title.Name)
	}
	return added, nil
}

// Remove deletes a title with its chapters, trigger and pending work.
// Downloads are paused for the duration so no in-flight download records a
// chapter after the title is gone.
func (s *Service) Remove(ctx context.Context, id int64, opts RemoveOptions) error {
	title, err := s.store.GetTitle(id)
	if err != nil {
		return err
	}
	log := s.logger.With("title_id", title.ID, "title", title.Name)

	if s.queues.Downloads != nil {
		if err := s.queues.Downloads.Pause(ctx, s.cfg.PauseTimeout); err != nil {
			if !errors.Is(err, queue.ErrPauseTimeout) {
				return fmt.Errorf("pause downloads: %w", err)
			}
			log.Warn("downloads still running, removing anyway", "timeout", s.cfg.PauseTimeout)
		}
		defer func() {
			if err := s.queues.Downloads.Resume(context.WithoutCancel(ctx)); err != nil {
				log.Error("resume downloads failed", "error", err)
			}
		}()
	}

	if err := s.store.DeleteTitle(title.ID); err != nil {
		return err
	}
	if err := s.sched.Unschedule(ctx, title); err != nil {
		log.Error("unschedule failed", "error", err)
	}
	for _, q := range []queue.JobQueue{s.queues.Downloads, s.queues.Checks, s.queues.Fixes, s.queues.Metadata, s.queues.Integrations} {
		if q == nil {
			continue
		}
		n, err := q.RemoveGroup(ctx, title.ID)
		if err != nil {
			log.Error("remove pending jobs failed", "queue", q.Name(), "error", err)
			continue
		}
		if n > 0 {
			log.Debug("removed pending jobs", "queue", q.Name(), "count", n)
		}
	}

	filesRemoved := false
	if opts.DeleteFiles {
		if err := os.RemoveAll(title.Dir()); err != nil {
			log.Error("delete title directory failed", "dir", title.Dir(), "error", err)
		} else {
			filesRemoved = true
		}
	}
	log.Info("title removed", "files_removed", filesRemoved)

	// Library servers still list the deleted series until they rescan.
	if filesRemoved && s.queues.Integrations != nil {
		_, err := s.queues.Integrations.Add(ctx, queue.Request{
			Key:     naming.IntegrationKey(title.Name),
			Payload: integration.Payload{TitleID: title.ID, Title: title.Name, ScanOnly: true},
		})
		if err != nil {
			log.Error("queue library scan failed", "error", err)
		}
	}

	s.publish(ctx, &events.TitleRemoved{
		BaseEvent:    events.ForTitle(events.EventTitleRemoved, title.ID),
		Name:         title.Name,
		LibraryRoot:  title.LibraryRoot,
		FilesRemoved: filesRemoved,
	})
	return nil
}

// checkSource rejects sources mangal does not know, with a suggestion when
// one is close.
func (s *Service) checkSource(ctx context.Context, src string) error {
	if strings.TrimSpace(src) == "" {
		return fmt.Errorf("%w: empty source", ErrUnknownSource)
	}
	installed, err := s.sources.Sources(ctx)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}
	if source.Contains(installed, src) {
		return nil
	}
	if hint, ok := source.Suggest(src, installed); ok {
		return fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownSource, src, hint)
	}
	return fmt.Errorf("%w: %q", ErrUnknownSource, src)
}

// checkDirFree rejects a name whose directory another title already uses.
func (s *Service) checkDirFree(name string, selfID int64) error {
	all, err := s.store.ListTitles()
	if err != nil {
		return err
	}
	dir := naming.Sanitize(name)
	for _, t := range all {
		if t.ID != selfID && naming.Sanitize(t.Name) == dir {
			return fmt.Errorf("%w: %q shares directory %q with %q", ErrTitleExists, name, dir, t.Name)
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, e); err != nil {
		s.logger.Warn("publish failed", "type", e.EventType(), "error", err)
	}
}
