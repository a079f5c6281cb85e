// Package scheduler installs and removes the recurring chapter check of
// each title.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmunix/kaizoku/internal/library"
	"github.com/vmunix/kaizoku/internal/queue"
	"github.com/vmunix/kaizoku/pkg/naming"
)

// Payload is the body of a check job.
type Payload struct {
	TitleID int64 `json:"title_id"`
}

// Scheduler manages check triggers on the check queue.
type Scheduler struct {
	store  *library.Store
	queue  queue.JobQueue
	logger *slog.Logger
}

// New creates a Scheduler over the check queue.
func New(store *library.Store, checks queue.JobQueue, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:  store,
		queue:  checks,
		logger: logger.With("component", "scheduler"),
	}
}

// Schedule replaces the title's recurring check with one matching its
// current interval. A Never interval leaves no trigger installed. With
// runNow a one-shot check is queued as well, whatever the interval.
func (s *Scheduler) Schedule(ctx context.Context, title *library.Title, runNow bool) error {
	key := naming.CheckKey(title.Name)

	// Removal failures must not block installing the new trigger.
	if err := s.queue.RemoveRepeatable(ctx, key); err != nil && !errors.Is(err, queue.ErrNotFound) {
		s.logger.Warn("remove previous trigger failed", "title", title.Name, "key", key, "error", err)
	}

	if !title.Interval.IsNever() {
		err := s.queue.AddRepeatable(ctx, queue.RepeatRequest{
			Key:      key,
			GroupID:  title.ID,
			Interval: title.Interval,
			Payload:  Payload{TitleID: title.ID},
		})
		if err != nil {
			return fmt.Errorf("schedule %s: %w", title.Name, err)
		}
		s.logger.Info("check scheduled", "title", title.Name, "interval", title.Interval.String())
	} else {
		s.logger.Debug("interval is never, no trigger installed", "title", title.Name)
	}

	if runNow {
		if _, err := s.RunNow(ctx, title); err != nil {
			return err
		}
	}
	return nil
}

// Unschedule removes the title's recurring check, if any.
func (s *Scheduler) Unschedule(ctx context.Context, title *library.Title) error {
	err := s.queue.RemoveRepeatable(ctx, naming.CheckKey(title.Name))
	if err != nil && !errors.Is(err, queue.ErrNotFound) {
		return fmt.Errorf("unschedule %s: %w", title.Name, err)
	}
	return nil
}

// RunNow queues a one-shot check of the title. It reports false when one
// is already waiting or running.
func (s *Scheduler) RunNow(ctx context.Context, title *library.Title) (bool, error) {
	added, err := s.queue.Add(ctx, queue.Request{
		Key:     naming.CheckNowKey(title.Name),
		GroupID: title.ID,
		Payload: Payload{TitleID: title.ID},
	})
	if err != nil {
		return false, fmt.Errorf("queue check of %s: %w", title.Name, err)
	}
	return added, nil
}

// RecheckAfter queues a one-shot check that runs after delay. Its key is
// separate from RunNow's, so a check already running does not absorb it.
func (s *Scheduler) RecheckAfter(ctx context.Context, title *library.Title, delay time.Duration) (bool, error) {
	added, err := s.queue.Add(ctx, queue.Request{
		Key:     naming.RecheckKey(title.Name),
		GroupID: title.ID,
		Payload: Payload{TitleID: title.ID},
		Delay:   delay,
	})
	if err != nil {
		return false, fmt.Errorf("queue recheck of %s: %w", title.Name, err)
	}
	return added, nil
}

// Restore reinstalls the trigger of every title in the registry and drops
// triggers whose title no longer exists. The daemon calls it on start.
func (s *Scheduler) Restore(ctx context.Context) (int, error) {
	titles, err := s.store.ListTitles()
	if err != nil {
		return 0, fmt.Errorf("list titles: %w", err)
	}

	keep := make(map[string]bool, len(titles))
	installed := 0
	var errs []error
	for _, t := range titles {
		if !t.Interval.IsNever() {
			keep[naming.CheckKey(t.Name)] = true
		}
		if err := s.Schedule(ctx, t, false); err != nil {
			s.logger.Error("restore trigger failed", "title", t.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		if !t.Interval.IsNever() {
			installed++
		}
	}

	reps, err := s.queue.Repeatables(ctx)
	if err != nil {
		return installed, errors.Join(append(errs, fmt.Errorf("list triggers: %w", err))...)
	}
	for _, r := range reps {
		if keep[r.Key] {
			continue
		}
		if err := s.queue.RemoveRepeatable(ctx, r.Key); err != nil && !errors.Is(err, queue.ErrNotFound) {
			errs = append(errs, err)
			continue
		}
		s.logger.Info("removed orphaned trigger", "key", r.Key)
	}

	s.logger.Info("schedules restored", "titles", len(titles), "triggers", installed)
	return installed, errors.Join(errs...)
}
