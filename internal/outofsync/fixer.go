// Package outofsync removes chapters whose file name no longer matches the
// source so that the next check downloads them again.
package outofsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vmunix/kaizoku/internal/events"
	"github.com/vmunix/kaizoku/internal/library"
	"github.com/vmunix/kaizoku/internal/queue"
	"github.com/vmunix/kaizoku/pkg/naming"
)

// Syncer re-reads a title's directory into the registry.
type Syncer interface {
	SyncRegistry(ctx context.Context, titleID int64) (*library.SyncResult, error)
}

// Rescheduler reinstalls a title's checks.
type Rescheduler interface {
	Schedule(ctx context.Context, title *library.Title, runNow bool) error
	RunNow(ctx context.Context, title *library.Title) (bool, error)
	RecheckAfter(ctx context.Context, title *library.Title, delay time.Duration) (bool, error)
}

// RecheckDelay is how long after a fix the follow-up check runs when a
// check was already queued or running.
const RecheckDelay = time.Minute

// Payload is the body of a fix job.
type Payload struct {
	TitleID int64 `json:"title_id"`
}

// Result reports what a fix removed.
type Result struct {
	Removed []*library.Chapter
	Failed  []*library.Chapter
}

// Fixer deletes flagged chapters and triggers a fresh check.
type Fixer struct {
	store     *library.Store
	syncer    Syncer
	scheduler Rescheduler
	queue     queue.JobQueue
	bus       *events.Bus
	logger    *slog.Logger
}

// NewFixer creates a Fixer. fixes is the queue Request adds to; bus may be
// nil.
func NewFixer(store *library.Store, syncer Syncer, scheduler Rescheduler, fixes queue.JobQueue, bus *events.Bus, logger *slog.Logger) *Fixer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fixer{
		store:     store,
		syncer:    syncer,
		scheduler: scheduler,
		queue:     fixes,
		bus:       bus,
		logger:    logger.With("component", "outofsync"),
	}
}

// Request queues a fix of the title. It reports false when one is already
// pending.
func (f *Fixer) Request(ctx context.Context, title *library.Title) (bool, error) {
	added, err := f.queue.Add(ctx, queue.Request{
		Key:     naming.FixKey(title.Name),
		GroupID: title.ID,
		Payload: Payload{TitleID: title.ID},
	})
	if err != nil {
		return false, fmt.Errorf("queue fix of %s: %w", title.Name, err)
	}
	return added, nil
}

// Fix deletes every flagged chapter of the title, file and registry row,
// then queues an immediate check so the chapters are downloaded again
// under their current names. A chapter that cannot be removed is logged
// and left flagged.
func (f *Fixer) Fix(ctx context.Context, titleID int64) (*Result, error) {
	title, err := f.store.GetTitle(titleID)
	if err != nil {
		return nil, fmt.Errorf("fix title %d: %w", titleID, err)
	}
	log := f.logger.With("title", title.Name)

	if _, err := f.syncer.SyncRegistry(ctx, title.ID); err != nil {
		return nil, err
	}

	flagged, err := f.store.ListOutOfSync(title.ID)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, c := range flagged {
		path := filepath.Join(title.Dir(), c.FileName)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Error("delete chapter file failed", "file", c.FileName, "error", err)
			res.Failed = append(res.Failed, c)
			continue
		}
		if err := f.store.RemoveOutOfSyncChapter(c.ID); err != nil {
			log.Error("delete chapter row failed", "file", c.FileName, "error", err)
			res.Failed = append(res.Failed, c)
			continue
		}
		res.Removed = append(res.Removed, c)
		log.Info("removed out-of-sync chapter", "index", c.Index, "file", c.FileName)

		if f.bus != nil {
			_ = f.bus.Publish(ctx, &events.ChapterRemoved{
				BaseEvent: events.ForChapter(events.EventChapterRemoved, c.ID),
				TitleID:   title.ID,
				Index:     c.Index,
				FileName:  c.FileName,
			})
		}
	}

	if err := f.scheduler.Schedule(ctx, title, false); err != nil {
		return res, fmt.Errorf("reschedule %s: %w", title.Name, err)
	}
	added, err := f.scheduler.RunNow(ctx, title)
	if err != nil {
		return res, err
	}
	if !added {
		// The pending check may have listed the directory before the removal.
		if _, err := f.scheduler.RecheckAfter(ctx, title, RecheckDelay); err != nil {
			return res, err
		}
		log.Debug("check already pending, follow-up queued", "delay", RecheckDelay)
	}
	return res, nil
}
