// Package download executes chapter downloads as queued work items.
//
// A download job is keyed by title and chapter index, so a chapter found
// missing by several checks in a row is downloaded once. The job re-reads
// its title when it runs; a title removed in the meantime drains the job.
package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vmunix/kaizoku/internal/events"
	"github.com/vmunix/kaizoku/internal/library"
	"github.com/vmunix/kaizoku/internal/queue"
	"github.com/vmunix/kaizoku/internal/scanner"
	"github.com/vmunix/kaizoku/internal/source"
	"github.com/vmunix/kaizoku/pkg/naming"
)

// Payload is the body of a download job.
type Payload struct {
	TitleID int64 `json:"title_id"`
	Index   int   `json:"index"` // 0-based
}

// Coordinator enqueues and executes chapter downloads.
type Coordinator struct {
	store   *library.Store
	queue   queue.JobQueue
	fetcher source.Provider
	bus     *events.Bus
	logger  *slog.Logger
}

// NewCoordinator creates a download coordinator. bus may be nil.
func NewCoordinator(store *library.Store, q queue.JobQueue, fetcher source.Provider, bus *events.Bus, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:   store,
		queue:   q,
		fetcher: fetcher,
		bus:     bus,
		logger:  logger.With("component", "download"),
	}
}

// Enqueue schedules the download of one chapter. A queued job for the same
// chapter that has not started is replaced; one already running is left
// alone. It reports whether a new job was added.
func (c *Coordinator) Enqueue(ctx context.Context, title *library.Title, index int) (bool, error) {
	key := naming.DownloadKey(title.Name, index)

	if err := c.queue.Remove(ctx, key); err != nil && !errors.Is(err, queue.ErrNotFound) {
		if !errors.Is(err, queue.ErrJobActive) {
			return false, fmt.Errorf("replace %s: %w", key, err)
		}
		c.logger.Debug("download already running", "title", title.Name, "index", index)
	}

	added, err := c.queue.Add(ctx, queue.Request{
		Key:     key,
		GroupID: title.ID,
		Payload: Payload{TitleID: title.ID, Index: index},
	})
	if err != nil {
		return false, fmt.Errorf("enqueue %s: %w", key, err)
	}
	return added, nil
}

// EnqueueMany schedules every index and returns how many jobs were added.
// A failure for one index does not stop the others.
func (c *Coordinator) EnqueueMany(ctx context.Context, title *library.Title, indices []int) (int, error) {
	var (
		added int
		errs  []error
	)
	for _, idx := range indices {
		ok, err := c.Enqueue(ctx, title, idx)
		if err != nil {
			c.logger.Error("enqueue download failed", "title", title.Name, "index", idx, "error", err)
			errs = append(errs, err)
			continue
		}
		if ok {
			added++
		}
	}
	if added > 0 {
		c.logger.Info("downloads queued", "title", title.Name, "count", added)
	}
	return added, errors.Join(errs...)
}

// CancelTitle removes every pending download of a title. Running downloads
// finish and are drained when they find the title gone.
func (c *Coordinator) CancelTitle(ctx context.Context, titleID int64) (int, error) {
	n, err := c.queue.RemoveGroup(ctx, titleID)
	if err != nil {
		return 0, fmt.Errorf("cancel downloads of title %d: %w", titleID, err)
	}
	return n, nil
}

// Process executes a download job. It is the download queue's handler.
func (c *Coordinator) Process(ctx context.Context, job *queue.Job) error {
	var p Payload
	if err := job.Decode(&p); err != nil {
		return fmt.Errorf("%w: %v", queue.ErrPermanent, err)
	}

	title, err := c.store.GetTitle(p.TitleID)
	if errors.Is(err, library.ErrNotFound) {
		return fmt.Errorf("title %d removed: %w", p.TitleID, queue.ErrObsolete)
	}
	if err != nil {
		return fmt.Errorf("load title %d: %w", p.TitleID, err)
	}

	log := c.logger.With("title", title.Name, "index", p.Index, "attempt", job.Attempts)
	log.Info("downloading chapter")

	path, err := c.fetcher.Download(ctx, title.Source, title.Name, p.Index, title.LibraryRoot)
	if err != nil {
		c.publishFailure(ctx, title, p.Index, err, job.Attempts < job.MaxAttempts)
		return fmt.Errorf("download %s #%d: %w", title.Name, p.Index, err)
	}

	local, err := scanner.ScanFile(path)
	if err != nil {
		c.publishFailure(ctx, title, p.Index, err, job.Attempts < job.MaxAttempts)
		return fmt.Errorf("inspect %s: %w", path, err)
	}
	if err := scanner.CheckReadable(path); err != nil {
		c.publishFailure(ctx, title, p.Index, err, job.Attempts < job.MaxAttempts)
		return fmt.Errorf("open %s: %w", path, err)
	}
	if local.Index != p.Index {
		err := fmt.Errorf("%w: %s has index %d, requested %d", queue.ErrPermanent, local.FileName, local.Index, p.Index)
		c.publishFailure(ctx, title, p.Index, err, false)
		return err
	}

	if prev, err := c.store.GetChapterByIndex(title.ID, p.Index); err == nil && prev.FileName != local.FileName {
		log.Info("replacing recorded chapter", "previous", prev.FileName)
	}

	chapter := &library.Chapter{
		TitleID:   title.ID,
		Index:     local.Index,
		FileName:  local.FileName,
		SizeBytes: local.SizeBytes,
		CreatedAt: local.CreatedAt,
	}
	if err := c.store.ReplaceChapter(chapter); err != nil {
		if errors.Is(err, library.ErrConstraint) {
			return fmt.Errorf("title %d removed during download: %w", title.ID, queue.ErrObsolete)
		}
		return fmt.Errorf("record chapter: %w", err)
	}

	log.Info("chapter downloaded", "file", local.FileName, "size_bytes", local.SizeBytes)

	if c.bus != nil {
		_ = c.bus.Publish(ctx, &events.ChapterDownloaded{
			BaseEvent:   events.ForTitle(events.EventChapterDownloaded, title.ID),
			TitleID:     title.ID,
			Title:       title.Name,
			Source:      title.Source,
			URL:         title.URL,
			LibraryRoot: title.LibraryRoot,
			Index:       chapter.Index,
			FileName:    chapter.FileName,
			SizeBytes:   chapter.SizeBytes,
		})
	}
	return nil
}

func (c *Coordinator) publishFailure(ctx context.Context, title *library.Title, index int, err error, retryable bool) {
	if c.bus == nil {
		return
	}
	_ = c.bus.Publish(ctx, &events.ChapterDownloadFailed{
		BaseEvent: events.ForTitle(events.EventChapterDownloadFailed, title.ID),
		Title:     title.Name,
		Index:     index,
		Reason:    err.Error(),
		Retryable: retryable,
	})
}
