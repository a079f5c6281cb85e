// Package reconcile compares a title's directory, its registry rows and the
// source's chapter list, and derives what to download and what is out of
// sync.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/vmunix/kaizoku/internal/events"
	"github.com/vmunix/kaizoku/internal/library"
	"github.com/vmunix/kaizoku/internal/scanner"
	"github.com/vmunix/kaizoku/internal/source"
	"github.com/vmunix/kaizoku/pkg/naming"
)

// Enqueuer schedules chapter downloads.
type Enqueuer interface {
	EnqueueMany(ctx context.Context, title *library.Title, indices []int) (int, error)
}

// Result describes one reconciliation run.
type Result struct {
	RunID string
	// Skipped is set when the source returned no chapters. Nothing was
	// changed in that case.
	Skipped bool
	Sync    *library.SyncResult
	// Missing are the 0-based indices the source has and the disk lacks.
	Missing []int
	// Queued is how many download jobs were newly added for Missing.
	Queued int
	// Flagged are the chapters whose (index, file name) the source no longer
	// produces.
	Flagged []*library.Chapter
	// Duplicates are local files sharing an index with an earlier file.
	// They are left on disk and ignored.
	Duplicates []scanner.LocalChapter
}

// Reconciler runs chapter checks.
type Reconciler struct {
	store     *library.Store
	lister    source.Provider
	downloads Enqueuer
	bus       *events.Bus
	logger    *slog.Logger
}

// New creates a Reconciler. bus may be nil.
func New(store *library.Store, lister source.Provider, downloads Enqueuer, bus *events.Bus, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:     store,
		lister:    lister,
		downloads: downloads,
		bus:       bus,
		logger:    logger.With("component", "reconcile"),
	}
}

// Check reconciles one title: it syncs the registry with the disk, queues
// downloads for chapters the disk lacks and replaces the title's
// out-of-sync set. An empty source listing leaves everything untouched.
func (r *Reconciler) Check(ctx context.Context, titleID int64) (*Result, error) {
	title, err := r.store.GetTitle(titleID)
	if err != nil {
		return nil, fmt.Errorf("check title %d: %w", titleID, err)
	}
	res := &Result{RunID: uuid.NewString()}
	log := r.logger.With("title", title.Name, "run_id", res.RunID)

	local, err := scanner.Scan(title.Dir())
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", title.Name, err)
	}

	remote, err := r.lister.Chapters(ctx, title.Source, title.Name)
	if err != nil {
		return nil, fmt.Errorf("list chapters of %s: %w", title.Name, err)
	}
	if len(remote) == 0 {
		log.Info("source returned no chapters, skipping", "source", title.Source)
		res.Skipped = true
		r.publishChecked(ctx, title, res)
		return res, nil
	}

	var kept []scanner.LocalChapter
	kept, res.Duplicates = dedupe(local)
	for _, d := range res.Duplicates {
		log.Warn("duplicate chapter index on disk, ignoring file", "index", d.Index, "file", d.FileName)
	}

	res.Sync, err = r.store.SyncChapters(title.ID, toChapters(title.ID, kept))
	if err != nil {
		return nil, fmt.Errorf("sync registry of %s: %w", title.Name, err)
	}
	if res.Sync.Changed() {
		log.Info("registry synced", "deleted", len(res.Sync.Deleted), "inserted", len(res.Sync.Inserted))
	}

	res.Missing = missing(kept, remote)
	var enqueueErr error
	if len(res.Missing) > 0 {
		res.Queued, enqueueErr = r.downloads.EnqueueMany(ctx, title, res.Missing)
	}

	chapters, err := r.store.ListChapters(title.ID)
	if err != nil {
		return nil, errors.Join(enqueueErr, err)
	}
	res.Flagged = outOfSync(chapters, remote)
	ids := make([]int64, len(res.Flagged))
	for i, c := range res.Flagged {
		ids[i] = c.ID
	}
	if err := r.store.ReplaceOutOfSync(title.ID, ids); err != nil {
		return nil, errors.Join(enqueueErr, fmt.Errorf("record out-of-sync chapters: %w", err))
	}

	log.Info("check finished",
		"local", len(kept), "remote", len(remote), "missing", len(res.Missing),
		"queued", res.Queued, "out_of_sync", len(res.Flagged))

	if len(res.Flagged) > 0 && r.bus != nil {
		_ = r.bus.Publish(ctx, &events.OutOfSyncFlagged{
			BaseEvent:  events.ForTitle(events.EventOutOfSyncFlagged, title.ID),
			Name:       title.Name,
			ChapterIDs: ids,
		})
	}
	r.publishChecked(ctx, title, res)

	if enqueueErr != nil {
		return res, fmt.Errorf("queue downloads of %s: %w", title.Name, enqueueErr)
	}
	return res, nil
}

// SyncRegistry makes the title's registry rows match its directory without
// consulting the source.
func (r *Reconciler) SyncRegistry(_ context.Context, titleID int64) (*library.SyncResult, error) {
	title, err := r.store.GetTitle(titleID)
	if err != nil {
		return nil, fmt.Errorf("sync title %d: %w", titleID, err)
	}
	local, err := scanner.Scan(title.Dir())
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", title.Name, err)
	}
	kept, dups := dedupe(local)
	for _, d := range dups {
		r.logger.Warn("duplicate chapter index on disk, ignoring file", "title", title.Name, "index", d.Index, "file", d.FileName)
	}
	res, err := r.store.SyncChapters(title.ID, toChapters(title.ID, kept))
	if err != nil {
		return nil, fmt.Errorf("sync registry of %s: %w", title.Name, err)
	}
	return res, nil
}

func (r *Reconciler) publishChecked(ctx context.Context, title *library.Title, res *Result) {
	if r.bus == nil {
		return
	}
	e := &events.TitleChecked{
		BaseEvent: events.ForTitle(events.EventTitleChecked, title.ID),
		Name:      title.Name,
		RunID:     res.RunID,
		Skipped:   res.Skipped,
		Missing:   res.Missing,
		Flagged:   len(res.Flagged),
	}
	if res.Sync != nil {
		e.Deleted = len(res.Sync.Deleted)
		e.Inserted = len(res.Sync.Inserted)
	}
	_ = r.bus.Publish(ctx, e)
}

// dedupe keeps the first file per index. local must be sorted by index,
// then file name, as scanner.Scan returns it.
func dedupe(local []scanner.LocalChapter) (kept, dups []scanner.LocalChapter) {
	seen := make(map[int]bool, len(local))
	for _, c := range local {
		if seen[c.Index] {
			dups = append(dups, c)
			continue
		}
		seen[c.Index] = true
		kept = append(kept, c)
	}
	return kept, dups
}

func toChapters(titleID int64, local []scanner.LocalChapter) []*library.Chapter {
	out := make([]*library.Chapter, len(local))
	for i, c := range local {
		out[i] = &library.Chapter{
			TitleID:   titleID,
			Index:     c.Index,
			FileName:  c.FileName,
			SizeBytes: c.SizeBytes,
			CreatedAt: c.CreatedAt,
		}
	}
	return out
}

// missing returns the remote indices with no local file, ascending.
func missing(local []scanner.LocalChapter, remote []source.RemoteChapter) []int {
	have := make(map[int]bool, len(local))
	for _, c := range local {
		have[c.Index] = true
	}
	want := make(map[int]bool, len(remote))
	var out []int
	for _, rc := range remote {
		if have[rc.Index] || want[rc.Index] {
			continue
		}
		want[rc.Index] = true
		out = append(out, rc.Index)
	}
	sort.Ints(out)
	return out
}

// outOfSync returns the chapters whose (index, file name) pair is not one
// the source would produce today.
func outOfSync(chapters []*library.Chapter, remote []source.RemoteChapter) []*library.Chapter {
	expected := make(map[library.ChapterKey]bool, len(remote))
	for _, rc := range remote {
		expected[library.ChapterKey{Index: rc.Index, FileName: naming.ChapterFilename(rc.Index, rc.Name)}] = true
	}
	var out []*library.Chapter
	for _, c := range chapters {
		if !expected[c.Key()] {
			out = append(out, c)
		}
	}
	return out
}
