package outofsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/kaizoku/internal/database"
	"github.com/vmunix/kaizoku/internal/library"
	"github.com/vmunix/kaizoku/internal/queue"
	"github.com/vmunix/kaizoku/pkg/interval"
)

// storeSyncer syncs with a fixed on-disk listing.
type storeSyncer struct {
	store *library.Store
	local []*library.Chapter
	err   error
}

func (s *storeSyncer) SyncRegistry(_ context.Context, titleID int64) (*library.SyncResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.store.SyncChapters(titleID, s.local)
}

type recordingScheduler struct {
	calls []string
	busy  bool // a one-shot check is already queued or running
	delay time.Duration
}

func (r *recordingScheduler) Schedule(_ context.Context, _ *library.Title, runNow bool) error {
	r.calls = append(r.calls, fmt.Sprintf("schedule(%t)", runNow))
	return nil
}

func (r *recordingScheduler) RunNow(context.Context, *library.Title) (bool, error) {
	r.calls = append(r.calls, "run-now")
	return !r.busy, nil
}

func (r *recordingScheduler) RecheckAfter(_ context.Context, _ *library.Title, delay time.Duration) (bool, error) {
	r.calls = append(r.calls, "recheck")
	r.delay = delay
	return true, nil
}

type fixture struct {
	store     *library.Store
	queue     *queue.Queue
	syncer    *storeSyncer
	scheduler *recordingScheduler
	fixer     *Fixer
	title     *library.Title
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		store:     library.NewStore(db),
		queue:     queue.New(db, "fix", queue.Options{Attempts: 1}, logger),
		scheduler: &recordingScheduler{},
	}
	f.syncer = &storeSyncer{store: f.store}
	f.title = &library.Title{Name: "Foo", Source: "mangadex", LibraryRoot: t.TempDir(), Interval: interval.Never()}
	require.NoError(t, f.store.AddTitle(f.title))
	require.NoError(t, os.MkdirAll(f.title.Dir(), 0755))
	f.fixer = NewFixer(f.store, f.syncer, f.scheduler, f.queue, nil, logger)
	return f
}

// place writes the file and records it as present on disk.
func (f *fixture) place(t *testing.T, index int, name string) *library.Chapter {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.title.Dir(), name), []byte("PK"), 0644))
	c := &library.Chapter{TitleID: f.title.ID, Index: index, FileName: name}
	f.syncer.local = append(f.syncer.local, c)
	require.NoError(t, f.store.AddChapter(c))
	return c
}

func TestFix_RemovesFlaggedAndRechecks(t *testing.T) {
	f := newFixture(t)
	keep := f.place(t, 0, "[0001]_ok.cbz")
	stale := f.place(t, 1, "[0002]_old_name.cbz")
	require.NoError(t, f.store.ReplaceOutOfSync(f.title.ID, []int64{stale.ID}))

	res, err := f.fixer.Fix(context.Background(), f.title.ID)
	require.NoError(t, err)
	require.Len(t, res.Removed, 1)
	assert.Equal(t, "[0002]_old_name.cbz", res.Removed[0].FileName)

	_, err = os.Stat(filepath.Join(f.title.Dir(), "[0002]_old_name.cbz"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	_, err = os.Stat(filepath.Join(f.title.Dir(), keep.FileName))
	assert.NoError(t, err)

	chapters, err := f.store.ListChapters(f.title.ID)
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	assert.Equal(t, keep.FileName, chapters[0].FileName)

	flagged, err := f.store.ListOutOfSync(f.title.ID)
	require.NoError(t, err)
	assert.Empty(t, flagged)

	assert.Equal(t, []string{"schedule(false)", "run-now"}, f.scheduler.calls)
}

func TestFix_FileAlreadyGone(t *testing.T) {
	f := newFixture(t)
	stale := f.place(t, 0, "[0001]_old.cbz")
	require.NoError(t, f.store.ReplaceOutOfSync(f.title.ID, []int64{stale.ID}))
	// Deleted by hand, but the registry sync has not seen it yet.
	require.NoError(t, os.Remove(filepath.Join(f.title.Dir(), stale.FileName)))

	res, err := f.fixer.Fix(context.Background(), f.title.ID)
	require.NoError(t, err)
	assert.Len(t, res.Removed, 1)
	assert.Empty(t, res.Failed)
}

func TestFix_NothingFlaggedStillRechecks(t *testing.T) {
	f := newFixture(t)
	f.place(t, 0, "[0001]_ok.cbz")

	res, err := f.fixer.Fix(context.Background(), f.title.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Removed)
	assert.Equal(t, []string{"schedule(false)", "run-now"}, f.scheduler.calls)
}

func TestFix_CheckAlreadyPendingQueuesFollowUp(t *testing.T) {
	f := newFixture(t)
	stale := f.place(t, 0, "[0001]_old.cbz")
	require.NoError(t, f.store.ReplaceOutOfSync(f.title.ID, []int64{stale.ID}))
	f.scheduler.busy = true

	res, err := f.fixer.Fix(context.Background(), f.title.ID)
	require.NoError(t, err)
	assert.Len(t, res.Removed, 1)
	assert.Equal(t, []string{"schedule(false)", "run-now", "recheck"}, f.scheduler.calls)
	assert.Equal(t, RecheckDelay, f.scheduler.delay)
}

func TestFix_SyncErrorAborts(t *testing.T) {
	f := newFixture(t)
	f.syncer.err = errors.New("permission denied")

	_, err := f.fixer.Fix(context.Background(), f.title.ID)
	require.Error(t, err)
	assert.Empty(t, f.scheduler.calls)
}

func TestFix_UnknownTitle(t *testing.T) {
	f := newFixture(t)
	_, err := f.fixer.Fix(context.Background(), 404)
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestRequest_Deduplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	added, err := f.fixer.Request(ctx, f.title)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = f.fixer.Request(ctx, f.title)
	require.NoError(t, err)
	assert.False(t, added)

	job, err := f.queue.Get(ctx, "fix_Foo_out_of_sync")
	require.NoError(t, err)
	assert.Equal(t, f.title.ID, job.GroupID)
}
