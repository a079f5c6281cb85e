package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/kaizoku/internal/database"
	"github.com/vmunix/kaizoku/internal/library"
	"github.com/vmunix/kaizoku/internal/source"
	"github.com/vmunix/kaizoku/internal/source/mocks"
	"github.com/vmunix/kaizoku/pkg/interval"
	"github.com/vmunix/kaizoku/pkg/naming"
)

// recordingEnqueuer captures EnqueueMany calls.
type recordingEnqueuer struct {
	calls [][]int
	err   error
}

func (e *recordingEnqueuer) EnqueueMany(_ context.Context, _ *library.Title, indices []int) (int, error) {
	e.calls = append(e.calls, indices)
	if e.err != nil {
		return 0, e.err
	}
	return len(indices), nil
}

type fixture struct {
	store     *library.Store
	lister    *mocks.MockProvider
	downloads *recordingEnqueuer
	rec       *Reconciler
	title     *library.Title
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		store:     library.NewStore(db),
		lister:    mocks.NewMockProvider(gomock.NewController(t)),
		downloads: &recordingEnqueuer{},
	}
	f.title = &library.Title{
		Name:        "One Piece",
		Source:      "mangadex",
		LibraryRoot: t.TempDir(),
		Interval:    interval.MustRecurring("@hourly"),
	}
	require.NoError(t, f.store.AddTitle(f.title))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.rec = New(f.store, f.lister, f.downloads, nil, logger)
	return f
}

func (f *fixture) touch(t *testing.T, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(f.title.Dir(), 0755))
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(f.title.Dir(), n), []byte("PK"), 0644))
	}
}

func (f *fixture) remote(chapters ...source.RemoteChapter) {
	f.lister.EXPECT().Chapters(gomock.Any(), "mangadex", "One Piece").Return(chapters, nil)
}

func remote(index int, name string) source.RemoteChapter {
	return source.RemoteChapter{Index: index, Name: name}
}

func fileNames(chapters []*library.Chapter) []string {
	var out []string
	for _, c := range chapters {
		out = append(out, c.FileName)
	}
	return out
}

func TestCheck_QueuesMissingChapters(t *testing.T) {
	f := newFixture(t)
	f.touch(t, naming.ChapterFilename(0, "Romance Dawn"))
	f.remote(remote(0, "Romance Dawn"), remote(1, "Enter Zoro"), remote(2, "Morgan"))

	res, err := f.rec.Check(context.Background(), f.title.ID)
	require.NoError(t, err)

	assert.False(t, res.Skipped)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []int{1, 2}, res.Missing)
	assert.Equal(t, 2, res.Queued)
	assert.Equal(t, [][]int{{1, 2}}, f.downloads.calls)
	assert.Empty(t, res.Flagged)

	chapters, err := f.store.ListChapters(f.title.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"[0001]_Romance_Dawn.cbz"}, fileNames(chapters))
}

func TestCheck_RepeatedRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.touch(t, naming.ChapterFilename(0, "Romance Dawn"), "[0002]_Old_Name.cbz")
	chapters := []source.RemoteChapter{remote(0, "Romance Dawn"), remote(1, "Enter Zoro")}
	f.remote(chapters...)
	f.remote(chapters...)

	first, err := f.rec.Check(context.Background(), f.title.ID)
	require.NoError(t, err)
	require.Len(t, first.Flagged, 1)
	assert.Empty(t, first.Missing)

	second, err := f.rec.Check(context.Background(), f.title.ID)
	require.NoError(t, err)
	assert.Empty(t, second.Missing)
	assert.False(t, second.Sync.Changed())
	assert.Empty(t, f.downloads.calls)
	require.Len(t, second.Flagged, 1)
	assert.Equal(t, first.Flagged[0].ID, second.Flagged[0].ID)
}

func TestCheck_EmptyRemoteChangesNothing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.AddChapter(&library.Chapter{TitleID: f.title.ID, Index: 5, FileName: "[0006]_stale.cbz"}))
	stale, err := f.store.GetChapterByIndex(f.title.ID, 5)
	require.NoError(t, err)
	require.NoError(t, f.store.ReplaceOutOfSync(f.title.ID, []int64{stale.ID}))
	f.touch(t, "[0001]_new.cbz")
	f.remote()

	res, err := f.rec.Check(context.Background(), f.title.ID)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, f.downloads.calls)

	// Registry and out-of-sync snapshot are untouched.
	chapters, err := f.store.ListChapters(f.title.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"[0006]_stale.cbz"}, fileNames(chapters))
	flagged, err := f.store.ListOutOfSync(f.title.ID)
	require.NoError(t, err)
	assert.Len(t, flagged, 1)
}

func TestCheck_FlagsRenamedChapters(t *testing.T) {
	f := newFixture(t)
	f.touch(t,
		naming.ChapterFilename(0, "Romance Dawn"),
		naming.ChapterFilename(1, "Old Name"),
		naming.ChapterFilename(9, "Gone From Source"),
	)
	f.remote(remote(0, "Romance Dawn"), remote(1, "New Name"))

	res, err := f.rec.Check(context.Background(), f.title.ID)
	require.NoError(t, err)

	assert.Empty(t, res.Missing)
	assert.Empty(t, f.downloads.calls)
	assert.ElementsMatch(t, []string{"[0002]_Old_Name.cbz", "[0010]_Gone_From_Source.cbz"}, fileNames(res.Flagged))

	flagged, err := f.store.ListOutOfSync(f.title.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, fileNames(res.Flagged), fileNames(flagged))
}

func TestCheck_OutOfSyncIsSnapshot(t *testing.T) {
	f := newFixture(t)
	f.touch(t, naming.ChapterFilename(0, "Old"))
	f.remote(remote(0, "New"))
	_, err := f.rec.Check(context.Background(), f.title.ID)
	require.NoError(t, err)

	// The source reverts the rename: the next check clears the mark.
	f.remote(remote(0, "Old"))
	res, err := f.rec.Check(context.Background(), f.title.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Flagged)

	flagged, err := f.store.ListOutOfSync(f.title.ID)
	require.NoError(t, err)
	assert.Empty(t, flagged)
}

func TestCheck_SyncsRegistryWithDisk(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.AddChapter(&library.Chapter{TitleID: f.title.ID, Index: 3, FileName: "[0004]_deleted.cbz"}))
	f.touch(t, "[0001]_a.cbz", "[0002]_b.cbz")
	f.remote(remote(0, "a"), remote(1, "b"))

	res, err := f.rec.Check(context.Background(), f.title.ID)
	require.NoError(t, err)
	assert.Len(t, res.Sync.Deleted, 1)
	assert.Len(t, res.Sync.Inserted, 2)

	// Running again with nothing changed is a no-op.
	f.remote(remote(0, "a"), remote(1, "b"))
	res, err = f.rec.Check(context.Background(), f.title.ID)
	require.NoError(t, err)
	assert.False(t, res.Sync.Changed())
}

func TestCheck_DuplicateLocalIndexKeepsFirst(t *testing.T) {
	f := newFixture(t)
	f.touch(t, "[0001]_a.cbz", "[0001]_b.cbz")
	f.remote(remote(0, "a"))

	res, err := f.rec.Check(context.Background(), f.title.ID)
	require.NoError(t, err)
	require.Len(t, res.Duplicates, 1)
	assert.Equal(t, "[0001]_b.cbz", res.Duplicates[0].FileName)

	chapters, err := f.store.ListChapters(f.title.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"[0001]_a.cbz"}, fileNames(chapters))
	assert.Empty(t, res.Flagged)
}

func TestCheck_ListerErrorIsReturned(t *testing.T) {
	f := newFixture(t)
	f.lister.EXPECT().Chapters(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, &source.ToolError{Stderr: "network down"})

	_, err := f.rec.Check(context.Background(), f.title.ID)
	assert.ErrorIs(t, err, source.ErrToolFailed)
}

func TestCheck_EnqueueErrorStillRecordsOutOfSync(t *testing.T) {
	f := newFixture(t)
	f.downloads.err = errors.New("queue unavailable")
	f.touch(t, naming.ChapterFilename(0, "Old"))
	f.remote(remote(0, "New"), remote(1, "Next"))

	res, err := f.rec.Check(context.Background(), f.title.ID)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Len(t, res.Flagged, 1)

	flagged, err := f.store.ListOutOfSync(f.title.ID)
	require.NoError(t, err)
	assert.Len(t, flagged, 1)
}

func TestCheck_UnknownTitle(t *testing.T) {
	f := newFixture(t)
	_, err := f.rec.Check(context.Background(), 999)
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestSyncRegistry_DoesNotCallSource(t *testing.T) {
	f := newFixture(t)
	f.touch(t, "[0001]_a.cbz", "[0003]_c.cbz", "notes.txt")

	res, err := f.rec.SyncRegistry(context.Background(), f.title.ID)
	require.NoError(t, err)
	assert.Len(t, res.Inserted, 2)

	chapters, err := f.store.ListChapters(f.title.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"[0001]_a.cbz", "[0003]_c.cbz"}, fileNames(chapters))
}

func TestMissing_DeduplicatesAndSorts(t *testing.T) {
	got := missing(nil, []source.RemoteChapter{remote(3, "c"), remote(1, "a"), remote(3, "c again")})
	assert.Equal(t, []int{1, 3}, got)
}
