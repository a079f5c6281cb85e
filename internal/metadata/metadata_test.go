package metadata

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/kaizoku/internal/database"
	"github.com/vmunix/kaizoku/internal/events"
	"github.com/vmunix/kaizoku/internal/integration"
	"github.com/vmunix/kaizoku/internal/library"
	"github.com/vmunix/kaizoku/internal/queue"
	"github.com/vmunix/kaizoku/internal/source/mocks"
	"github.com/vmunix/kaizoku/pkg/interval"
	"github.com/vmunix/kaizoku/pkg/naming"
)

type fixture struct {
	store        *library.Store
	tool         *mocks.MockProvider
	updates      *queue.Queue
	integrations *queue.Queue
	bus          *events.Bus
	title        *library.Title
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	opts := queue.Options{Attempts: 10, Backoff: 2 * time.Minute}
	f := &fixture{
		store:        library.NewStore(db),
		tool:         mocks.NewMockProvider(gomock.NewController(t)),
		updates:      queue.New(db, "metadata", opts, testLogger()),
		integrations: queue.New(db, "integration", opts, testLogger()),
		bus:          events.NewBus(events.NewEventLog(db), testLogger()),
	}
	t.Cleanup(func() { _ = f.bus.Close() })

	f.title = &library.Title{Name: "One Piece", Source: "mangadex", LibraryRoot: t.TempDir(), Interval: interval.Never()}
	require.NoError(t, f.store.AddTitle(f.title))
	return f
}

func (f *fixture) job(t *testing.T) *queue.Job {
	t.Helper()
	_, err := Request(context.Background(), f.updates, f.title)
	require.NoError(t, err)
	job, err := f.updates.Get(context.Background(), naming.MetadataKey(f.title.Name))
	require.NoError(t, err)
	return job
}

func TestRequest_Deduplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	added, err := Request(ctx, f.updates, f.title)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = Request(ctx, f.updates, f.title)
	require.NoError(t, err)
	assert.False(t, added)

	job, err := f.updates.Get(ctx, "metadata_One_Piece")
	require.NoError(t, err)
	assert.Equal(t, f.title.ID, job.GroupID)
	assert.Equal(t, 10, job.MaxAttempts)
	assert.Equal(t, 2*time.Minute, job.Backoff)
}

func TestProcess_UpdatesThenQueuesRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	updated := f.bus.Subscribe(1, events.EventMetadataUpdated)
	u := NewUpdater(f.store, f.tool, f.integrations, f.bus, testLogger())

	f.tool.EXPECT().UpdateMetadata(gomock.Any(), f.title.Dir()).Return(nil)
	require.NoError(t, u.Process(ctx, f.job(t)))

	j, err := f.integrations.Get(ctx, naming.IntegrationKey("One Piece"))
	require.NoError(t, err)
	var p integration.Payload
	require.NoError(t, j.Decode(&p))
	assert.Equal(t, "One Piece", p.Title)
	assert.False(t, p.ScanOnly)

	select {
	case e := <-updated:
		assert.Equal(t, "One Piece", e.(*events.MetadataUpdated).Name)
	case <-time.After(time.Second):
		t.Fatal("no title.metadata_updated event")
	}
}

func TestProcess_NoIntegrations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := NewUpdater(f.store, f.tool, nil, nil, testLogger())

	f.tool.EXPECT().UpdateMetadata(gomock.Any(), f.title.Dir()).Return(nil)
	require.NoError(t, u.Process(ctx, f.job(t)))

	counts, err := f.integrations.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Waiting)
}

func TestProcess_ToolFailureRetriesWithoutRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := NewUpdater(f.store, f.tool, f.integrations, nil, testLogger())

	f.tool.EXPECT().UpdateMetadata(gomock.Any(), gomock.Any()).Return(errors.New("anilist unreachable"))
	err := u.Process(ctx, f.job(t))
	require.Error(t, err)
	assert.False(t, errors.Is(err, queue.ErrPermanent))
	assert.False(t, errors.Is(err, queue.ErrObsolete))

	_, err = f.integrations.Get(ctx, naming.IntegrationKey("One Piece"))
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func TestProcess_TitleGoneIsObsolete(t *testing.T) {
	f := newFixture(t)
	u := NewUpdater(f.store, f.tool, f.integrations, nil, testLogger())
	job := f.job(t)
	require.NoError(t, f.store.DeleteTitle(f.title.ID))

	err := u.Process(context.Background(), job)
	assert.ErrorIs(t, err, queue.ErrObsolete)
}
