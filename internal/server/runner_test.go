package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/kaizoku/internal/config"
	"github.com/vmunix/kaizoku/internal/database"
	"github.com/vmunix/kaizoku/internal/events"
	"github.com/vmunix/kaizoku/internal/queue"
	"github.com/vmunix/kaizoku/internal/source"
	"github.com/vmunix/kaizoku/internal/titles"
	"github.com/vmunix/kaizoku/pkg/interval"
	"github.com/vmunix/kaizoku/pkg/naming"
)

// fakeSource serves a fixed chapter list and writes archives on download.
type fakeSource struct {
	mu        sync.Mutex
	chapters  []source.RemoteChapter
	downloads int
	refreshed []string
}

func (f *fakeSource) Sources(context.Context) ([]string, error) {
	return []string{"mangadex"}, nil
}

func (f *fakeSource) Chapters(context.Context, string, string) ([]source.RemoteChapter, error) {
	return f.chapters, nil
}

func (f *fakeSource) Download(_ context.Context, _, title string, index int, dir string) (string, error) {
	f.mu.Lock()
	f.downloads++
	f.mu.Unlock()

	titleDir := naming.TitleDir(dir, title)
	if err := os.MkdirAll(titleDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(titleDir, naming.ChapterFilename(index, f.chapters[index].Name))
	return path, os.WriteFile(path, []byte("cbz"), 0o644)
}

func (f *fakeSource) Search(context.Context, string, string) ([]source.Manga, error) {
	return nil, nil
}

func (f *fakeSource) BindAnilist(context.Context, string, string) error {
	return nil
}

func (f *fakeSource) UpdateMetadata(_ context.Context, dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, dir)
	return nil
}

func (f *fakeSource) metadataDirs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refreshed...)
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloads
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	content := fmt.Sprintf(`[library]
root = %q

[queues.check]
poll_interval = "20ms"

[queues.download]
poll_interval = "20ms"

[queues.outofsync]
poll_interval = "20ms"

[queues.metadata]
poll_interval = "20ms"
`, t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	loaded, err := config.Load(path)
	require.NoError(t, err)
	return loaded
}

func setupApp(t *testing.T, src source.Provider) (*App, *sql.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	app := NewApp(db, testConfig(t), src, testLogger())
	t.Cleanup(func() { _ = app.Close() })
	return app, db
}

func run(t *testing.T, r *Runner) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
}

func TestRunner_AddedTitleIsCheckedAndDownloaded(t *testing.T) {
	src := &fakeSource{chapters: []source.RemoteChapter{
		{Index: 0, Name: "Romance Dawn"},
		{Index: 1, Name: "They Call Him Straw Hat Luffy"},
	}}
	app, _ := setupApp(t, src)
	ctx := context.Background()

	title, err := app.Titles.Add(ctx, titles.AddRequest{
		Name:     "One Piece",
		Source:   "mangadex",
		Interval: interval.MustRecurring("@daily"),
		RunNow:   true,
	})
	require.NoError(t, err)

	run(t, NewRunner(app, testLogger()))

	require.Eventually(t, func() bool {
		chapters, err := app.Store.ListChapters(title.ID)
		return err == nil && len(chapters) == 2
	}, 5*time.Second, 20*time.Millisecond)

	assert.FileExists(t, filepath.Join(title.Dir(), "[0001]_Romance_Dawn.cbz"))
	assert.Equal(t, 2, src.count())

	require.Eventually(t, func() bool {
		got, err := app.EventLog.Recent(ctx, events.EventChapterDownloaded, 10)
		return err == nil && len(got) == 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRunner_RecoverRequeuesAndRestores(t *testing.T) {
	app, db := setupApp(t, &fakeSource{})
	ctx := context.Background()

	title, err := app.Titles.Add(ctx, titles.AddRequest{
		Name:     "Berserk",
		Source:   "mangadex",
		Interval: interval.MustRecurring("0 * * * *"),
	})
	require.NoError(t, err)

	// Simulate a crash: a job left active, the trigger lost and downloads
	// left paused by an interrupted removal.
	require.NoError(t, app.Queues.Download.Pause(ctx, 0))
	_, err = app.Queues.Download.Add(ctx, queue.Request{Key: "stuck", GroupID: title.ID, Payload: struct{}{}})
	require.NoError(t, err)
	_, err = db.Exec("UPDATE jobs SET state = 'active' WHERE job_key = 'stuck'")
	require.NoError(t, err)
	require.NoError(t, app.Queues.Check.RemoveRepeatable(ctx, naming.CheckKey(title.Name)))

	require.NoError(t, NewRunner(app, testLogger()).Recover(ctx))

	j, err := app.Queues.Download.Get(ctx, "stuck")
	require.NoError(t, err)
	assert.Equal(t, queue.StateWaiting, j.State)

	paused, err := app.Queues.Download.Paused(ctx)
	require.NoError(t, err)
	assert.False(t, paused)

	reps, err := app.Queues.Check.Repeatables(ctx)
	require.NoError(t, err)
	require.Len(t, reps, 1)
	assert.Equal(t, naming.CheckKey("Berserk"), reps[0].Key)
}

func TestRunner_HandlersFollowConfig(t *testing.T) {
	app, _ := setupApp(t, &fakeSource{})

	names := func(r *Runner) []string {
		var out []string
		for _, h := range r.Handlers() {
			out = append(out, h.Name())
		}
		return out
	}

	got := names(NewRunner(app, testLogger()))
	assert.Contains(t, got, "worker:check")
	assert.Contains(t, got, "worker:download")
	assert.Contains(t, got, "worker:outofsync")
	assert.Contains(t, got, "worker:metadata")
	assert.Contains(t, got, "relay")
	assert.Contains(t, got, "maintenance")
	assert.NotContains(t, got, "worker:notify", "no senders configured")
	assert.NotContains(t, got, "worker:integration", "no servers configured")
	assert.NotContains(t, got, "watcher")

	app.Config.Library.Watch = true
	assert.Contains(t, names(NewRunner(app, testLogger())), "watcher")
}

func TestNewApp_BuildsFanOutFromConfig(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := testConfig(t)
	cfg.Notifications.Telegram = &config.TelegramConfig{Token: "t", ChatID: "1"}
	cfg.Integrations.Komga = &config.ServerLogin{URL: "komga:25600", Username: "u", Password: "p"}

	app := NewApp(db, cfg, nil, testLogger())
	defer app.Close()

	assert.True(t, app.Notifier.Enabled())
	assert.True(t, app.Integrations.Enabled())
	assert.NotNil(t, app.Source, "defaults to the mangal CLI")
	assert.Len(t, app.Queues.All(), 6)
}

func TestRunner_MetadataRefresh(t *testing.T) {
	src := &fakeSource{}
	app, _ := setupApp(t, src)
	ctx := context.Background()

	title, err := app.Titles.Add(ctx, titles.AddRequest{
		Name:     "Berserk",
		Source:   "mangadex",
		Interval: interval.Never(),
	})
	require.NoError(t, err)
	added, err := app.Titles.RefreshMetadata(ctx, title.ID)
	require.NoError(t, err)
	require.True(t, added)

	run(t, NewRunner(app, testLogger()))

	require.Eventually(t, func() bool {
		return len(src.metadataDirs()) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{title.Dir()}, src.metadataDirs())

	// No library server is configured, so nothing waits on the integration queue.
	counts, err := app.Queues.Integration.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Waiting)
}
