package events

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vmunix/kaizoku/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "events.db"), database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func downloaded(titleID int64, index int) *ChapterDownloaded {
	return &ChapterDownloaded{
		BaseEvent: ForTitle(EventChapterDownloaded, titleID),
		TitleID:   titleID,
		Title:     "One Piece",
		Source:    "mangadex",
		Index:     index,
		FileName:  "[0001]_Romance_Dawn.cbz",
	}
}
