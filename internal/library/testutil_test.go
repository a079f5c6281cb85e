package library

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/vmunix/kaizoku/internal/database"
	"github.com/vmunix/kaizoku/pkg/interval"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), database.Options{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func addTestTitle(t *testing.T, store *Store, name string) *Title {
	t.Helper()
	title := &Title{
		Name:        name,
		Source:      "mangadex",
		LibraryRoot: "/manga",
		Interval:    interval.MustRecurring("0 * * * *"),
	}
	if err := store.AddTitle(title); err != nil {
		t.Fatalf("AddTitle: %v", err)
	}
	return title
}

// ptr is a helper to create pointer to value
func ptr[T any](v T) *T {
	return &v
}
