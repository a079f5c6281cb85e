// Package library is the title registry: tracked titles, their known
// chapters and the out-of-sync snapshot.
package library

import (
	"time"

	"github.com/vmunix/kaizoku/pkg/interval"
	"github.com/vmunix/kaizoku/pkg/naming"
)

// Title is a tracked manga series bound to one source.
type Title struct {
	ID          int64
	Name        string
	Source      string
	LibraryRoot string
	Interval    interval.Interval
	URL         *string // external reference, optional
	AddedAt     time.Time
	UpdatedAt   time.Time
}

// Dir returns the title's chapter directory, derived from its name.
func (t *Title) Dir() string {
	return naming.TitleDir(t.LibraryRoot, t.Name)
}

// Chapter is one locally present chapter archive.
// Index is 0-based and unique per title.
type Chapter struct {
	ID        int64
	TitleID   int64
	Index     int
	FileName  string
	SizeBytes int64
	CreatedAt time.Time
}

// Key identifies a chapter by the pair used for registry and out-of-sync
// matching.
func (c *Chapter) Key() ChapterKey {
	return ChapterKey{Index: c.Index, FileName: c.FileName}
}

// ChapterKey is the (index, filename) pair chapters are matched on.
type ChapterKey struct {
	Index    int
	FileName string
}

// HistoryEntry is a recently recorded chapter with its title name.
type HistoryEntry struct {
	Chapter
	TitleName string
}

// SyncResult reports what a registry sync changed.
type SyncResult struct {
	Deleted  []*Chapter
	Inserted []*Chapter
}

// Changed reports whether the sync mutated the registry.
func (r *SyncResult) Changed() bool {
	return len(r.Deleted) > 0 || len(r.Inserted) > 0
}
