package library

import (
	"fmt"
	"time"
)

const chapterColumns = "id, title_id, idx, file_name, size_bytes, created_at"

func scanChapter(r rowScanner) (*Chapter, error) {
	c := &Chapter{}
	if err := r.Scan(&c.ID, &c.TitleID, &c.Index, &c.FileName, &c.SizeBytes, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func addChapter(q querier, c *Chapter) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	result, err := q.Exec(`
		INSERT INTO chapters (title_id, idx, file_name, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.TitleID, c.Index, c.FileName, c.SizeBytes, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert chapter %d of title %d: %w", c.Index, c.TitleID, mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	c.ID = id
	return nil
}

// AddChapter inserts a chapter. CreatedAt defaults to now.
// Returns ErrDuplicate if the index is taken and ErrConstraint if the title
// does not exist.
func (s *Store) AddChapter(c *Chapter) error { return addChapter(s.db, c) }

// AddChapter inserts a chapter within a transaction.
func (t *Tx) AddChapter(c *Chapter) error { return addChapter(t.tx, c) }

func getChapterByIndex(q querier, titleID int64, index int) (*Chapter, error) {
	c, err := scanChapter(q.QueryRow(
		"SELECT "+chapterColumns+" FROM chapters WHERE title_id = ? AND idx = ?", titleID, index,
	))
	if err != nil {
		return nil, fmt.Errorf("get chapter %d of title %d: %w", index, titleID, mapSQLiteError(err))
	}
	return c, nil
}

// GetChapterByIndex retrieves a title's chapter at a 0-based index.
// Returns ErrNotFound if there is none.
func (s *Store) GetChapterByIndex(titleID int64, index int) (*Chapter, error) {
	return getChapterByIndex(s.db, titleID, index)
}

func listChapters(q querier, titleID int64) ([]*Chapter, error) {
	rows, err := q.Query("SELECT "+chapterColumns+" FROM chapters WHERE title_id = ? ORDER BY idx", titleID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Chapter
	for rows.Next() {
		c, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListChapters returns a title's chapters ordered by index.
func (s *Store) ListChapters(titleID int64) ([]*Chapter, error) { return listChapters(s.db, titleID) }

// ListChapters returns a title's chapters within a transaction.
func (t *Tx) ListChapters(titleID int64) ([]*Chapter, error) { return listChapters(t.tx, titleID) }

func deleteChapter(q querier, id int64) error {
	result, err := q.Exec("DELETE FROM chapters WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete chapter %d: %w", id, mapSQLiteError(err))
	}
	if err := requireRow(result); err != nil {
		return fmt.Errorf("delete chapter %d: %w", id, err)
	}
	return nil
}

// DeleteChapter removes a chapter by ID.
func (s *Store) DeleteChapter(id int64) error { return deleteChapter(s.db, id) }

// DeleteChapter removes a chapter within a transaction.
func (t *Tx) DeleteChapter(id int64) error { return deleteChapter(t.tx, id) }

func deleteChapterAtIndex(q querier, titleID int64, index int) error {
	if _, err := q.Exec("DELETE FROM chapters WHERE title_id = ? AND idx = ?", titleID, index); err != nil {
		return fmt.Errorf("delete chapter %d of title %d: %w", index, titleID, mapSQLiteError(err))
	}
	return nil
}

// ReplaceChapter deletes any chapter at c's index and inserts c, in one
// transaction. The file name may differ from the replaced row.
func (s *Store) ReplaceChapter(c *Chapter) error {
	return s.inTx(func(tx *Tx) error {
		if err := deleteChapterAtIndex(tx.tx, c.TitleID, c.Index); err != nil {
			return err
		}
		return addChapter(tx.tx, c)
	})
}

// SyncChapters makes the title's registry rows match local, the chapters
// present on disk. Rows whose (index, filename) pair is absent from local
// are deleted; local entries without a matching row are inserted. All
// changes commit together.
//
// local must not contain two entries with the same index.
func (s *Store) SyncChapters(titleID int64, local []*Chapter) (*SyncResult, error) {
	want := make(map[ChapterKey]*Chapter, len(local))
	seen := make(map[int]bool, len(local))
	for _, c := range local {
		if seen[c.Index] {
			return nil, fmt.Errorf("sync chapters of title %d: index %d listed twice: %w", titleID, c.Index, ErrDuplicate)
		}
		seen[c.Index] = true
		want[c.Key()] = c
	}

	result := &SyncResult{}
	err := s.inTx(func(tx *Tx) error {
		existing, err := listChapters(tx.tx, titleID)
		if err != nil {
			return err
		}

		have := make(map[ChapterKey]bool, len(existing))
		for _, c := range existing {
			if _, ok := want[c.Key()]; ok {
				have[c.Key()] = true
				continue
			}
			if err := deleteChapter(tx.tx, c.ID); err != nil {
				return err
			}
			result.Deleted = append(result.Deleted, c)
		}

		for _, c := range local {
			if have[c.Key()] {
				continue
			}
			row := &Chapter{
				TitleID:   titleID,
				Index:     c.Index,
				FileName:  c.FileName,
				SizeBytes: c.SizeBytes,
				CreatedAt: c.CreatedAt,
			}
			if err := addChapter(tx.tx, row); err != nil {
				return err
			}
			result.Inserted = append(result.Inserted, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecentChapters returns the most recently created chapters across all
// titles, newest first.
func (s *Store) RecentChapters(limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT c.id, c.title_id, c.idx, c.file_name, c.size_bytes, c.created_at, t.name
		FROM chapters c JOIN titles t ON t.id = c.title_id
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent chapters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*HistoryEntry
	for rows.Next() {
		h := &HistoryEntry{}
		if err := rows.Scan(&h.ID, &h.TitleID, &h.Index, &h.FileName, &h.SizeBytes, &h.CreatedAt, &h.TitleName); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
