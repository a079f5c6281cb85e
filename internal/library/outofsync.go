package library

import (
	"fmt"
	"time"
)

// ReplaceOutOfSync replaces the title's out-of-sync snapshot with the given
// chapters: every existing mark is deleted and one mark per chapter ID is
// inserted, in one transaction.
func (s *Store) ReplaceOutOfSync(titleID int64, chapterIDs []int64) error {
	return s.inTx(func(tx *Tx) error {
		if _, err := tx.tx.Exec("DELETE FROM out_of_sync_chapters WHERE title_id = ?", titleID); err != nil {
			return fmt.Errorf("clear out-of-sync for title %d: %w", titleID, mapSQLiteError(err))
		}
		now := time.Now()
		for _, id := range chapterIDs {
			if _, err := tx.tx.Exec(
				"INSERT INTO out_of_sync_chapters (chapter_id, title_id, flagged_at) VALUES (?, ?, ?)",
				id, titleID, now,
			); err != nil {
				return fmt.Errorf("flag chapter %d: %w", id, mapSQLiteError(err))
			}
		}
		return nil
	})
}

// ListOutOfSync returns the title's flagged chapters ordered by index.
func (s *Store) ListOutOfSync(titleID int64) ([]*Chapter, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.title_id, c.idx, c.file_name, c.size_bytes, c.created_at
		FROM out_of_sync_chapters o JOIN chapters c ON c.id = o.chapter_id
		WHERE o.title_id = ?
		ORDER BY c.idx`, titleID)
	if err != nil {
		return nil, fmt.Errorf("list out-of-sync: %w", err)
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

// CountOutOfSync returns the number of flagged chapters per title ID.
// Titles without flags are absent from the map.
func (s *Store) CountOutOfSync() (map[int64]int, error) {
	rows, err := s.db.Query("SELECT title_id, COUNT(*) FROM out_of_sync_chapters GROUP BY title_id")
	if err != nil {
		return nil, fmt.Errorf("count out-of-sync: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// RemoveOutOfSyncChapter deletes a flagged chapter's mark and its chapter row
// in one transaction. A chapter that is already gone is not an error.
func (s *Store) RemoveOutOfSyncChapter(chapterID int64) error {
	return s.inTx(func(tx *Tx) error {
		if _, err := tx.tx.Exec("DELETE FROM out_of_sync_chapters WHERE chapter_id = ?", chapterID); err != nil {
			return fmt.Errorf("unflag chapter %d: %w", chapterID, mapSQLiteError(err))
		}
		if _, err := tx.tx.Exec("DELETE FROM chapters WHERE id = ?", chapterID); err != nil {
			return fmt.Errorf("delete chapter %d: %w", chapterID, mapSQLiteError(err))
		}
		return nil
	})
}
