package library

import (
	"database/sql"
	"fmt"
	"time"
)

const titleColumns = "id, name, source, library_root, interval, url, added_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTitle(r rowScanner) (*Title, error) {
	t := &Title{}
	if err := r.Scan(&t.ID, &t.Name, &t.Source, &t.LibraryRoot, &t.Interval, &t.URL, &t.AddedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

func addTitle(q querier, t *Title) error {
	now := time.Now()
	result, err := q.Exec(`
		INSERT INTO titles (name, source, library_root, interval, url, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Source, t.LibraryRoot, t.Interval, t.URL, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert title: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	t.ID = id
	t.AddedAt = now
	t.UpdatedAt = now
	return nil
}

// AddTitle inserts a new title.
// Sets ID, AddedAt, and UpdatedAt on the struct.
// Returns ErrDuplicate if a title with the same name exists.
func (s *Store) AddTitle(t *Title) error { return addTitle(s.db, t) }

// AddTitle inserts a new title within a transaction.
func (t *Tx) AddTitle(title *Title) error { return addTitle(t.tx, title) }

func getTitle(q querier, id int64) (*Title, error) {
	t, err := scanTitle(q.QueryRow("SELECT "+titleColumns+" FROM titles WHERE id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("get title %d: %w", id, mapSQLiteError(err))
	}
	return t, nil
}

// GetTitle retrieves a title by ID.
// Returns ErrNotFound if the title does not exist.
func (s *Store) GetTitle(id int64) (*Title, error) { return getTitle(s.db, id) }

// GetTitle retrieves a title by ID within a transaction.
func (t *Tx) GetTitle(id int64) (*Title, error) { return getTitle(t.tx, id) }

// GetTitleByName retrieves a title by its display name.
// Returns ErrNotFound if no title has that name.
func (s *Store) GetTitleByName(name string) (*Title, error) {
	t, err := scanTitle(s.db.QueryRow("SELECT "+titleColumns+" FROM titles WHERE name = ?", name))
	if err != nil {
		return nil, fmt.Errorf("get title %q: %w", name, mapSQLiteError(err))
	}
	return t, nil
}

func listTitles(q querier) ([]*Title, error) {
	rows, err := q.Query("SELECT " + titleColumns + " FROM titles ORDER BY name COLLATE NOCASE, id")
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Title
	for rows.Next() {
		t, err := scanTitle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTitles returns all titles ordered by name.
func (s *Store) ListTitles() ([]*Title, error) { return listTitles(s.db) }

func updateTitle(q querier, t *Title) error {
	now := time.Now()
	result, err := q.Exec(`
		UPDATE titles SET name = ?, source = ?, library_root = ?, interval = ?, url = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.Source, t.LibraryRoot, t.Interval, t.URL, now, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update title %d: %w", t.ID, mapSQLiteError(err))
	}
	if err := requireRow(result); err != nil {
		return fmt.Errorf("update title %d: %w", t.ID, err)
	}
	t.UpdatedAt = now
	return nil
}

// UpdateTitle updates an existing title.
// Sets UpdatedAt on the struct. Returns ErrNotFound if the title does not exist.
func (s *Store) UpdateTitle(t *Title) error { return updateTitle(s.db, t) }

// UpdateTitle updates an existing title within a transaction.
func (t *Tx) UpdateTitle(title *Title) error { return updateTitle(t.tx, title) }

func deleteTitle(q querier, id int64) error {
	result, err := q.Exec("DELETE FROM titles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete title %d: %w", id, mapSQLiteError(err))
	}
	if err := requireRow(result); err != nil {
		return fmt.Errorf("delete title %d: %w", id, err)
	}
	return nil
}

// DeleteTitle removes a title. Chapters and out-of-sync marks cascade.
// Returns ErrNotFound if the title does not exist.
func (s *Store) DeleteTitle(id int64) error { return deleteTitle(s.db, id) }

// DeleteTitle removes a title within a transaction.
func (t *Tx) DeleteTitle(id int64) error { return deleteTitle(t.tx, id) }

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
