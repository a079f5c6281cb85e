package library

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// querier is satisfied by *sql.DB and *sql.Tx so reads and writes are
// written once and used both inside and outside a batch.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
	Exec(query string, args ...any) (sql.Result, error)
}

// Store is the title and chapter registry.
type Store struct {
	db *sql.DB
}

// NewStore returns a registry over an opened, migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Tx is a registry batch. Either every write in it lands or none does.
type Tx struct {
	tx *sql.Tx
}

// Begin opens a batch. Callers must Commit or Rollback it.
func (s *Store) Begin() (*Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	return &Tx{tx: tx}, nil
}

func (t *Tx) Commit() error   { return mapSQLiteError(t.tx.Commit()) }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// inTx runs fn as one batch, rolling back when fn fails.
func (s *Store) inTx(fn func(tx *Tx) error) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// sqliteErrors maps driver messages to registry errors. modernc.org/sqlite
// does not expose typed constraint errors.
var sqliteErrors = []struct {
	marker string
	err    error
}{
	{"UNIQUE constraint failed", ErrDuplicate},
	{"PRIMARY KEY constraint failed", ErrDuplicate},
	{"FOREIGN KEY constraint failed", ErrConstraint},
	{"CHECK constraint failed", ErrConstraint},
}

func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	msg := err.Error()
	for _, m := range sqliteErrors {
		if strings.Contains(msg, m.marker) {
			return fmt.Errorf("%w: %s", m.err, msg)
		}
	}
	return err
}
