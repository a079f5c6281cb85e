// Package database opens the SQLite database shared by the registry, the
// event log and the work queue.
package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/vmunix/kaizoku/internal/migrations"
)

// Options tune the connection. The zero value is suitable for the daemon.
type Options struct {
	// BusyTimeoutMS is how long a writer waits on a locked database.
	BusyTimeoutMS int
	// MaxOpenConns caps the pool; 0 leaves the driver default.
	MaxOpenConns int
}

// DSN builds a modernc.org/sqlite data source name for path.
// Foreign keys are enforced, WAL is enabled and transactions take the write
// lock up front so that claim-and-update sequences never deadlock on upgrade.
func DSN(path string, opts Options) string {
	busy := opts.BusyTimeoutMS
	if busy <= 0 {
		busy = 5000
	}
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Set("_txlock", "immediate")
	q.Set("_time_format", "sqlite")
	return "file:" + path + "?" + q.Encode()
}

// Open creates the parent directory, opens the database and applies all
// pending migrations.
func Open(path string, opts Options) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", DSN(path, opts))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := migrations.Apply(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
