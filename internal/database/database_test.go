package database

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN("/var/lib/kaizoku/kaizoku.db", Options{})
	assert.True(t, strings.HasPrefix(dsn, "file:/var/lib/kaizoku/kaizoku.db?"))
	assert.Contains(t, dsn, "foreign_keys%281%29")
	assert.Contains(t, dsn, "busy_timeout%285000%29")
	assert.Contains(t, dsn, "_txlock=immediate")

	assert.Contains(t, DSN("x.db", Options{BusyTimeoutMS: 100}), "busy_timeout%28100%29")
}

func TestOpen_CreatesDirAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "kaizoku.db")

	db, err := Open(path, Options{})
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM titles").Scan(&n))
	assert.Zero(t, n)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kaizoku.db")

	db, err := Open(path, Options{})
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO queue_state (queue, paused) VALUES ('download', 1)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path, Options{})
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var paused bool
	require.NoError(t, db.QueryRow(`SELECT paused FROM queue_state WHERE queue = 'download'`).Scan(&paused))
	assert.True(t, paused)
}
