package library

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_AreDistinct(t *testing.T) {
	assert.NotErrorIs(t, ErrNotFound, ErrDuplicate)
	assert.NotErrorIs(t, ErrNotFound, ErrConstraint)
	assert.NotErrorIs(t, ErrDuplicate, ErrConstraint)
}

func TestMapSQLiteError(t *testing.T) {
	assert.NoError(t, mapSQLiteError(nil))
	assert.ErrorIs(t, mapSQLiteError(fmt.Errorf("scan: %w", sql.ErrNoRows)), ErrNotFound)

	dup := mapSQLiteError(errors.New("constraint failed: UNIQUE constraint failed: titles.name (2067)"))
	assert.ErrorIs(t, dup, ErrDuplicate)
	assert.Contains(t, dup.Error(), "titles.name")

	assert.ErrorIs(t, mapSQLiteError(errors.New("constraint failed: FOREIGN KEY constraint failed (787)")), ErrConstraint)

	other := errors.New("disk I/O error")
	assert.Equal(t, other, mapSQLiteError(other))
}
