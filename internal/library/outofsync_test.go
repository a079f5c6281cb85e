package library

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ReplaceOutOfSync_IsSnapshot(t *testing.T) {
	store := NewStore(setupTestDB(t))
	title := addTestTitle(t, store, "Foo")

	var ids []int64
	for i := 0; i < 3; i++ {
		c := &Chapter{TitleID: title.ID, Index: i, FileName: chapterName(i)}
		require.NoError(t, store.AddChapter(c))
		ids = append(ids, c.ID)
	}

	require.NoError(t, store.ReplaceOutOfSync(title.ID, ids[:2]))
	flagged, err := store.ListOutOfSync(title.ID)
	require.NoError(t, err)
	assert.Len(t, flagged, 2)

	// A second run replaces rather than accumulates.
	require.NoError(t, store.ReplaceOutOfSync(title.ID, ids[2:]))
	flagged, err = store.ListOutOfSync(title.ID)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, 2, flagged[0].Index)

	require.NoError(t, store.ReplaceOutOfSync(title.ID, nil))
	flagged, err = store.ListOutOfSync(title.ID)
	require.NoError(t, err)
	assert.Empty(t, flagged)
}

func TestStore_ReplaceOutOfSync_ScopedToTitle(t *testing.T) {
	store := NewStore(setupTestDB(t))
	foo := addTestTitle(t, store, "Foo")
	bar := addTestTitle(t, store, "Bar")

	fc := &Chapter{TitleID: foo.ID, Index: 0, FileName: "[0001].cbz"}
	bc := &Chapter{TitleID: bar.ID, Index: 0, FileName: "[0001].cbz"}
	require.NoError(t, store.AddChapter(fc))
	require.NoError(t, store.AddChapter(bc))

	require.NoError(t, store.ReplaceOutOfSync(foo.ID, []int64{fc.ID}))
	require.NoError(t, store.ReplaceOutOfSync(bar.ID, []int64{bc.ID}))
	require.NoError(t, store.ReplaceOutOfSync(foo.ID, nil))

	counts, err := store.CountOutOfSync()
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{bar.ID: 1}, counts)
}

func TestStore_RemoveOutOfSyncChapter(t *testing.T) {
	store := NewStore(setupTestDB(t))
	title := addTestTitle(t, store, "Foo")

	c := &Chapter{TitleID: title.ID, Index: 5, FileName: "[0006]_Old.cbz"}
	require.NoError(t, store.AddChapter(c))
	require.NoError(t, store.ReplaceOutOfSync(title.ID, []int64{c.ID}))

	require.NoError(t, store.RemoveOutOfSyncChapter(c.ID))

	flagged, err := store.ListOutOfSync(title.ID)
	require.NoError(t, err)
	assert.Empty(t, flagged)
	_, err = store.GetChapterByIndex(title.ID, 5)
	assert.ErrorIs(t, err, ErrNotFound)

	// Already gone is fine.
	assert.NoError(t, store.RemoveOutOfSyncChapter(c.ID))
}

func chapterName(i int) string {
	return fmt.Sprintf("[%04d]_x.cbz", i+1)
}
