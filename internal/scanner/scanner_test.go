package scanner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0644))
}

func TestScan_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "One_Piece")

	chapters, err := Scan(dir)
	require.NoError(t, err)
	assert.Empty(t, chapters)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestScan_FiltersAndOrders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "[0003]_Third.cbz", 30)
	writeFile(t, dir, "[0001]_First.cbz", 10)
	writeFile(t, dir, "[0002]_Second.CBZ", 20)
	writeFile(t, dir, "[0002]_Another.cbz", 21)
	writeFile(t, dir, "[0000]_Zero.cbz", 1)
	writeFile(t, dir, "cover.jpg", 5)
	writeFile(t, dir, "[0004]_Partial.cbz.part", 5)
	writeFile(t, dir, "no_index.cbz", 5)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "[0009]_dir.cbz"), 0755))

	chapters, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, chapters, 4)

	assert.Equal(t, 0, chapters[0].Index)
	assert.Equal(t, "[0001]_First.cbz", chapters[0].FileName)
	assert.Equal(t, int64(10), chapters[0].SizeBytes)

	assert.Equal(t, 1, chapters[1].Index)
	assert.Equal(t, "[0002]_Another.cbz", chapters[1].FileName)
	assert.Equal(t, 1, chapters[2].Index)
	assert.Equal(t, "[0002]_Second.CBZ", chapters[2].FileName)

	assert.Equal(t, 2, chapters[3].Index)
}

func TestScan_CreatedAtIsSet(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "[0001]_a.cbz", 1)

	chapters, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	assert.False(t, chapters[0].CreatedAt.IsZero())
	assert.WithinDuration(t, time.Now(), chapters[0].CreatedAt, time.Minute)
}

func TestScan_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file", 1)

	_, err := Scan(filepath.Join(dir, "file"))
	assert.Error(t, err)
}

func TestScanFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "[0042]_The_Answer.cbz", 42)

	ch, err := ScanFile(filepath.Join(dir, "[0042]_The_Answer.cbz"))
	require.NoError(t, err)
	assert.Equal(t, 41, ch.Index)
	assert.Equal(t, "[0042]_The_Answer.cbz", ch.FileName)
	assert.Equal(t, int64(42), ch.SizeBytes)
}

func TestScanFile_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", 1)
	writeFile(t, dir, "no_index.cbz", 1)

	_, err := ScanFile(filepath.Join(dir, "notes.txt"))
	assert.Error(t, err)

	_, err = ScanFile(filepath.Join(dir, "no_index.cbz"))
	assert.Error(t, err)

	_, err = ScanFile(filepath.Join(dir, "[0001]_missing.cbz"))
	assert.True(t, os.IsNotExist(err))
}

func TestCheckReadable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "[0001]_a.cbz", 4)
	path := filepath.Join(dir, "[0001]_a.cbz")

	require.NoError(t, CheckReadable(path))
	assert.True(t, os.IsNotExist(CheckReadable(filepath.Join(dir, "[0002]_b.cbz"))))

	if os.Geteuid() == 0 {
		t.Skip("root reads files regardless of mode")
	}
	require.NoError(t, os.Chmod(path, 0))
	assert.True(t, os.IsPermission(CheckReadable(path)))
}
