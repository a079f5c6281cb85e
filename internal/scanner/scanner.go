// Package scanner lists the chapter archives present in a title directory.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/djherbis/times"

	"github.com/vmunix/kaizoku/pkg/naming"
)

// LocalChapter is a chapter archive found on disk.
type LocalChapter struct {
	Index     int // 0-based
	FileName  string
	SizeBytes int64
	CreatedAt time.Time
}

// Scan returns the chapters in dir ordered by index, then file name.
// The directory is created if it does not exist. Files without an index
// token or with another extension are ignored.
func Scan(dir string) ([]LocalChapter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var out []LocalChapter
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if !naming.IsChapterFile(e.Name()) {
			continue
		}
		ch, err := ScanFile(filepath.Join(dir, e.Name()))
		if err != nil {
			// Removed between listing and stat.
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		out = append(out, ch)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].FileName < out[j].FileName
	})
	return out, nil
}

// ScanFile derives a chapter from a single archive path.
func ScanFile(path string) (LocalChapter, error) {
	name := filepath.Base(path)
	if !naming.IsArchive(name) {
		return LocalChapter{}, fmt.Errorf("%s: not a chapter archive", name)
	}
	index, ok := naming.ParseIndex(name)
	if !ok {
		return LocalChapter{}, fmt.Errorf("%s: no chapter index in file name", name)
	}

	info, err := os.Stat(path)
	if err != nil {
		return LocalChapter{}, err
	}
	if !info.Mode().IsRegular() {
		return LocalChapter{}, fmt.Errorf("%s: not a regular file", name)
	}

	return LocalChapter{
		Index:     index,
		FileName:  name,
		SizeBytes: info.Size(),
		CreatedAt: createdAt(info),
	}, nil
}

// CheckReadable opens the archive at path to confirm this process can read
// it.
func CheckReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// createdAt prefers birth time, then change time, then modification time,
// then the current time.
func createdAt(info os.FileInfo) time.Time {
	ts := times.Get(info)
	if ts.HasBirthTime() {
		if t := ts.BirthTime(); !t.IsZero() {
			return t
		}
	}
	if ts.HasChangeTime() {
		if t := ts.ChangeTime(); !t.IsZero() {
			return t
		}
	}
	if t := ts.ModTime(); !t.IsZero() {
		return t
	}
	return time.Now()
}
