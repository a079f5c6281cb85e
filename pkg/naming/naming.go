// Package naming encodes and decodes the on-disk layout of a manga library.
//
// Every path, chapter file name and queue key used elsewhere is derived here
// from the title and chapter names; nothing else in the module reimplements
// these rules. All functions are pure.
//
// Indices are 0-based inside the module. File names and the remote source
// use 1-based numbers, so the ±1 conversion happens only in this package.
package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ArchiveExt is the extension of chapter archives written by the source tool.
const ArchiveExt = ".cbz"

// unsafeChars are replaced by an underscore. Covers path separators,
// shell/URL metacharacters, whitespace and control characters.
var unsafeChars = regexp.MustCompile(`[\\/<>:;"'|?!*{}#%&^+,~\s\p{Z}\p{Cc}]`)

// multiUnderscore matches runs of underscores left by replacement.
var multiUnderscore = regexp.MustCompile(`__+`)

// indexToken matches the first bracketed number in a file name, e.g. "[0007]".
var indexToken = regexp.MustCompile(`\[(\d+)\]`)

// Sanitize turns a display name into a filesystem-safe name.
//
// The result is stable and idempotent: Sanitize(Sanitize(s)) == Sanitize(s).
// Title directories are re-derived with it on every access and never stored.
func Sanitize(name string) string {
	s := norm.NFC.String(name)
	s = unsafeChars.ReplaceAllString(s, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	return strings.Trim(s, "_-.")
}

// TitleDir returns the directory holding a title's chapter archives.
func TitleDir(libraryRoot, title string) string {
	return filepath.Join(libraryRoot, Sanitize(title))
}

// ParseIndex extracts the 0-based chapter index from a file name.
// The bracketed token is 1-based, so "[0001]" yields 0. Returns false when
// the name has no token or the token is "[0]".
func ParseIndex(filename string) (int, bool) {
	m := indexToken.FindStringSubmatch(filepath.Base(filename))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

// IndexToken formats a 0-based index as the 1-based, zero-padded token used
// in file names.
func IndexToken(index int) string {
	return fmt.Sprintf("[%04d]", index+1)
}

// IsArchive reports whether the file name has the chapter archive extension.
func IsArchive(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ArchiveExt)
}

// IsChapterFile reports whether a file name counts as a chapter: an archive
// with a valid index token.
func IsChapterFile(filename string) bool {
	if !IsArchive(filename) {
		return false
	}
	_, ok := ParseIndex(filename)
	return ok
}

// ChapterFilename returns the file name the source tool produces for a
// remote chapter at the given 0-based index.
func ChapterFilename(index int, chapterName string) string {
	name := Sanitize(chapterName)
	if name == "" {
		return IndexToken(index) + ArchiveExt
	}
	return IndexToken(index) + "_" + name + ArchiveExt
}
