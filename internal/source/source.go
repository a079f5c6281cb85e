//go:generate mockgen -source=source.go -destination=mocks/mock_source.go -package=mocks

// Package source talks to the mangal CLI, the external tool that lists and
// downloads chapters from manga sources.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrToolFailed indicates the tool exited non-zero or wrote to stderr.
	ErrToolFailed = errors.New("source tool failed")

	// ErrNoOutput indicates a download reported no file path.
	ErrNoOutput = errors.New("source tool produced no file")
)

// ToolError carries the diagnostic output of a failed invocation.
type ToolError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	msg := e.Stderr
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("mangal %v: %s", e.Args, msg)
}

func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrToolFailed}
	}
	return []error{ErrToolFailed, e.Err}
}

// RemoteChapter is a chapter as reported by a source.
type RemoteChapter struct {
	Index  int // 0-based
	Name   string
	URL    string
	Volume string
}

// Manga is a search result from a source.
type Manga struct {
	Source   string
	Name     string
	URL      string
	Chapters []RemoteChapter
}

// Provider lists sources and chapters, fetches chapter archives and
// maintains series metadata.
type Provider interface {
	// Sources returns the installed source identifiers.
	Sources(ctx context.Context) ([]string, error)
	// Search returns every manga the source reports for query.
	Search(ctx context.Context, src, query string) ([]Manga, error)
	// Chapters returns the chapter list of the manga exactly matching title.
	// Zero or ambiguous matches yield an empty list and no error.
	Chapters(ctx context.Context, src, title string) ([]RemoteChapter, error)
	// Download fetches one chapter into dir and returns the written path.
	Download(ctx context.Context, src, title string, index int, dir string) (string, error)
	// BindAnilist pins the AniList entry used for title's metadata.
	BindAnilist(ctx context.Context, title, anilistID string) error
	// UpdateMetadata rewrites the metadata of the archives in dir.
	UpdateMetadata(ctx context.Context, dir string) error
}

// Config configures the mangal client.
type Config struct {
	Binary  string        // defaults to "mangal"
	Timeout time.Duration // per invocation, 0 for none
}
