package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmunix/kaizoku/internal/integration"
	"github.com/vmunix/kaizoku/internal/library"
	"github.com/vmunix/kaizoku/internal/notify"
	"github.com/vmunix/kaizoku/internal/outofsync"
	"github.com/vmunix/kaizoku/internal/queue"
	"github.com/vmunix/kaizoku/internal/reconcile"
	"github.com/vmunix/kaizoku/internal/scheduler"
)

// Checker runs a chapter check.
type Checker interface {
	Check(ctx context.Context, titleID int64) (*reconcile.Result, error)
}

// Fixer removes out-of-sync chapters.
type Fixer interface {
	Fix(ctx context.Context, titleID int64) (*outofsync.Result, error)
}

// Sender delivers a notification.
type Sender interface {
	Send(ctx context.Context, m notify.Message) error
}

// Refresher refreshes library servers.
type Refresher interface {
	ScanLibrary(ctx context.Context) error
	Refresh(ctx context.Context, title string) error
}

// NotifyPayload is the body of a notification job.
type NotifyPayload struct {
	TitleID  int64   `json:"title_id"`
	Title    string  `json:"title"`
	Index    int     `json:"index"`
	FileName string  `json:"file_name"`
	Source   string  `json:"source"`
	URL      *string `json:"url,omitempty"`
}

// titleGone turns a missing title into an obsolete job.
func titleGone(err error) error {
	if errors.Is(err, library.ErrNotFound) {
		return fmt.Errorf("%w: %v", queue.ErrObsolete, err)
	}
	return err
}

// CheckJob handles both the recurring and the one-shot check jobs.
func CheckJob(c Checker) queue.Handler {
	return func(ctx context.Context, job *queue.Job) error {
		var p scheduler.Payload
		if err := job.Decode(&p); err != nil {
			return fmt.Errorf("%w: %v", queue.ErrPermanent, err)
		}
		_, err := c.Check(ctx, p.TitleID)
		return titleGone(err)
	}
}

// FixJob handles out-of-sync fix jobs.
func FixJob(f Fixer) queue.Handler {
	return func(ctx context.Context, job *queue.Job) error {
		var p outofsync.Payload
		if err := job.Decode(&p); err != nil {
			return fmt.Errorf("%w: %v", queue.ErrPermanent, err)
		}
		_, err := f.Fix(ctx, p.TitleID)
		return titleGone(err)
	}
}

// NotifyJob handles notification jobs. A message the endpoint rejects
// outright is not retried.
func NotifyJob(s Sender) queue.Handler {
	return func(ctx context.Context, job *queue.Job) error {
		var p NotifyPayload
		if err := job.Decode(&p); err != nil {
			return fmt.Errorf("%w: %v", queue.ErrPermanent, err)
		}
		err := s.Send(ctx, notify.ChapterMessage(p.Title, p.Index, p.FileName, p.Source, p.URL))
		if errors.Is(err, notify.ErrRejected) {
			return fmt.Errorf("%w: %v", queue.ErrPermanent, err)
		}
		return err
	}
}

// IntegrationJob handles integration refresh jobs.
func IntegrationJob(r Refresher) queue.Handler {
	return func(ctx context.Context, job *queue.Job) error {
		var p integration.Payload
		if err := job.Decode(&p); err != nil {
			return fmt.Errorf("%w: %v", queue.ErrPermanent, err)
		}
		if p.ScanOnly {
			return r.ScanLibrary(ctx)
		}
		return r.Refresh(ctx, p.Title)
	}
}

var (
	_ Refresher = (*integration.Set)(nil)
	_ Sender    = (*notify.Notifier)(nil)
	_ Checker   = (*reconcile.Reconciler)(nil)
	_ Fixer     = (*outofsync.Fixer)(nil)
)
