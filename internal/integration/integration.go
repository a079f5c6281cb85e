// Package integration asks library servers (Komga, Kavita) to pick up
// chapters written to disk.
package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Payload is the body of an integration job.
type Payload struct {
	TitleID int64  `json:"title_id"`
	Title   string `json:"title"`
	// ScanOnly skips the series refresh, for titles that no longer exist.
	ScanOnly bool `json:"scan_only,omitempty"`
}

// Refresher is one library server.
type Refresher interface {
	Name() string
	// ScanLibrary rescans every library on the server.
	ScanLibrary(ctx context.Context) error
	// RefreshSeries refreshes the metadata of the series for title. A
	// series the server does not know yet is not an error.
	RefreshSeries(ctx context.Context, title string) error
}

// Set runs every configured refresher concurrently.
type Set struct {
	refreshers []Refresher
	log        *slog.Logger
}

// NewSet creates a Set. With no refreshers every call is a no-op.
func NewSet(log *slog.Logger, refreshers ...Refresher) *Set {
	if log == nil {
		log = slog.Default()
	}
	return &Set{refreshers: refreshers, log: log.With("component", "integration")}
}

// Enabled reports whether any refresher is configured.
func (s *Set) Enabled() bool {
	return len(s.refreshers) > 0
}

// ScanLibrary scans the libraries of every server.
func (s *Set) ScanLibrary(ctx context.Context) error {
	return s.each(ctx, "scan library", func(ctx context.Context, r Refresher) error {
		return r.ScanLibrary(ctx)
	})
}

// Refresh scans the libraries, then refreshes the title's series metadata,
// on every server.
func (s *Set) Refresh(ctx context.Context, title string) error {
	return s.each(ctx, "refresh "+title, func(ctx context.Context, r Refresher) error {
		if err := r.ScanLibrary(ctx); err != nil {
			return err
		}
		return r.RefreshSeries(ctx, title)
	})
}

// each runs fn on every refresher. One server failing does not cancel the
// others; the result joins every failure.
func (s *Set) each(ctx context.Context, op string, fn func(context.Context, Refresher) error) error {
	errs := make([]error, len(s.refreshers))
	var g errgroup.Group
	for i, r := range s.refreshers {
		g.Go(func() error {
			if err := fn(ctx, r); err != nil {
				s.log.Warn("integration failed", "server", r.Name(), "op", op, "error", err)
				errs[i] = fmt.Errorf("%s: %w", r.Name(), err)
				return nil
			}
			s.log.Debug("integration done", "server", r.Name(), "op", op)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// baseURL accepts "host:port" as well as a full URL.
func baseURL(host string) string {
	host = strings.TrimSuffix(strings.TrimSpace(host), "/")
	lower := strings.ToLower(host)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return host
	}
	return "http://" + host
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(body) > 0 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return fmt.Errorf("unexpected status: %d", resp.StatusCode)
}
