package queue

import (
	"context"
	"fmt"
	"time"
)

// Pause stops workers of this queue, in any process, from claiming new jobs,
// then waits up to wait for active jobs to finish. The queue stays paused
// when waiting times out; the returned error wraps ErrPauseTimeout.
func (q *Queue) Pause(ctx context.Context, wait time.Duration) error {
	if err := q.setPaused(ctx, true); err != nil {
		return err
	}

	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		var active int
		if err := q.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM jobs WHERE queue = ? AND state = 'active'", q.name,
		).Scan(&active); err != nil {
			return fmt.Errorf("count active: %w", err)
		}
		if active == 0 {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("pause %s: %d still running: %w", q.name, active, ErrPauseTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Resume lets workers claim jobs again.
func (q *Queue) Resume(ctx context.Context) error {
	return q.setPaused(ctx, false)
}

// Paused reports whether the queue is paused.
func (q *Queue) Paused(ctx context.Context) (bool, error) {
	var paused bool
	err := q.db.QueryRowContext(ctx,
		"SELECT COALESCE((SELECT paused FROM queue_state WHERE queue = ?), 0)", q.name,
	).Scan(&paused)
	if err != nil {
		return false, fmt.Errorf("read pause state: %w", err)
	}
	return paused, nil
}

func (q *Queue) setPaused(ctx context.Context, paused bool) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO queue_state (queue, paused) VALUES (?, ?)
		ON CONFLICT (queue) DO UPDATE SET paused = excluded.paused`,
		q.name, paused)
	if err != nil {
		return fmt.Errorf("set paused=%t on %s: %w", paused, q.name, err)
	}
	return nil
}
