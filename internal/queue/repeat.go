package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vmunix/kaizoku/pkg/interval"
)

// AddRepeatable installs or replaces the repeatable with r.Key. Its first run
// is the interval's next activation after now.
func (q *Queue) AddRepeatable(ctx context.Context, r RepeatRequest) error {
	if r.Interval.IsNever() {
		return fmt.Errorf("add repeatable %s: %w: never", r.Key, interval.ErrInvalid)
	}
	payload, err := marshalPayload(r.Payload)
	if err != nil {
		return err
	}
	now := q.now()
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO repeatables (queue, job_key, group_id, pattern, payload, next_run_ms, created_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (queue, job_key) DO UPDATE SET
			group_id = excluded.group_id,
			pattern = excluded.pattern,
			payload = excluded.payload,
			next_run_ms = excluded.next_run_ms`,
		q.name, r.Key, r.GroupID, r.Interval.Pattern(), payload, ms(r.Interval.Next(now)), ms(now),
	)
	if err != nil {
		return fmt.Errorf("add repeatable %s: %w", r.Key, err)
	}
	return nil
}

// RemoveRepeatable deletes the repeatable with the given key.
// Returns ErrNotFound if none is installed.
func (q *Queue) RemoveRepeatable(ctx context.Context, key string) error {
	result, err := q.db.ExecContext(ctx,
		"DELETE FROM repeatables WHERE queue = ? AND job_key = ?", q.name, key)
	if err != nil {
		return fmt.Errorf("remove repeatable %s: %w", key, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("remove repeatable %s: %w", key, ErrNotFound)
	}
	return nil
}

// Repeatables lists the installed repeatables ordered by next run.
func (q *Queue) Repeatables(ctx context.Context) ([]*Repeatable, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT queue, job_key, group_id, pattern, payload, next_run_ms
		FROM repeatables WHERE queue = ? ORDER BY next_run_ms, job_key`, q.name)
	if err != nil {
		return nil, fmt.Errorf("list repeatables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Repeatable
	for rows.Next() {
		var (
			r       Repeatable
			payload string
			next    int64
		)
		if err := rows.Scan(&r.Queue, &r.Key, &r.GroupID, &r.Pattern, &payload, &next); err != nil {
			return nil, fmt.Errorf("scan repeatable: %w", err)
		}
		r.Payload = json.RawMessage(payload)
		r.NextRun = fromMS(next)
		out = append(out, &r)
	}
	return out, rows.Err()
}

// PromoteDue adds a job for every repeatable whose next run has passed and
// advances it to the following activation. A repeatable whose previous job
// is still waiting or active does not stack a second one.
func (q *Queue) PromoteDue(ctx context.Context) (int, error) {
	now := q.now()

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin promote: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT job_key, group_id, pattern, payload
		FROM repeatables WHERE queue = ? AND next_run_ms <= ?`, q.name, ms(now))
	if err != nil {
		return 0, fmt.Errorf("due repeatables: %w", err)
	}
	type due struct {
		key, pattern, payload string
		group                 int64
	}
	var list []due
	for rows.Next() {
		var d due
		if err := rows.Scan(&d.key, &d.group, &d.pattern, &d.payload); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan repeatable: %w", err)
		}
		list = append(list, d)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	promoted := 0
	for _, d := range list {
		iv, err := interval.Parse(d.pattern)
		if err != nil || iv.IsNever() {
			q.logger.Error("dropping repeatable with bad pattern", "key", d.key, "pattern", d.pattern, "error", err)
			if _, err := tx.ExecContext(ctx, "DELETE FROM repeatables WHERE queue = ? AND job_key = ?", q.name, d.key); err != nil {
				return 0, fmt.Errorf("drop repeatable %s: %w", d.key, err)
			}
			continue
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO jobs (queue, job_key, group_id, payload, state, attempts, max_attempts, backoff_ms, run_at_ms, created_ms, updated_ms)
			VALUES (?, ?, ?, ?, 'waiting', 0, ?, ?, ?, ?, ?)
			ON CONFLICT (queue, job_key) DO UPDATE SET
				group_id = excluded.group_id,
				payload = excluded.payload,
				state = 'waiting',
				attempts = 0,
				last_error = NULL,
				run_at_ms = excluded.run_at_ms,
				updated_ms = excluded.updated_ms
			WHERE jobs.state IN ('completed', 'failed')`,
			q.name, d.key, d.group, d.payload, q.opts.Attempts, q.opts.Backoff.Milliseconds(),
			ms(now), ms(now), ms(now),
		)
		if err != nil {
			return 0, fmt.Errorf("promote %s: %w", d.key, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			promoted++
		} else {
			q.logger.Debug("previous run still pending", "key", d.key)
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE repeatables SET next_run_ms = ? WHERE queue = ? AND job_key = ?",
			ms(iv.Next(now)), q.name, d.key,
		); err != nil {
			return 0, fmt.Errorf("advance %s: %w", d.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit promote: %w", err)
	}
	return promoted, nil
}
