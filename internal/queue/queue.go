//go:generate mockgen -source=queue.go -destination=mocks/mock_queue.go -package=mocks

// Package queue is a durable, at-least-once job queue stored in SQLite.
//
// Jobs are identified by a key unique per queue. Adding a key that is already
// waiting or active is a no-op, so deriving the same unit of work twice
// yields one job. Failed attempts are retried after a fixed backoff until the
// attempt budget is spent. Repeatables are cron-driven templates that spawn a
// job under their own key each time they come due.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmunix/kaizoku/pkg/interval"
)

// State is the lifecycle state of a job.
type State string

const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Job is a unit of queued work.
type Job struct {
	ID          int64
	Queue       string
	Key         string
	GroupID     int64
	Payload     json.RawMessage
	State       State
	Attempts    int
	MaxAttempts int
	Backoff     time.Duration
	RunAt       time.Time
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("decode payload of %s: %w", j.Key, err)
	}
	return nil
}

// Delayed reports whether a waiting job is not yet due.
func (j *Job) Delayed(now time.Time) bool {
	return j.State == StateWaiting && j.RunAt.After(now)
}

// Request describes a job to add. Zero Attempts and Backoff take the queue
// defaults.
type Request struct {
	Key      string
	GroupID  int64 // owning title, used for bulk removal
	Payload  any
	Delay    time.Duration
	Attempts int
	Backoff  time.Duration
}

// RepeatRequest describes a repeatable job.
type RepeatRequest struct {
	Key      string
	GroupID  int64
	Interval interval.Interval
	Payload  any
}

// Repeatable is an installed recurring trigger.
type Repeatable struct {
	Queue   string
	Key     string
	GroupID int64
	Pattern string
	Payload json.RawMessage
	NextRun time.Time
}

// Counts summarizes a queue.
type Counts struct {
	Waiting   int  `json:"waiting"`
	Delayed   int  `json:"delayed"`
	Active    int  `json:"active"`
	Completed int  `json:"completed"`
	Failed    int  `json:"failed"`
	Paused    bool `json:"paused"`
}

// Options are the queue-wide job defaults.
type Options struct {
	Attempts int
	Backoff  time.Duration
}

// JobQueue is the queue surface used by the scheduling components.
type JobQueue interface {
	Name() string
	Add(ctx context.Context, r Request) (bool, error)
	Get(ctx context.Context, key string) (*Job, error)
	Remove(ctx context.Context, key string) error
	RemoveGroup(ctx context.Context, groupID int64) (int, error)
	AddRepeatable(ctx context.Context, r RepeatRequest) error
	RemoveRepeatable(ctx context.Context, key string) error
	Repeatables(ctx context.Context) ([]*Repeatable, error)
	Pause(ctx context.Context, wait time.Duration) error
	Resume(ctx context.Context) error
}

var _ JobQueue = (*Queue)(nil)

// Queue is one named queue in the jobs table.
type Queue struct {
	db     *sql.DB
	name   string
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New returns the queue called name.
func New(db *sql.DB, name string, opts Options, logger *slog.Logger) *Queue {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		db:     db,
		name:   name,
		opts:   opts,
		logger: logger.With("queue", name),
		now:    time.Now,
	}
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

func ms(t time.Time) int64 { return t.UnixMilli() }

func fromMS(v int64) time.Time { return time.UnixMilli(v) }

func marshalPayload(v any) (string, error) {
	if v == nil {
		return "{}", nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return string(raw), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(b), nil
}

// Add enqueues a job. It returns false without error when a job with the same
// key is already waiting or active. A completed or failed job with the key is
// replaced.
func (q *Queue) Add(ctx context.Context, r Request) (bool, error) {
	if r.Key == "" {
		return false, errors.New("add job: empty key")
	}
	payload, err := marshalPayload(r.Payload)
	if err != nil {
		return false, err
	}
	attempts := r.Attempts
	if attempts < 1 {
		attempts = q.opts.Attempts
	}
	backoff := r.Backoff
	if backoff <= 0 {
		backoff = q.opts.Backoff
	}
	now := q.now()

	result, err := q.db.ExecContext(ctx, `
		INSERT INTO jobs (queue, job_key, group_id, payload, state, attempts, max_attempts, backoff_ms, run_at_ms, last_error, created_ms, updated_ms)
		VALUES (?, ?, ?, ?, 'waiting', 0, ?, ?, ?, NULL, ?, ?)
		ON CONFLICT (queue, job_key) DO UPDATE SET
			group_id = excluded.group_id,
			payload = excluded.payload,
			state = 'waiting',
			attempts = 0,
			max_attempts = excluded.max_attempts,
			backoff_ms = excluded.backoff_ms,
			run_at_ms = excluded.run_at_ms,
			last_error = NULL,
			created_ms = excluded.created_ms,
			updated_ms = excluded.updated_ms
		WHERE jobs.state IN ('completed', 'failed')`,
		q.name, r.Key, r.GroupID, payload, attempts, backoff.Milliseconds(),
		ms(now.Add(r.Delay)), ms(now), ms(now),
	)
	if err != nil {
		return false, fmt.Errorf("add job %s: %w", r.Key, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add job %s: %w", r.Key, err)
	}
	return n > 0, nil
}

const jobColumns = "id, queue, job_key, group_id, payload, state, attempts, max_attempts, backoff_ms, run_at_ms, COALESCE(last_error, ''), created_ms, updated_ms"

func scanJob(r interface{ Scan(...any) error }) (*Job, error) {
	var (
		j                        Job
		payload                  string
		backoff, runAt, cAt, uAt int64
	)
	if err := r.Scan(&j.ID, &j.Queue, &j.Key, &j.GroupID, &payload, &j.State, &j.Attempts, &j.MaxAttempts,
		&backoff, &runAt, &j.LastError, &cAt, &uAt); err != nil {
		return nil, err
	}
	j.Payload = json.RawMessage(payload)
	j.Backoff = time.Duration(backoff) * time.Millisecond
	j.RunAt = fromMS(runAt)
	j.CreatedAt = fromMS(cAt)
	j.UpdatedAt = fromMS(uAt)
	return &j, nil
}

// Get returns the job with the given key.
func (q *Queue) Get(ctx context.Context, key string) (*Job, error) {
	j, err := scanJob(q.db.QueryRowContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE queue = ? AND job_key = ?", q.name, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get job %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", key, err)
	}
	return j, nil
}

func (q *Queue) getByID(ctx context.Context, id int64) (*Job, error) {
	j, err := scanJob(q.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	return j, nil
}

// List returns jobs in the given state, most recently updated first.
// An empty state lists every job.
func (q *Queue) List(ctx context.Context, state State, limit int) ([]*Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs WHERE queue = ?"
	args := []any{q.name}
	if state != "" {
		query += " AND state = ?"
		args = append(args, state)
	}
	query += " ORDER BY updated_ms DESC, id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// Remove deletes a job that is not active.
// Returns ErrJobActive if it is being processed and ErrNotFound if absent.
func (q *Queue) Remove(ctx context.Context, key string) error {
	result, err := q.db.ExecContext(ctx,
		"DELETE FROM jobs WHERE queue = ? AND job_key = ? AND state != 'active'", q.name, key)
	if err != nil {
		return fmt.Errorf("remove job %s: %w", key, err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := q.Get(ctx, key); err != nil {
		return err
	}
	return fmt.Errorf("remove job %s: %w", key, ErrJobActive)
}

// RemoveGroup deletes every job of the group that is not active and
// returns how many were removed.
func (q *Queue) RemoveGroup(ctx context.Context, groupID int64) (int, error) {
	result, err := q.db.ExecContext(ctx,
		"DELETE FROM jobs WHERE queue = ? AND group_id = ? AND state != 'active'", q.name, groupID)
	if err != nil {
		return 0, fmt.Errorf("remove group %d: %w", groupID, err)
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// Counts returns the number of jobs per state.
func (q *Queue) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := q.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(state = 'waiting' AND run_at_ms <= ?), 0),
			COALESCE(SUM(state = 'waiting' AND run_at_ms > ?), 0),
			COALESCE(SUM(state = 'active'), 0),
			COALESCE(SUM(state = 'completed'), 0),
			COALESCE(SUM(state = 'failed'), 0)
		FROM jobs WHERE queue = ?`,
		ms(q.now()), ms(q.now()), q.name,
	).Scan(&c.Waiting, &c.Delayed, &c.Active, &c.Completed, &c.Failed)
	if err != nil {
		return Counts{}, fmt.Errorf("count jobs: %w", err)
	}
	c.Paused, err = q.Paused(ctx)
	if err != nil {
		return Counts{}, err
	}
	return c, nil
}

// ResetStalled returns jobs left active by a stopped process to waiting.
// Call it before starting workers.
func (q *Queue) ResetStalled(ctx context.Context) (int, error) {
	now := ms(q.now())
	result, err := q.db.ExecContext(ctx,
		"UPDATE jobs SET state = 'waiting', run_at_ms = ?, updated_ms = ? WHERE queue = ? AND state = 'active'",
		now, now, q.name)
	if err != nil {
		return 0, fmt.Errorf("reset stalled: %w", err)
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// Clean deletes completed and failed jobs last updated before olderThan ago.
func (q *Queue) Clean(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := ms(q.now().Add(-olderThan))
	result, err := q.db.ExecContext(ctx,
		"DELETE FROM jobs WHERE queue = ? AND state IN ('completed', 'failed') AND updated_ms < ?",
		q.name, cutoff)
	if err != nil {
		return 0, fmt.Errorf("clean jobs: %w", err)
	}
	n, err := result.RowsAffected()
	return int(n), err
}
