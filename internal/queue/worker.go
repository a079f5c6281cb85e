package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Handler processes one job. Returning an error wrapping ErrObsolete drains
// the job; ErrPermanent fails it at once; any other error is retried.
type Handler func(ctx context.Context, job *Job) error

// WorkerConfig sizes a worker pool.
type WorkerConfig struct {
	Concurrency  int
	PollInterval time.Duration
	// Limiter caps job starts across the pool. Nil means unlimited.
	Limiter *rate.Limiter
}

// NewLimiter allows n job starts per window, with bursts up to n.
func NewLimiter(n int, window time.Duration) *rate.Limiter {
	if n <= 0 || window <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(window/time.Duration(n)), n)
}

// Worker runs a handler over a queue with bounded concurrency.
type Worker struct {
	queue   *Queue
	handler Handler
	cfg     WorkerConfig
	logger  *slog.Logger
}

// NewWorker creates a worker pool for q.
func NewWorker(q *Queue, handler Handler, cfg WorkerConfig, logger *slog.Logger) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		queue:   q,
		handler: handler,
		cfg:     cfg,
		logger:  logger.With("queue", q.name),
	}
}

// Name returns the worker name.
func (w *Worker) Name() string {
	return "worker:" + w.queue.name
}

// Start runs the pool until ctx is canceled. Jobs in flight at cancellation
// see a canceled context and are retried on the next start.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker started", "concurrency", w.cfg.Concurrency)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w.promoteLoop(ctx)
		return nil
	})
	for i := 0; i < w.cfg.Concurrency; i++ {
		g.Go(func() error {
			w.loop(ctx)
			return nil
		})
	}
	err := g.Wait()
	w.logger.Info("worker stopped")
	return err
}

func (w *Worker) promoteLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if n, err := w.queue.PromoteDue(ctx); err != nil {
			if ctx.Err() == nil {
				w.logger.Error("promote repeatables failed", "error", err)
			}
		} else if n > 0 {
			w.logger.Debug("promoted repeatables", "count", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		processed, err := w.ProcessNext(ctx)
		if err != nil && ctx.Err() == nil {
			w.logger.Error("claim failed", "error", err)
		}
		if processed {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// ProcessNext claims and handles one due job. It reports false when no job
// was available or the queue is paused. A rate limit token is only taken
// once a job has been claimed.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.queue.claim(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	log := w.logger.With("job", job.Key, "attempt", job.Attempts)
	if w.cfg.Limiter != nil {
		if err := w.cfg.Limiter.Wait(ctx); err != nil {
			w.interrupted(log, job)
			return false, nil
		}
	}

	start := time.Now()
	herr := w.run(ctx, job)
	if herr != nil && ctx.Err() != nil {
		w.interrupted(log, job)
		return true, nil
	}
	w.settle(log, job, herr, time.Since(start))
	return true, nil
}

func (w *Worker) run(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: handler panic: %v", ErrPermanent, r)
		}
	}()
	return w.handler(ctx, job)
}

// settle records the outcome. It uses a fresh context so that results of
// jobs interrupted by shutdown are still written.
func (w *Worker) settle(log *slog.Logger, job *Job, herr error, took time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch {
	case herr == nil:
		if err := w.queue.complete(ctx, job, ""); err != nil {
			log.Error("mark completed failed", "error", err)
			return
		}
		log.Debug("job completed", "duration_ms", took.Milliseconds())

	case errors.Is(herr, ErrObsolete):
		if err := w.queue.complete(ctx, job, herr.Error()); err != nil {
			log.Error("drain obsolete job failed", "error", err)
			return
		}
		log.Info("job obsolete, drained", "reason", herr.Error())

	case errors.Is(herr, ErrPermanent) || job.Attempts >= job.MaxAttempts:
		if err := w.queue.fail(ctx, job, herr.Error()); err != nil {
			log.Error("mark failed failed", "error", err)
			return
		}
		log.Error("job failed", "error", herr, "attempts", job.Attempts, "max_attempts", job.MaxAttempts)

	default:
		if err := w.queue.retry(ctx, job, herr.Error()); err != nil {
			log.Error("schedule retry failed", "error", err)
			return
		}
		log.Warn("job attempt failed, will retry", "error", herr, "backoff", job.Backoff)
	}
}

// interrupted returns a job cut short by shutdown to waiting without using
// up an attempt.
func (w *Worker) interrupted(log *slog.Logger, job *Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.queue.requeue(ctx, job); err != nil {
		log.Error("requeue interrupted job failed", "error", err)
		return
	}
	log.Info("job interrupted, requeued")
}

// claim atomically moves the next due waiting job to active. It returns nil
// when there is none or the queue is paused.
func (q *Queue) claim(ctx context.Context) (*Job, error) {
	now := ms(q.now())
	var id int64
	err := q.db.QueryRowContext(ctx, `
		UPDATE jobs SET state = 'active', attempts = attempts + 1, updated_ms = ?
		WHERE id = (
			SELECT id FROM jobs
			WHERE queue = ? AND state = 'waiting' AND run_at_ms <= ?
			  AND NOT EXISTS (SELECT 1 FROM queue_state WHERE queue = ? AND paused = 1)
			ORDER BY run_at_ms, id
			LIMIT 1
		)
		RETURNING id`,
		now, q.name, now, q.name,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}
	return q.getByID(ctx, id)
}

func (q *Queue) complete(ctx context.Context, job *Job, note string) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE jobs SET state = 'completed', last_error = NULLIF(?, ''), updated_ms = ? WHERE id = ? AND state = 'active'",
		note, ms(q.now()), job.ID)
	return err
}

func (q *Queue) fail(ctx context.Context, job *Job, reason string) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE jobs SET state = 'failed', last_error = ?, updated_ms = ? WHERE id = ? AND state = 'active'",
		reason, ms(q.now()), job.ID)
	return err
}

func (q *Queue) retry(ctx context.Context, job *Job, reason string) error {
	now := q.now()
	_, err := q.db.ExecContext(ctx,
		"UPDATE jobs SET state = 'waiting', last_error = ?, run_at_ms = ?, updated_ms = ? WHERE id = ? AND state = 'active'",
		reason, ms(now.Add(job.Backoff)), ms(now), job.ID)
	return err
}

func (q *Queue) requeue(ctx context.Context, job *Job) error {
	now := ms(q.now())
	_, err := q.db.ExecContext(ctx,
		"UPDATE jobs SET state = 'waiting', attempts = MAX(attempts - 1, 0), run_at_ms = ?, updated_ms = ? WHERE id = ? AND state = 'active'",
		now, now, job.ID)
	return err
}
