package queue

import "errors"

var (
	// ErrNotFound indicates no job or repeatable has the given key.
	ErrNotFound = errors.New("job not found")

	// ErrJobActive indicates the job is being processed and cannot be removed.
	ErrJobActive = errors.New("job is active")

	// ErrObsolete marks work whose subject no longer exists. The job is
	// drained without retry.
	ErrObsolete = errors.New("job obsolete")

	// ErrPermanent marks a failure that retrying cannot fix. The job fails
	// without further attempts.
	ErrPermanent = errors.New("permanent failure")

	// ErrPauseTimeout indicates active jobs were still running when a pause
	// stopped waiting for them.
	ErrPauseTimeout = errors.New("timed out waiting for active jobs")
)
