package batch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLimit is returned when a non-empty batch is run with a limit below 1.
	ErrInvalidLimit = errors.New("concurrency limit must be at least 1")

	// ErrJobPanicked wraps a value recovered from a panicking job.
	ErrJobPanicked = errors.New("job panicked")
)

// JobError records which job failed a batch.
type JobError struct {
	Index int
	Err   error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %d failed: %v", e.Index, e.Err)
}

// Unwrap returns the job's own error.
func (e *JobError) Unwrap() error {
	return e.Err
}
