package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/studio-api/internal/platform/logger"
)

// Job produces one result. It should return promptly once ctx is done.
type Job[T any] func(ctx context.Context) (T, error)

// ProgressFunc receives the completed share of the batch as a percentage in [0, 100].
type ProgressFunc func(percent int)

// Run executes jobs with at most limit of them in flight and returns their
// results in job order.
//
// onProgress, if non-nil, is called with 0 before any job runs and then once
// per completed job. Calls never overlap and never decrease; the last one
// reports 100 when every job succeeds.
//
// The first failing job cancels the context passed to the others, stops new
// jobs from being claimed and makes Run return a *JobError wrapping that
// job's error. No partial results are returned.
func Run[T any](ctx context.Context, jobs []Job[T], limit int, onProgress ProgressFunc) ([]T, error) {
	total := len(jobs)

	var mu sync.Mutex
	completed := 0
	report := func() {
		if onProgress != nil {
			onProgress(percent(completed, total))
		}
	}

	if total == 0 {
		report()
		return []T{}, nil
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}

	workers := min(limit, total)
	results := make([]T, total)

	log := logger.FromContext(ctx)
	log.DebugContext(ctx, "starting batch", "jobs", total, "workers", workers)

	report()

	g, gctx := errgroup.WithContext(ctx)
	var cursor atomic.Int64

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				if gctx.Err() != nil {
					return nil
				}
				i := int(cursor.Add(1) - 1)
				if i >= total {
					return nil
				}

				v, err := runJob(gctx, jobs[i])
				if err != nil {
					log.WarnContext(ctx, "batch job failed", "index", i, "error", err)
					return &JobError{Index: i, Err: err}
				}
				results[i] = v

				mu.Lock()
				completed++
				report()
				mu.Unlock()
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Workers stop claiming silently once the parent context is done.
	mu.Lock()
	done := completed
	mu.Unlock()
	if done < total {
		return nil, ctx.Err()
	}

	return results, nil
}

// runJob calls job, turning a panic into an error.
func runJob[T any](ctx context.Context, job Job[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()
	return job(ctx)
}

// percent rounds 100*done/total half up.
func percent(done, total int) int {
	if total == 0 {
		return 0
	}
	return (200*done + total) / (2 * total)
}
