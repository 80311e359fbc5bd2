package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	goretry "github.com/sethvargo/go-retry"

	"github.com/phrazzld/studio-api/internal/platform/logger"
)

// ErrInvalidPolicy is returned by New when the policy cannot be used.
var ErrInvalidPolicy = errors.New("invalid retry policy")

// defaultMaxDelay caps a single backoff when the policy leaves MaxDelay unset.
const defaultMaxDelay = 30 * time.Second

// Policy describes how many times and how slowly a failed call is retried.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	// Zero means the operation runs exactly once.
	MaxRetries int

	// InitialDelay is the backoff before the first retry. It doubles per retry.
	InitialDelay time.Duration

	// MaxDelay caps the exponential part of the backoff.
	MaxDelay time.Duration

	// MaxJitter is the exclusive upper bound of the random delay added to each backoff.
	MaxJitter time.Duration
}

// DefaultPolicy returns the policy used for image generation calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   10,
		InitialDelay: 3 * time.Second,
		MaxDelay:     defaultMaxDelay,
		MaxJitter:    time.Second,
	}
}

// Classifier reports whether an error is worth retrying.
type Classifier func(err error) bool

// Option customizes a Retrier.
type Option func(*Retrier)

// WithClassifier replaces the default IsTransient classifier.
func WithClassifier(c Classifier) Option {
	return func(r *Retrier) {
		if c != nil {
			r.classify = c
		}
	}
}

// WithJitter replaces the random jitter source. The function receives
// MaxJitter and returns a value in [0, MaxJitter).
func WithJitter(fn func(max time.Duration) time.Duration) Option {
	return func(r *Retrier) {
		if fn != nil {
			r.jitter = fn
		}
	}
}

// WithOperationName sets the name attached to retry log records.
func WithOperationName(name string) Option {
	return func(r *Retrier) {
		r.name = name
	}
}

// Retrier runs operations under a Policy. It holds no per-call state and is
// safe for concurrent use.
type Retrier struct {
	policy   Policy
	classify Classifier
	jitter   func(max time.Duration) time.Duration
	name     string
}

// New validates policy and returns a Retrier.
func New(policy Policy, opts ...Option) (*Retrier, error) {
	if policy.MaxRetries < 0 {
		return nil, fmt.Errorf("%w: max retries must not be negative, got %d", ErrInvalidPolicy, policy.MaxRetries)
	}
	if policy.InitialDelay <= 0 {
		return nil, fmt.Errorf("%w: initial delay must be positive, got %s", ErrInvalidPolicy, policy.InitialDelay)
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = defaultMaxDelay
	}
	if policy.MaxJitter < 0 {
		policy.MaxJitter = 0
	}

	r := &Retrier{
		policy:   policy,
		classify: IsTransient,
		jitter:   randomJitter,
		name:     "remote_call",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Policy returns the effective policy after defaults were applied.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Delay returns the backoff before retry number attempt (0-indexed), excluding jitter.
func (r *Retrier) Delay(attempt int) time.Duration {
	delay := r.policy.InitialDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= r.policy.MaxDelay || delay <= 0 {
			return r.policy.MaxDelay
		}
	}
	if delay > r.policy.MaxDelay {
		return r.policy.MaxDelay
	}
	return delay
}

// Run calls op until it succeeds, fails with a non-transient error, exhausts
// the retry budget, or ctx is done. The returned error is the one produced by
// the last attempt, unwrapped, or the context error when cancelled while
// waiting.
func (r *Retrier) Run(ctx context.Context, op func(ctx context.Context) error) error {
	log := logger.FromContext(ctx)

	var (
		attempt   int
		lastErr   error
		transient bool
	)

	backoff := goretry.BackoffFunc(func() (time.Duration, bool) {
		delay := r.Delay(attempt)
		if r.policy.MaxJitter > 0 {
			delay += r.jitter(r.policy.MaxJitter)
		}
		log.WarnContext(ctx, "transient error, retrying after delay",
			"operation", r.name,
			"attempt", attempt+1,
			"max_retries", r.policy.MaxRetries,
			"transient", true,
			"delay_ms", delay.Milliseconds(),
			"error", lastErr)
		attempt++
		return delay, false
	})

	err := goretry.Do(ctx, goretry.WithMaxRetries(uint64(r.policy.MaxRetries), backoff), func(ctx context.Context) error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		transient = r.classify(err)
		if !transient {
			log.DebugContext(ctx, "non-transient error, not retrying",
				"operation", r.name,
				"attempt", attempt+1,
				"transient", false,
				"error", err)
			return err
		}
		return goretry.RetryableError(err)
	})

	if transient && attempt >= r.policy.MaxRetries && errors.Is(err, lastErr) {
		log.WarnContext(ctx, "retry budget exhausted",
			"operation", r.name,
			"attempts", attempt+1,
			"error", lastErr)
	}
	return err
}

// Do is Run for operations that produce a value.
func Do[T any](ctx context.Context, r *Retrier, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Run(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max)
}
