package studio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/studio-api/internal/config"
	"github.com/phrazzld/studio-api/internal/generation"
	"github.com/phrazzld/studio-api/internal/retry"
	"github.com/phrazzld/studio-api/internal/store"
	"github.com/phrazzld/studio-api/internal/task"
)

// TaskRunner defines the interface for submitting background tasks
type TaskRunner interface {
	// Submit persists the task and adds it to the processing queue
	Submit(ctx context.Context, task task.Task) error
}

// Config controls batch execution.
type Config struct {
	// MaxConcurrency caps the number of image requests in flight per generation
	MaxConcurrency int

	// Retry is the per-image retry policy
	Retry retry.Policy

	// RequestTimeout bounds a single remote attempt; zero disables it
	RequestTimeout time.Duration

	// MaxImagesPerRequest bounds TotalImages of a generation; zero disables it
	MaxImagesPerRequest int

	// DailyBonus is the amount granted by ClaimDailyBonus; zero disables it
	DailyBonus int
}

// ConfigFromSettings converts the loaded generation settings.
func ConfigFromSettings(cfg config.GenerationConfig) Config {
	return Config{
		MaxConcurrency: cfg.MaxConcurrency,
		Retry: retry.Policy{
			MaxRetries:   cfg.MaxRetries,
			InitialDelay: time.Duration(cfg.InitialRetryDelayMS) * time.Millisecond,
			MaxDelay:     time.Duration(cfg.MaxRetryDelayMS) * time.Millisecond,
			MaxJitter:    time.Duration(cfg.MaxJitterMS) * time.Millisecond,
		},
		RequestTimeout:      time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		MaxImagesPerRequest: cfg.MaxImagesPerRequest,
		DailyBonus:          cfg.DailyBonus,
	}
}

// Dependencies are the collaborators of a Service.
type Dependencies struct {
	DB          *sql.DB
	Generations store.GenerationStore
	Artifacts   store.ArtifactStore
	Credits     store.CreditStore
	Runner      TaskRunner
	Generator   generation.Generator

	// Classify decides which generator errors are retried.
	// Defaults to retry.IsTransient.
	Classify retry.Classifier

	// RetryOptions are appended to the options the service builds its
	// retriers with. Tests use them to replace the jitter source.
	RetryOptions []retry.Option
}

// Service coordinates analyses, generations and the credit ledger.
type Service struct {
	db          *sql.DB
	generations store.GenerationStore
	artifacts   store.ArtifactStore
	credits     store.CreditStore
	runner      TaskRunner
	generator   generation.Generator

	cfg           Config
	imageRetry    *retry.Retrier
	analysisRetry *retry.Retrier
	logger        *slog.Logger
}

var _ task.GenerationExecutor = (*Service)(nil)

// NewService validates its dependencies and returns a Service.
func NewService(deps Dependencies, cfg Config, logger *slog.Logger) (*Service, error) {
	switch {
	case deps.DB == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "db cannot be nil"}
	case deps.Generations == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "generation store cannot be nil"}
	case deps.Artifacts == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "artifact store cannot be nil"}
	case deps.Credits == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "credit store cannot be nil"}
	case deps.Runner == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "task runner cannot be nil"}
	case deps.Generator == nil:
		return nil, &ServiceError{Operation: "create_service", Message: "generator cannot be nil"}
	}
	if cfg.MaxConcurrency < 1 {
		return nil, &ServiceError{
			Operation: "create_service",
			Message:   fmt.Sprintf("max concurrency must be at least 1, got %d", cfg.MaxConcurrency),
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	classify := deps.Classify
	if classify == nil {
		classify = retry.IsTransient
	}
	classifyAttempt := func(err error) bool {
		return errors.Is(err, errAttemptTimeout) || classify(err)
	}

	imageRetry, err := retry.New(cfg.Retry, append([]retry.Option{
		retry.WithClassifier(classifyAttempt),
		retry.WithOperationName("generate_image"),
	}, deps.RetryOptions...)...)
	if err != nil {
		return nil, NewServiceError("create_service", "invalid retry policy", err)
	}
	analysisRetry, err := retry.New(cfg.Retry, append([]retry.Option{
		retry.WithClassifier(classifyAttempt),
		retry.WithOperationName("analyze"),
	}, deps.RetryOptions...)...)
	if err != nil {
		return nil, NewServiceError("create_service", "invalid retry policy", err)
	}

	return &Service{
		db:            deps.DB,
		generations:   deps.Generations,
		artifacts:     deps.Artifacts,
		credits:       deps.Credits,
		runner:        deps.Runner,
		generator:     deps.Generator,
		cfg:           cfg,
		imageRetry:    imageRetry,
		analysisRetry: analysisRetry,
		logger:        logger.With("component", "studio_service"),
	}, nil
}

// withAttemptTimeout runs op under the per-attempt timeout. A timeout of the
// attempt alone is reported as errAttemptTimeout so it can be retried; a
// cancelled parent is passed through untouched.
func withAttemptTimeout[T any](
	ctx context.Context,
	timeout time.Duration,
	op func(ctx context.Context) (T, error),
) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := op(attemptCtx)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		var zero T
		return zero, fmt.Errorf("%w after %s: %v", errAttemptTimeout, timeout, err)
	}
	return v, err
}
