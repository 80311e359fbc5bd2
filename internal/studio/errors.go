package studio

import (
	"errors"
	"fmt"

	"github.com/phrazzld/studio-api/internal/store"
)

// Common sentinel errors for the studio service.
var (
	// ErrGenerationNotFound indicates that the generation does not exist.
	ErrGenerationNotFound = errors.New("generation not found")

	// ErrArtifactNotFound indicates that the generation has no image at the requested index.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrNotOwned indicates the generation belongs to a different user.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrGenerationNotReady is returned when artifacts are requested before
	// the generation has completed.
	ErrGenerationNotReady = errors.New("generation has not completed")

	// ErrGenerationInProgress is returned when a generation that is still
	// pending or processing is deleted.
	ErrGenerationInProgress = errors.New("generation is still in progress")

	// errAttemptTimeout marks a single remote attempt that ran past the
	// per-request timeout while the batch itself was still live.
	errAttemptTimeout = errors.New("image request timed out")
)

// ServiceError wraps errors from the studio service with context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "create_generation")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("studio service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("studio service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
// Store not-found errors are translated to the service sentinels and
// returned without wrapping.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrGenerationNotFound), errors.Is(err, store.ErrGenerationNotFound):
		return ErrGenerationNotFound
	case errors.Is(err, ErrArtifactNotFound), errors.Is(err, store.ErrArtifactNotFound):
		return ErrArtifactNotFound
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
