package store

import (
	"errors"
	"fmt"
)

// Errors returned by store implementations. Entity-specific not-found errors
// wrap ErrNotFound, so errors.Is(err, ErrNotFound) matches all of them.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an insert collides with a unique key,
	// such as a second refund for the same generation.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when a write violates a column or
	// reference constraint.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a transaction cannot be started
	// or committed.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrGenerationFinished is returned when a status change targets a
	// generation that has already completed or failed.
	ErrGenerationFinished = errors.New("generation already finished")

	ErrGenerationNotFound = fmt.Errorf("%w: generation", ErrNotFound)
	ErrArtifactNotFound   = fmt.Errorf("%w: artifact", ErrNotFound)
	ErrTaskNotFound       = fmt.Errorf("%w: task", ErrNotFound)
)
