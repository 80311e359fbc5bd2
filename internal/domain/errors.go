package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidMode is returned for an unknown studio mode.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrInvalidImageSize is returned for an image size without a price.
	ErrInvalidImageSize = errors.New("invalid image size")

	// ErrInvalidAspectRatio is returned for an unsupported aspect ratio.
	ErrInvalidAspectRatio = errors.New("invalid aspect ratio")

	// ErrInvalidGenerationStatus is returned when a generation status is not valid.
	ErrInvalidGenerationStatus = errors.New("invalid generation status")

	// ErrInsufficientCredits is returned when a user cannot pay for a generation.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)
