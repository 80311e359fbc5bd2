package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrInvalidRequest is returned when a request is missing required inputs
	ErrInvalidRequest = errors.New("invalid generation request")

	// ErrInvalidResponse is returned when the model response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from generative model")

	// ErrContentBlocked is returned when the model blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by model safety filters")

	// ErrNoImage is returned when an image request completes without image data
	ErrNoImage = errors.New("model returned no image")

	// ErrPermissionDenied is returned when the API key lacks access to the model
	ErrPermissionDenied = errors.New("permission denied by generative model service")
)
