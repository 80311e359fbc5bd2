package gemini

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/phrazzld/studio-api/internal/generation"
	"github.com/phrazzld/studio-api/internal/retry"
)

// IsTransient reports whether an error from this package is worth retrying.
// It is meant to be passed to retry.WithClassifier.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, generation.ErrPermissionDenied) ||
		errors.Is(err, generation.ErrContentBlocked) ||
		errors.Is(err, generation.ErrNoImage) ||
		errors.Is(err, generation.ErrInvalidResponse) ||
		errors.Is(err, generation.ErrInvalidRequest) {
		return false
	}
	if apiErr, ok := asAPIError(err); ok {
		return retry.IsTransientStatus(apiErr.Code, apiErr.Status, apiErr.Message)
	}
	return retry.IsTransient(err)
}

// wrapAPIError annotates an error returned by the genai client. Permission
// failures are mapped to generation.ErrPermissionDenied; everything else keeps
// the original error in the chain for classification.
func wrapAPIError(call string, err error) error {
	if apiErr, ok := asAPIError(err); ok {
		if apiErr.Code == http.StatusForbidden || strings.EqualFold(apiErr.Status, "PERMISSION_DENIED") {
			return fmt.Errorf("%w: %s: %s", generation.ErrPermissionDenied, call, apiErr.Message)
		}
	}
	return fmt.Errorf("gemini %s failed: %w", call, err)
}

// asAPIError finds a genai.APIError in err's chain. The client has returned
// it both by value and by pointer.
func asAPIError(err error) (*genai.APIError, bool) {
	var value genai.APIError
	if errors.As(err, &value) {
		return &value, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return ptr, true
	}
	return nil, false
}
