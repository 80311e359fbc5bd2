package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/studio-api/internal/api/shared"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/generation"
	"github.com/phrazzld/studio-api/internal/service/auth"
	"github.com/phrazzld/studio-api/internal/store"
	"github.com/phrazzld/studio-api/internal/studio"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var verrs validator.ValidationErrors
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, domain.ErrInsufficientCredits):
		return http.StatusPaymentRequired

	// Authorization errors
	case errors.Is(err, studio.ErrNotOwned):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, studio.ErrGenerationNotFound),
		errors.Is(err, studio.ErrArtifactNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, studio.ErrGenerationNotReady),
		errors.Is(err, studio.ErrGenerationInProgress):
		return http.StatusConflict

	case errors.Is(err, shared.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, generation.ErrContentBlocked):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.As(err, &verrs),
		isInputError(err):
		return http.StatusBadRequest

	// The model service refused us, not the caller
	case errors.Is(err, generation.ErrPermissionDenied),
		errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrNoImage):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// isInputError reports whether err comes from rejected client input.
func isInputError(err error) bool {
	for _, target := range []error{
		domain.ErrValidation,
		domain.ErrInvalidID,
		domain.ErrEmptyContent,
		domain.ErrInvalidMode,
		domain.ErrInvalidImageSize,
		domain.ErrInvalidAspectRatio,
		domain.ErrEmptyPrompts,
		domain.ErrInvalidCount,
		domain.ErrEmptyProductImages,
		domain.ErrInvalidCreditDelta,
		shared.ErrInvalidImage,
		store.ErrInvalidEntity,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, domain.ErrUnauthorized):
		return "User ID not found or invalid"

	case errors.Is(err, domain.ErrInsufficientCredits):
		return "Insufficient credits"

	case errors.Is(err, studio.ErrNotOwned):
		return "You do not own this generation"

	case errors.Is(err, studio.ErrGenerationNotFound):
		return "Generation not found"

	case errors.Is(err, studio.ErrArtifactNotFound):
		return "Image not found"

	case errors.Is(err, studio.ErrGenerationNotReady):
		return "Generation has not completed"

	case errors.Is(err, studio.ErrGenerationInProgress):
		return "Generation is still in progress"

	case errors.Is(err, shared.ErrBodyTooLarge):
		return "Request body too large"

	case errors.Is(err, shared.ErrInvalidImage):
		return "Images must be base64 encoded"

	case errors.Is(err, generation.ErrContentBlocked):
		return "Request blocked by content safety filters"

	case errors.Is(err, generation.ErrPermissionDenied):
		return "Image service rejected the request"

	case errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrNoImage):
		return "Image service returned an unusable response"

	case errors.As(err, &verrs):
		return SanitizeValidationError(verrs)

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	// Domain validation messages are written for users and carry no secrets
	case isInputError(err):
		return "Invalid request: " + domainMessage(err)

	default:
		return "An unexpected error occurred"
	}
}

func domainMessage(err error) string {
	return strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
}

// SanitizeValidationError turns the first validator failure into a
// user-friendly message naming the JSON field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}

	fe := verrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(fe.Tag(), fe.Param()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag, param string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "must have at least " + param
	case "max":
		return "must have at most " + param
	case "gte":
		return "must be at least " + param
	case "lte":
		return "must be at most " + param
	case "oneof":
		return "must be one of " + param
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the error response for err. fallback replaces the
// safe message for errors that map to 500.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	if status == http.StatusPaymentRequired || status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
