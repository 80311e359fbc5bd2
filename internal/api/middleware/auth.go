// Package middleware contains the HTTP middleware of the studio API.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/studio-api/internal/api/shared"
	"github.com/phrazzld/studio-api/internal/platform/logger"
	"github.com/phrazzld/studio-api/internal/service/auth"
)

var errMalformedHeader = errors.New("malformed authorization header")

// AuthMiddleware rejects requests without a valid bearer access token.
type AuthMiddleware struct {
	jwtService auth.JWTService
}

func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// Authenticate validates the bearer token in the Authorization header and
// adds the user ID to the request context. The request logger gains a
// user_id attribute.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r.Header.Get("Authorization"))
		if err == nil {
			var claims *auth.Claims
			if claims, err = m.jwtService.ValidateToken(r.Context(), token); err == nil {
				ctx := shared.WithUserID(r.Context(), claims.UserID)
				ctx = logger.WithLogger(ctx, logger.FromContext(ctx).With("user_id", claims.UserID))
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		if message, ok := rejection(err); ok {
			shared.RespondWithError(w, r, http.StatusUnauthorized, message)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Authentication error", err)
	})
}

// bearerToken extracts the token of a "Bearer <token>" header value.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", auth.ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.Contains(token, " ") {
		return "", errMalformedHeader
	}
	return token, nil
}

// rejection returns the client message for an authentication failure, or
// false when err is not the caller's fault.
func rejection(err error) (string, bool) {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "Authorization header required", true
	case errors.Is(err, errMalformedHeader):
		return "Invalid authorization format", true
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired", true
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token", true
	default:
		return "", false
	}
}

// GetUserID returns the user authenticated by Authenticate.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	return shared.UserIDFromContext(r.Context())
}
