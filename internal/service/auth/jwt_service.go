// Package auth issues and validates the bearer tokens that identify API callers.
// There is no login: tokens are minted for known user IDs by an operator
// command and by whichever identity service fronts the API.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService signs and verifies HS256 access tokens.
type JWTService interface {
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ValidateToken verifies signature, expiry and token type. Failures wrap
	// one of the errors in errors.go.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the validated content of an access token.
type Claims struct {
	UserID    uuid.UUID `json:"uid,omitempty"`
	TokenType string    `json:"type,omitempty"`
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
