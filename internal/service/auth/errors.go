package auth

import "errors"

// Token validation failures. All of them are the caller's fault and map to 401.
var (
	ErrInvalidToken     = errors.New("invalid authentication token")
	ErrExpiredToken     = errors.New("authentication token has expired")
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")
	ErrMissingToken     = errors.New("authentication token is missing")

	// ErrWrongTokenType is returned for a validly signed token that is not
	// an access token.
	ErrWrongTokenType = errors.New("wrong token type")
)
