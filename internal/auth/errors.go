package auth

import "errors"

// Authentication error types
var (
	// ErrInvalidToken indicates the token is malformed, has an invalid
	// signature, or carries unusable claims.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken indicates the token was valid but has expired.
	ErrExpiredToken = errors.New("token expired")

	// ErrEmptySecret indicates the service was configured without a
	// usable signing secret.
	ErrEmptySecret = errors.New("jwt secret must be at least 32 characters")
)
