package usecase

import "errors"

// Sentinels returned by the match services. The HTTP layer maps each one to
// a status code; anything else is an internal error.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("match not found")
	ErrConflict              = errors.New("match already registered")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
