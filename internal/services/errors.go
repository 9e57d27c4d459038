package services

import "errors"

var (
	// ErrUnauthorized covers missing, malformed, or rejected credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrQuotaExhausted means the user has no generations left in the
	// current window.
	ErrQuotaExhausted = errors.New("quota exhausted")
	// ErrGeneration means the provider reply could not be turned into a
	// valid artifact and no fallback exists for the request kind.
	ErrGeneration = errors.New("generation failed")
)
