// Package common defines shared constants and sentinel errors used across
// client layers of DiCerita. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors resolved at the facade boundary.
	ErrorValidation = errors.New("validation error")

	// Queue-specific errors.
	ErrorUnknownOperation = errors.New("unknown operation kind")
)

// SessionCacheKey is the credential-cache key under which the current
// user's session is stored.
const SessionCacheKey = "currentUser"
