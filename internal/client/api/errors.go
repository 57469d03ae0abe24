package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized signals a missing or rejected session; it is never
	// silently retried and must be surfaced as a login prompt.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoToken signals an authenticated call attempted without a token.
	ErrNoToken = errors.New("no authentication token available")
)

// NetworkError reports an unreachable backend or a non-2xx response. Reads
// recover from it via cache fallback; writes via enqueue-for-retry.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
