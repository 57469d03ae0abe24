package store

import "fmt"

// StorageError reports a failed operation against one of the local
// collections. Callers treat storage errors as non-fatal and degrade to
// empty results or skipped caching rather than propagating to the UI.
type StorageError struct {
	// Collection is the logical collection that failed: "stories",
	// "queue", "credentials", "settings" or "binaries".
	Collection string

	// Op names the failing operation.
	Op string

	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %s: %v", e.Collection, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
