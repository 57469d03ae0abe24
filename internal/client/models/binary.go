package models

import "time"

// BinaryEntry is a cached binary asset keyed by its source URI. Entries are
// immutable once written: they are deleted by eviction or clear, never
// updated in place.
type BinaryEntry struct {
	URI      string
	Data     []byte
	MIMEType string

	// OwnerID optionally links the asset to the story that references it,
	// enabling targeted lookups.
	OwnerID string

	ByteSize int64
	CachedAt time.Time
}
