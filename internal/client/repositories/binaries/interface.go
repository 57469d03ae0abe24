package binaries

import (
	"context"
	"time"

	"github.com/rizkyab/dicerita/internal/client/models"
)

// Repository describes the binary blob cache collection, keyed by source
// URI. Entries are write-once: they are deleted, never updated.
type Repository interface {
	// Put stores a binary entry, replacing any entry with the same URI.
	Put(ctx context.Context, entry *models.BinaryEntry) error

	// Get returns the entry for uri or common.ErrorNotFound.
	Get(ctx context.Context, uri string) (*models.BinaryEntry, error)

	// Has reports whether an entry exists for uri.
	Has(ctx context.Context, uri string) (bool, error)

	// ForOwner returns all entries linked to the given owning story id.
	ForOwner(ctx context.Context, ownerID string) ([]models.BinaryEntry, error)

	// EvictOlderThan deletes entries cached before now-maxAge and returns
	// the number deleted.
	EvictOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)

	// TotalBytes returns the summed byte size of all entries.
	TotalBytes(ctx context.Context) (int64, error)

	// Count returns the number of entries.
	Count(ctx context.Context) (int64, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error
}
