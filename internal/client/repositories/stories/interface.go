package stories

import (
	"context"
	"time"

	"github.com/rizkyab/dicerita/internal/client/models"
)

// Repository describes the story cache collection. Implementations are
// backed by the local SQLite database.
type Repository interface {
	// Upsert inserts or replaces a story by id, stamping CachedAt with the
	// current time.
	Upsert(ctx context.Context, story *models.Story) error

	// UpsertAll bulk-upserts stories, all stamped with the same CachedAt.
	UpsertAll(ctx context.Context, stories []models.Story) error

	// Page returns up to limit stories ordered newest-first by CreatedAt,
	// skipping offset rows of that order.
	Page(ctx context.Context, limit, offset int) ([]models.Story, error)

	// GetByID returns a story or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Story, error)

	// DeleteByID removes a story from the cache.
	DeleteByID(ctx context.Context, id string) error

	// EvictOlderThan deletes stories whose CachedAt precedes now-maxAge and
	// returns the number deleted.
	EvictOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)

	// Count returns the number of cached stories.
	Count(ctx context.Context) (int64, error)

	// Clear removes every cached story.
	Clear(ctx context.Context) error
}
