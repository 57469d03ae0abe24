package credentials

import (
	"context"
	"time"

	"github.com/rizkyab/dicerita/internal/client/models"
)

// Repository describes the short-lived credential cache. Expiry is lazy:
// an expired row is deleted on read rather than by a background sweep.
type Repository interface {
	// Put stores value under key with the given time-to-live, replacing any
	// previous row.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the credential for key, or nil when the key is absent or
	// expired. Expired rows are deleted as a side effect.
	Get(ctx context.Context, key string) (*models.CachedCredential, error)

	// Delete removes the credential for key. Absent keys are not an error.
	Delete(ctx context.Context, key string) error

	// DeleteExpired removes every expired row, returning the number deleted.
	DeleteExpired(ctx context.Context) (int64, error)

	// Count returns the number of cached credentials.
	Count(ctx context.Context) (int64, error)

	// Clear removes every credential.
	Clear(ctx context.Context) error
}
