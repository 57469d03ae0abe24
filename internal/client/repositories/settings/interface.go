package settings

import "context"

// Repository describes the app-settings collection: plain key/value pairs
// with no expiry, overwritten on repeat writes.
type Repository interface {
	// Get returns the value for key, or def when the key is absent.
	Get(ctx context.Context, key, def string) (string, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key, value string) error

	// Delete removes the setting for key.
	Delete(ctx context.Context, key string) error

	// Count returns the number of stored settings.
	Count(ctx context.Context) (int64, error)

	// Clear removes every setting.
	Clear(ctx context.Context) error
}
