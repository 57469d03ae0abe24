package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rizkyab/dicerita/internal/client/models"
	"github.com/rizkyab/dicerita/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (key, value, cached_at, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value,
			cached_at = excluded.cached_at,
			expires_at = excluded.expires_at`,
		key, value, now.UnixMilli(), now.Add(ttl).UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to cache credential[%s]: %w", key, err)
	}
	return nil
}

// Get returns the credential for key, deleting it first if expired. A missing
// or expired key yields (nil, nil).
func (r *SQLiteRepository) Get(ctx context.Context, key string) (*models.CachedCredential, error) {
	var (
		cred                models.CachedCredential
		cachedAt, expiresAt int64
	)
	row := r.db.QueryRowContext(ctx,
		`SELECT key, value, cached_at, expires_at FROM credentials WHERE key = ?`, key)
	err := row.Scan(&cred.Key, &cred.Value, &cachedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential[%s]: %w", key, err)
	}
	cred.CachedAt = time.UnixMilli(cachedAt).UTC()
	cred.ExpiresAt = time.UnixMilli(expiresAt).UTC()

	if cred.Expired(time.Now()) {
		if err := r.Delete(ctx, key); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &cred, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete credential[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE expires_at <= ?`, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired credentials: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count credentials: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
