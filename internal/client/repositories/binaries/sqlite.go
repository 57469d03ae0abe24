package binaries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rizkyab/dicerita/internal/client/models"
	"github.com/rizkyab/dicerita/internal/common"
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

func (r *SQLiteRepository) Put(ctx context.Context, e *models.BinaryEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO binaries (uri, data, mime_type, owner_id, byte_size, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET data = excluded.data,
			mime_type = excluded.mime_type,
			owner_id = excluded.owner_id,
			byte_size = excluded.byte_size,
			cached_at = excluded.cached_at`,
		e.URI, e.Data, e.MIMEType, e.OwnerID, int64(len(e.Data)), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to put binary: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, uri string) (*models.BinaryEntry, error) {
	var (
		e        models.BinaryEntry
		cachedAt int64
	)
	row := r.db.QueryRowContext(ctx, `
		SELECT uri, data, mime_type, owner_id, byte_size, cached_at FROM binaries WHERE uri = ?`, uri)
	err := row.Scan(&e.URI, &e.Data, &e.MIMEType, &e.OwnerID, &e.ByteSize, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get binary: %w", err)
	}
	e.CachedAt = time.UnixMilli(cachedAt).UTC()
	return &e, nil
}

func (r *SQLiteRepository) Has(ctx context.Context, uri string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM binaries WHERE uri = ?`, uri).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check binary: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ForOwner(ctx context.Context, ownerID string) ([]models.BinaryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT uri, data, mime_type, owner_id, byte_size, cached_at FROM binaries WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select binaries for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	var result []models.BinaryEntry
	for rows.Next() {
		var (
			e        models.BinaryEntry
			cachedAt int64
		)
		if err := rows.Scan(&e.URI, &e.Data, &e.MIMEType, &e.OwnerID, &e.ByteSize, &cachedAt); err != nil {
			return nil, err
		}
		e.CachedAt = time.UnixMilli(cachedAt).UTC()
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) EvictOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	res, err := r.db.ExecContext(ctx, `DELETE FROM binaries WHERE cached_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to evict binaries: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(byte_size), 0) FROM binaries`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum binary sizes: %w", err)
	}
	return total, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM binaries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count binaries: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM binaries`); err != nil {
		return fmt.Errorf("failed to clear binaries: %w", err)
	}
	return nil
}
