package stories

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

const upsertQuery = `
	INSERT INTO stories (id, author, description, photo_url, created_at, lat, lon, cached_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET author = excluded.author,
		description = excluded.description,
		photo_url = excluded.photo_url,
		created_at = excluded.created_at,
		lat = excluded.lat,
		lon = excluded.lon,
		cached_at = excluded.cached_at
`

// Upsert inserts or replaces a story by id, stamping cached_at = now.
func (r *SQLiteRepository) Upsert(ctx context.Context, s *models.Story) error {
	_, err := r.db.ExecContext(ctx, upsertQuery,
		s.ID, s.Author, s.Description, s.PhotoURL, s.CreatedAt.UTC().UnixMilli(),
		s.Lat, s.Lon, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert story: %w", err)
	}
	return nil
}

// UpsertAll bulk-upserts stories with a single cached_at stamp.
func (r *SQLiteRepository) UpsertAll(ctx context.Context, items []models.Story) error {
	cachedAt := time.Now().UnixMilli()
	for _, s := range items {
		_, err := r.db.ExecContext(ctx, upsertQuery,
			s.ID, s.Author, s.Description, s.PhotoURL, s.CreatedAt.UTC().UnixMilli(),
			s.Lat, s.Lon, cachedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert story %s: %w", s.ID, err)
		}
	}
	return nil
}

// Page returns a reverse-chronological page: created_at DESC with id DESC as
// a deterministic tie-break.
func (r *SQLiteRepository) Page(ctx context.Context, limit, offset int) ([]models.Story, error) {
	query := `
		SELECT id, author, description, photo_url, created_at, lat, lon, cached_at
		FROM stories ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select stories: %w", err)
	}
	defer rows.Close()

	var result []models.Story
	for rows.Next() {
		item, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID returns a single story or common.ErrorNotFound.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Story, error) {
	query := `
		SELECT id, author, description, photo_url, created_at, lat, lon, cached_at
		FROM stories WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	item, err := scanStory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get story %s: %w", id, err)
	}
	return item, nil
}

// DeleteByID removes a story from the cache. Deleting an absent id is not
// an error.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM stories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete story %s: %w", id, err)
	}
	return nil
}

// EvictOlderThan deletes stories cached before now-maxAge.
func (r *SQLiteRepository) EvictOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	res, err := r.db.ExecContext(ctx, `DELETE FROM stories WHERE cached_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to evict stories: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count stories: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM stories`); err != nil {
		return fmt.Errorf("failed to clear stories: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStory(row rowScanner) (*models.Story, error) {
	var (
		item                models.Story
		createdAt, cachedAt int64
		lat, lon            sql.NullFloat64
	)
	err := row.Scan(&item.ID, &item.Author, &item.Description, &item.PhotoURL,
		&createdAt, &lat, &lon, &cachedAt)
	if err != nil {
		return nil, err
	}
	item.CreatedAt = time.UnixMilli(createdAt).UTC()
	item.CachedAt = time.UnixMilli(cachedAt).UTC()
	if lat.Valid {
		v := lat.Float64
		item.Lat = &v
	}
	if lon.Valid {
		v := lon.Float64
		item.Lon = &v
	}
	item.Cached = true
	return &item, nil
}
