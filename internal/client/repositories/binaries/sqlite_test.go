package binaries

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizkyab/dicerita/internal/client/models"
	"github.com/rizkyab/dicerita/internal/common"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE binaries (
  uri       TEXT PRIMARY KEY,
  data      BLOB NOT NULL,
  mime_type TEXT NOT NULL,
  owner_id  TEXT NOT NULL DEFAULT '',
  byte_size INTEGER NOT NULL,
  cached_at INTEGER NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

func entry(uri, owner string, data []byte) *models.BinaryEntry {
	return &models.BinaryEntry{
		URI:      uri,
		Data:     data,
		MIMEType: "image/jpeg",
		OwnerID:  owner,
	}
}

func TestPutGet_RoundtripWithComputedSize(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, entry("https://cdn/a.jpg", "s1", []byte{1, 2, 3})))

	got, err := r.Get(ctx, "https://cdn/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got.Data)
	assert.Equal(t, "image/jpeg", got.MIMEType)
	assert.Equal(t, "s1", got.OwnerID)
	assert.EqualValues(t, 3, got.ByteSize)
	assert.False(t, got.CachedAt.IsZero())
}

func TestGet_NotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.Get(context.Background(), "https://cdn/none.jpg")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestHas(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	ok, err := r.Has(ctx, "https://cdn/a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Put(ctx, entry("https://cdn/a.jpg", "s1", []byte{1})))

	ok, err = r.Has(ctx, "https://cdn/a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestForOwner(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, entry("https://cdn/a.jpg", "s1", []byte{1})))
	require.NoError(t, r.Put(ctx, entry("https://cdn/b.jpg", "s1", []byte{2})))
	require.NoError(t, r.Put(ctx, entry("https://cdn/c.jpg", "s2", []byte{3})))

	got, err := r.ForOwner(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestTotalBytes(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	total, err := r.TotalBytes(ctx)
	require.NoError(t, err)
	assert.Zero(t, total, "empty cache sums to zero")

	require.NoError(t, r.Put(ctx, entry("https://cdn/a.jpg", "s1", make([]byte, 100))))
	require.NoError(t, r.Put(ctx, entry("https://cdn/b.jpg", "s2", make([]byte, 50))))

	total, err = r.TotalBytes(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 150, total)
}

func TestEvictOlderThan(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, entry("https://cdn/old.jpg", "s1", []byte{1})))
	require.NoError(t, r.Put(ctx, entry("https://cdn/new.jpg", "s2", []byte{2})))

	old := time.Now().Add(-40 * 24 * time.Hour).UnixMilli()
	_, err := db.Exec(`UPDATE binaries SET cached_at = ? WHERE uri = ?`, old, "https://cdn/old.jpg")
	require.NoError(t, err)

	n, err := r.EvictOlderThan(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	ok, err := r.Has(ctx, "https://cdn/new.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClear(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, entry("https://cdn/a.jpg", "s1", []byte{1})))
	require.NoError(t, r.Clear(ctx))

	count, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
