package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizkyab/dicerita/internal/client/models"
	"github.com/rizkyab/dicerita/internal/common"
	"github.com/rizkyab/dicerita/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s := New(":memory:", testLogger())
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInit_ConcurrentCallsShareOnePass(t *testing.T) {
	s := New(":memory:", testLogger())
	t.Cleanup(func() { _ = s.Close() })

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Init(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	// migrations applied exactly once, schema usable
	require.NoError(t, s.PutSetting(context.Background(), "k", "v"))
}

func TestPutStories_TransactionalBatch(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	batch := []models.Story{
		{ID: "a", Author: "Dina", Description: "x", CreatedAt: time.Now()},
		{ID: "b", Author: "Budi", Description: "y", CreatedAt: time.Now()},
	}
	require.NoError(t, s.PutStories(ctx, batch))

	got, err := s.GetStories(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStorageError_NamesCollection(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	err := s.MarkOperationStatus(ctx, 404, models.StatusCancelled, "")
	require.Error(t, err)

	var serr *StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "queue", serr.Collection)
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestGetStory_WrapsNotFound(t *testing.T) {
	s := newStore(t)

	_, err := s.GetStory(context.Background(), "missing")
	require.Error(t, err)

	var serr *StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "stories", serr.Collection)
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestStats_CountsEveryCollection(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutStory(ctx, &models.Story{ID: "a", Author: "Dina", Description: "x", CreatedAt: time.Now()}))
	_, err := s.EnqueueOperation(ctx, &models.PendingOperation{Kind: models.OperationRegister, Payload: []byte(`{}`)})
	require.NoError(t, err)
	require.NoError(t, s.CacheCredential(ctx, "currentUser", []byte("v"), time.Hour))
	require.NoError(t, s.PutSetting(ctx, "theme", "dark"))
	require.NoError(t, s.PutBinary(ctx, &models.BinaryEntry{URI: "https://cdn/a.jpg", Data: make([]byte, 10), MIMEType: "image/jpeg"}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Stories)
	assert.EqualValues(t, 1, stats.Queue)
	assert.EqualValues(t, 1, stats.Credentials)
	assert.EqualValues(t, 1, stats.Settings)
	assert.EqualValues(t, 1, stats.Binaries)
	assert.EqualValues(t, 10, stats.BinaryBytes)
}

func TestClearAll_WipesEveryCollection(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutStory(ctx, &models.Story{ID: "a", Author: "Dina", Description: "x", CreatedAt: time.Now()}))
	_, err := s.EnqueueOperation(ctx, &models.PendingOperation{Kind: models.OperationRegister, Payload: []byte(`{}`)})
	require.NoError(t, err)
	require.NoError(t, s.CacheCredential(ctx, "currentUser", []byte("v"), time.Hour))
	require.NoError(t, s.PutSetting(ctx, "theme", "dark"))
	require.NoError(t, s.PutBinary(ctx, &models.BinaryEntry{URI: "https://cdn/a.jpg", Data: []byte{1}, MIMEType: "image/jpeg"}))

	require.NoError(t, s.ClearAll(ctx))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Stories)
	assert.Zero(t, stats.Queue)
	assert.Zero(t, stats.Credentials)
	assert.Zero(t, stats.Settings)
	assert.Zero(t, stats.Binaries)

	// store stays usable after the wipe
	require.NoError(t, s.PutSetting(ctx, "theme", "light"))
}

func TestGetCredential_ExpiryIsLazy(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.CacheCredential(ctx, "currentUser", []byte("v"), -time.Minute))

	got, err := s.GetCredential(ctx, "currentUser")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetSetting_Default(t *testing.T) {
	s := newStore(t)

	got, err := s.GetSetting(context.Background(), "absent", "def")
	require.NoError(t, err)
	assert.Equal(t, "def", got)
}
