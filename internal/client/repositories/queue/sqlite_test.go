package queue

import (
	"context"
	"database/sql"
	"errors"
	"testing"

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
CREATE TABLE queue (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  kind          TEXT NOT NULL,
  priority      TEXT NOT NULL DEFAULT 'normal',
  payload       BLOB NOT NULL,
  photo         BLOB,
  enqueued_at   INTEGER NOT NULL,
  status        TEXT NOT NULL DEFAULT 'pending',
  attempt_count INTEGER NOT NULL DEFAULT 0,
  attempt_limit INTEGER NOT NULL DEFAULT 3,
  last_error    TEXT NOT NULL DEFAULT ''
);
`)
	require.NoError(t, err)

	return db
}

func op(kind models.OperationKind, priority models.Priority) *models.PendingOperation {
	return &models.PendingOperation{
		Kind:     kind,
		Priority: priority,
		Payload:  []byte(`{}`),
	}
}

func TestEnqueue_AssignsDefaultsAndID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	id, err := r.Enqueue(ctx, &models.PendingOperation{Kind: models.OperationCreateStory, Payload: []byte(`{}`), Photo: []byte{1, 2}})
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityNormal, got.Priority)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, 0, got.AttemptCount)
	assert.Equal(t, models.DefaultAttemptLimit, got.AttemptLimit)
	assert.Equal(t, []byte{1, 2}, got.Photo)
	assert.False(t, got.EnqueuedAt.IsZero())
}

func TestGetPending_PriorityThenFIFO(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	idNormal1, err := r.Enqueue(ctx, op(models.OperationRegister, models.PriorityNormal))
	require.NoError(t, err)
	idLow, err := r.Enqueue(ctx, op(models.OperationCreateStory, models.PriorityLow))
	require.NoError(t, err)
	idHigh, err := r.Enqueue(ctx, op(models.OperationCreateStory, models.PriorityHigh))
	require.NoError(t, err)
	idNormal2, err := r.Enqueue(ctx, op(models.OperationRegister, models.PriorityNormal))
	require.NoError(t, err)

	pending, err := r.GetPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 4)

	gotIDs := []int64{pending[0].ID, pending[1].ID, pending[2].ID, pending[3].ID}
	assert.Equal(t, []int64{idHigh, idNormal1, idNormal2, idLow}, gotIDs)
}

func TestGetPending_ExcludesNonPending(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	id1, err := r.Enqueue(ctx, op(models.OperationCreateStory, models.PriorityNormal))
	require.NoError(t, err)
	id2, err := r.Enqueue(ctx, op(models.OperationCreateStory, models.PriorityNormal))
	require.NoError(t, err)

	require.NoError(t, r.MarkStatus(ctx, id1, models.StatusCompleted, ""))

	pending, err := r.GetPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id2, pending[0].ID)

	count, err := r.CountPending(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestMarkStatus_ErrorIncrementsAttempts(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	id, err := r.Enqueue(ctx, op(models.OperationCreateStory, models.PriorityNormal))
	require.NoError(t, err)

	require.NoError(t, r.MarkStatus(ctx, id, models.StatusPending, "connection refused"))
	require.NoError(t, r.MarkStatus(ctx, id, models.StatusPending, "timeout"))

	got, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AttemptCount)
	assert.Equal(t, "timeout", got.LastError)
	assert.Equal(t, models.StatusPending, got.Status)

	// success path does not touch the attempt counter
	require.NoError(t, r.MarkStatus(ctx, id, models.StatusCompleted, ""))
	got, err = r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AttemptCount)
	assert.Equal(t, models.StatusCompleted, got.Status)
}

func TestMarkStatus_UnknownID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	err := r.MarkStatus(context.Background(), 404, models.StatusCancelled, "")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestPurgeCompleted_RemovesCompletedAndCancelled(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	idDone, err := r.Enqueue(ctx, op(models.OperationCreateStory, models.PriorityNormal))
	require.NoError(t, err)
	idCancelled, err := r.Enqueue(ctx, op(models.OperationRegister, models.PriorityNormal))
	require.NoError(t, err)
	idPending, err := r.Enqueue(ctx, op(models.OperationCreateStory, models.PriorityNormal))
	require.NoError(t, err)
	idFailed, err := r.Enqueue(ctx, op(models.OperationCreateStory, models.PriorityNormal))
	require.NoError(t, err)

	require.NoError(t, r.MarkStatus(ctx, idDone, models.StatusCompleted, ""))
	require.NoError(t, r.MarkStatus(ctx, idCancelled, models.StatusCancelled, ""))
	require.NoError(t, r.MarkStatus(ctx, idFailed, models.StatusFailed, "gave up"))

	n, err := r.PurgeCompleted(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// failed ops stay visible for inspection
	_, err = r.GetByID(ctx, idFailed)
	assert.NoError(t, err)
	_, err = r.GetByID(ctx, idPending)
	assert.NoError(t, err)
	_, err = r.GetByID(ctx, idDone)
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	total, err := r.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}
