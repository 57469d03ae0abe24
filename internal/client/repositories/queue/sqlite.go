package queue

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

func (r *SQLiteRepository) Enqueue(ctx context.Context, op *models.PendingOperation) (int64, error) {
	limit := op.AttemptLimit
	if limit <= 0 {
		limit = models.DefaultAttemptLimit
	}
	priority := op.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO queue (kind, priority, payload, photo, enqueued_at, status, attempt_count, attempt_limit)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		string(op.Kind), string(priority), op.Payload, op.Photo,
		time.Now().UnixMilli(), string(models.StatusPending), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get operation id: %w", err)
	}
	return id, nil
}

const selectColumns = `id, kind, priority, payload, photo, enqueued_at, status, attempt_count, attempt_limit, last_error`

// GetPending returns pending operations in drain order: priority high first,
// FIFO within the same priority (id as tie-break for equal timestamps).
func (r *SQLiteRepository) GetPending(ctx context.Context) ([]models.PendingOperation, error) {
	query := `
		SELECT ` + selectColumns + ` FROM queue WHERE status = 'pending'
		ORDER BY CASE priority WHEN 'high' THEN 0 WHEN 'normal' THEN 1 ELSE 2 END,
			enqueued_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending operations: %w", err)
	}
	defer rows.Close()

	var result []models.PendingOperation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.PendingOperation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM queue WHERE id = ?`, id)
	op, err := scanOperation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operation %d: %w", id, err)
	}
	return op, nil
}

func (r *SQLiteRepository) MarkStatus(ctx context.Context, id int64, status models.OperationStatus, errMsg string) error {
	var (
		res sql.Result
		err error
	)
	if errMsg != "" {
		res, err = r.db.ExecContext(ctx, `
			UPDATE queue SET status = ?, attempt_count = attempt_count + 1, last_error = ? WHERE id = ?`,
			string(status), errMsg, id)
	} else {
		res, err = r.db.ExecContext(ctx, `UPDATE queue SET status = ? WHERE id = ?`, string(status), id)
	}
	if err != nil {
		return fmt.Errorf("failed to mark operation %d: %w", id, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) PurgeCompleted(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM queue WHERE status IN ('completed', 'cancelled')`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge completed operations: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue WHERE status = 'pending'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending operations: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count operations: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM queue`); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOperation(row rowScanner) (*models.PendingOperation, error) {
	var (
		op                     models.PendingOperation
		kind, priority, status string
		enqueuedAt             int64
	)
	err := row.Scan(&op.ID, &kind, &priority, &op.Payload, &op.Photo, &enqueuedAt,
		&status, &op.AttemptCount, &op.AttemptLimit, &op.LastError)
	if err != nil {
		return nil, err
	}
	op.Kind = models.OperationKind(kind)
	op.Priority = models.Priority(priority)
	op.Status = models.OperationStatus(status)
	op.EnqueuedAt = time.UnixMilli(enqueuedAt).UTC()
	return &op, nil
}
