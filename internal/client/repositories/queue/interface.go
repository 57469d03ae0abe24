package queue

import (
	"context"

	"github.com/rizkyab/dicerita/internal/client/models"
)

// Repository describes the pending-operation queue collection.
type Repository interface {
	// Enqueue appends an operation with status=pending and attempt_count=0,
	// returning the assigned sequence number.
	Enqueue(ctx context.Context, op *models.PendingOperation) (int64, error)

	// GetPending returns all status=pending operations ordered by priority
	// (high, normal, low) then by EnqueuedAt ascending within a priority.
	GetPending(ctx context.Context) ([]models.PendingOperation, error)

	// GetByID returns one operation or common.ErrorNotFound.
	GetByID(ctx context.Context, id int64) (*models.PendingOperation, error)

	// MarkStatus updates an operation's status. A non-empty errMsg also
	// increments attempt_count and records the error.
	MarkStatus(ctx context.Context, id int64, status models.OperationStatus, errMsg string) error

	// PurgeCompleted deletes completed and cancelled operations, returning
	// the number removed.
	PurgeCompleted(ctx context.Context) (int64, error)

	// CountPending returns the number of status=pending operations.
	CountPending(ctx context.Context) (int64, error)

	// Count returns the total number of queued operations of any status.
	Count(ctx context.Context) (int64, error)

	// Clear removes every operation.
	Clear(ctx context.Context) error
}
