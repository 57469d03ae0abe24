package models

import "time"

// OperationKind identifies the remote call a queued operation replays.
type OperationKind string

const (
	OperationCreateStory OperationKind = "create-story"
	OperationRegister    OperationKind = "register"
)

// Priority orders queued operations during a drain cycle.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// OperationStatus is the state of a queued operation.
//
// Transitions: pending -> completed | failed | cancelled. A pending item is
// retried until its attempt limit is exhausted, then marked failed
// (terminal). Completed items are garbage-collected after a sync cycle.
type OperationStatus string

const (
	StatusPending   OperationStatus = "pending"
	StatusCompleted OperationStatus = "completed"
	StatusFailed    OperationStatus = "failed"
	StatusCancelled OperationStatus = "cancelled"
)

// DefaultAttemptLimit is the number of drain attempts before an operation
// is terminally failed.
const DefaultAttemptLimit = 3

// PendingOperation is a queued write awaiting network availability.
type PendingOperation struct {
	// ID is an auto-assigned monotonic local sequence number.
	ID int64

	Kind     OperationKind
	Priority Priority

	// Payload holds operation-specific JSON (see CreateStoryPayload,
	// RegisterPayload). Binary photo data travels separately in Photo to
	// keep the JSON small.
	Payload []byte
	Photo   []byte

	EnqueuedAt time.Time
	Status     OperationStatus

	AttemptCount int
	AttemptLimit int
	LastError    string
}

// CreateStoryPayload is the JSON payload of a create-story operation.
type CreateStoryPayload struct {
	Description string   `json:"description"`
	PhotoName   string   `json:"photoName"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	TempID      string   `json:"tempId"`
}

// RegisterPayload is the JSON payload of a register operation.
type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
