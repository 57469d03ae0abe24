package offline

import (
	"github.com/rizkyab/dicerita/internal/client/imagecache"
	"github.com/rizkyab/dicerita/internal/client/models"
)

// Source tells the caller where a result came from.
type Source string

const (
	SourceNetwork Source = "network"
	SourceCache   Source = "cache"
	SourceOffline Source = "offline"
	SourceLocal   Source = "local"
	SourceError   Source = "error"
)

// Result is the common envelope of every facade call. The facade never
// returns a Go error to its caller; failures are flagged here instead.
type Result struct {
	Err       bool
	Message   string
	Source    Source
	IsOffline bool
}

func ok(msg string, src Source, offline bool) Result {
	return Result{Message: msg, Source: src, IsOffline: offline}
}

func failure(msg string, src Source, offline bool) Result {
	return Result{Err: true, Message: msg, Source: src, IsOffline: offline}
}

type StoriesResult struct {
	Result
	Stories    []models.Story
	Page       int
	TotalPages int
}

type StoryResult struct {
	Result
	Story *models.Story
}

// AddResult reports a story creation. ID is the remote id when the create
// went through, or a temporary local id when the write was queued.
type AddResult struct {
	Result
	ID     string
	Queued bool
}

type LoginResult struct {
	Result
	Session *models.Session
}

type OperationsResult struct {
	Result
	Operations []models.PendingOperation
}

// StatusResult is a snapshot of the subsystem for status displays.
type StatusResult struct {
	Result
	IsOnline       bool
	QueueLength    int64
	SyncInProgress bool
	Cache          imagecache.CacheStats
}
