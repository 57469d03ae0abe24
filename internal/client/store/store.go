// Package store provides the client's durable local database: five
// independent collections (story cache, pending-operation queue, credential
// cache, settings, binary blobs) over a single SQLite file with embedded
// goose migrations.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rizkyab/dicerita/internal/client/metrics"
	"github.com/rizkyab/dicerita/internal/client/migrations"
	"github.com/rizkyab/dicerita/internal/client/models"
	"github.com/rizkyab/dicerita/internal/client/repositories/binaries"
	"github.com/rizkyab/dicerita/internal/client/repositories/credentials"
	"github.com/rizkyab/dicerita/internal/client/repositories/queue"
	"github.com/rizkyab/dicerita/internal/client/repositories/settings"
	"github.com/rizkyab/dicerita/internal/client/repositories/stories"
	"github.com/rizkyab/dicerita/internal/common"
	"github.com/rizkyab/dicerita/internal/dbx"
	"github.com/rizkyab/dicerita/internal/logging"

	_ "modernc.org/sqlite"
)

// Default eviction thresholds.
const (
	DefaultStoryMaxAge  = 7 * 24 * time.Hour
	DefaultBinaryMaxAge = 30 * 24 * time.Hour
)

// Stats reports per-collection row counts plus total binary bytes.
type Stats struct {
	Stories     int64
	Queue       int64
	Credentials int64
	Settings    int64
	Binaries    int64
	BinaryBytes int64
}

// Store owns the local database. Construct with New, then call Init before
// use; Init is idempotent and safe to call from multiple goroutines (they
// share one open/migrate pass).
type Store struct {
	dsn string
	log logging.Logger

	initOnce sync.Once
	initErr  error

	db          *sql.DB
	stories     stories.Repository
	queue       queue.Repository
	credentials credentials.Repository
	settings    settings.Repository
	binaries    binaries.Repository
}

// New returns an uninitialized Store bound to the given SQLite DSN.
func New(dsn string, log logging.Logger) *Store {
	return &Store{dsn: dsn, log: log.With("component", "store")}
}

// Init opens the database and applies pending migrations. Concurrent and
// repeated calls share the result of the first invocation.
func (s *Store) Init(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.open(ctx)
	})
	return s.initErr
}

func (s *Store) open(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return &StorageError{Collection: "database", Op: "open", Err: err}
	}
	// A single connection keeps in-memory databases coherent and avoids
	// SQLITE_BUSY on concurrent writers.
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return &StorageError{Collection: "database", Op: "set dialect", Err: err}
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		_ = db.Close()
		return &StorageError{Collection: "database", Op: "migrate", Err: err}
	}

	s.db = db
	s.stories = stories.NewSQLiteRepository(db)
	s.queue = queue.NewSQLiteRepository(db)
	s.credentials = credentials.NewSQLiteRepository(db)
	s.settings = settings.NewSQLiteRepository(db)
	s.binaries = binaries.NewSQLiteRepository(db)

	s.log.Info(ctx, "local database ready", "dsn", s.dsn)
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func fail(collection, op string, err error) error {
	// Not-found is an expected miss, not a storage failure.
	if !errors.Is(err, common.ErrorNotFound) {
		metrics.StorageError(collection)
	}
	return &StorageError{Collection: collection, Op: op, Err: err}
}

// --- story cache -----------------------------------------------------------

func (s *Store) PutStory(ctx context.Context, story *models.Story) error {
	if err := s.stories.Upsert(ctx, story); err != nil {
		return fail("stories", "put", err)
	}
	return nil
}

func (s *Store) PutStories(ctx context.Context, items []models.Story) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return stories.NewSQLiteRepository(tx).UpsertAll(ctx, items)
	})
	if err != nil {
		return fail("stories", "put bulk", err)
	}
	return nil
}

func (s *Store) GetStories(ctx context.Context, limit, offset int) ([]models.Story, error) {
	items, err := s.stories.Page(ctx, limit, offset)
	if err != nil {
		return nil, fail("stories", "page", err)
	}
	return items, nil
}

func (s *Store) GetStory(ctx context.Context, id string) (*models.Story, error) {
	item, err := s.stories.GetByID(ctx, id)
	if err != nil {
		return nil, fail("stories", "get", err)
	}
	return item, nil
}

func (s *Store) DeleteStory(ctx context.Context, id string) error {
	if err := s.stories.DeleteByID(ctx, id); err != nil {
		return fail("stories", "delete", err)
	}
	return nil
}

func (s *Store) EvictStoriesOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	n, err := s.stories.EvictOlderThan(ctx, maxAge)
	if err != nil {
		return 0, fail("stories", "evict", err)
	}
	return n, nil
}

// --- pending-operation queue ----------------------------------------------

func (s *Store) EnqueueOperation(ctx context.Context, op *models.PendingOperation) (int64, error) {
	id, err := s.queue.Enqueue(ctx, op)
	if err != nil {
		return 0, fail("queue", "enqueue", err)
	}
	return id, nil
}

func (s *Store) GetPendingOperations(ctx context.Context) ([]models.PendingOperation, error) {
	ops, err := s.queue.GetPending(ctx)
	if err != nil {
		return nil, fail("queue", "get pending", err)
	}
	return ops, nil
}

func (s *Store) GetOperation(ctx context.Context, id int64) (*models.PendingOperation, error) {
	op, err := s.queue.GetByID(ctx, id)
	if err != nil {
		return nil, fail("queue", "get", err)
	}
	return op, nil
}

func (s *Store) MarkOperationStatus(ctx context.Context, id int64, status models.OperationStatus, errMsg string) error {
	if err := s.queue.MarkStatus(ctx, id, status, errMsg); err != nil {
		return fail("queue", "mark status", err)
	}
	return nil
}

func (s *Store) PurgeCompletedOperations(ctx context.Context) (int64, error) {
	n, err := s.queue.PurgeCompleted(ctx)
	if err != nil {
		return 0, fail("queue", "purge", err)
	}
	return n, nil
}

func (s *Store) CountPendingOperations(ctx context.Context) (int64, error) {
	n, err := s.queue.CountPending(ctx)
	if err != nil {
		return 0, fail("queue", "count", err)
	}
	return n, nil
}

// --- credential cache ------------------------------------------------------

func (s *Store) CacheCredential(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.credentials.Put(ctx, key, value, ttl); err != nil {
		return fail("credentials", "put", err)
	}
	return nil
}

func (s *Store) GetCredential(ctx context.Context, key string) (*models.CachedCredential, error) {
	cred, err := s.credentials.Get(ctx, key)
	if err != nil {
		return nil, fail("credentials", "get", err)
	}
	return cred, nil
}

func (s *Store) DeleteCredential(ctx context.Context, key string) error {
	if err := s.credentials.Delete(ctx, key); err != nil {
		return fail("credentials", "delete", err)
	}
	return nil
}

func (s *Store) DeleteExpiredCredentials(ctx context.Context) (int64, error) {
	n, err := s.credentials.DeleteExpired(ctx)
	if err != nil {
		return 0, fail("credentials", "delete expired", err)
	}
	return n, nil
}

// --- binary blobs ----------------------------------------------------------

func (s *Store) PutBinary(ctx context.Context, entry *models.BinaryEntry) error {
	if err := s.binaries.Put(ctx, entry); err != nil {
		return fail("binaries", "put", err)
	}
	return nil
}

func (s *Store) GetBinary(ctx context.Context, uri string) (*models.BinaryEntry, error) {
	entry, err := s.binaries.Get(ctx, uri)
	if err != nil {
		return nil, fail("binaries", "get", err)
	}
	return entry, nil
}

func (s *Store) HasBinary(ctx context.Context, uri string) (bool, error) {
	ok, err := s.binaries.Has(ctx, uri)
	if err != nil {
		return false, fail("binaries", "has", err)
	}
	return ok, nil
}

func (s *Store) GetBinariesForOwner(ctx context.Context, ownerID string) ([]models.BinaryEntry, error) {
	items, err := s.binaries.ForOwner(ctx, ownerID)
	if err != nil {
		return nil, fail("binaries", "for owner", err)
	}
	return items, nil
}

func (s *Store) EvictBinariesOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	n, err := s.binaries.EvictOlderThan(ctx, maxAge)
	if err != nil {
		return 0, fail("binaries", "evict", err)
	}
	return n, nil
}

func (s *Store) TotalBinaryBytes(ctx context.Context) (int64, error) {
	n, err := s.binaries.TotalBytes(ctx)
	if err != nil {
		return 0, fail("binaries", "total bytes", err)
	}
	return n, nil
}

func (s *Store) ClearAllBinaries(ctx context.Context) error {
	if err := s.binaries.Clear(ctx); err != nil {
		return fail("binaries", "clear", err)
	}
	return nil
}

// --- settings --------------------------------------------------------------

func (s *Store) GetSetting(ctx context.Context, key, def string) (string, error) {
	v, err := s.settings.Get(ctx, key, def)
	if err != nil {
		return def, fail("settings", "get", err)
	}
	return v, nil
}

func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	if err := s.settings.Put(ctx, key, value); err != nil {
		return fail("settings", "put", err)
	}
	return nil
}

// --- maintenance -----------------------------------------------------------

// Stats returns per-collection counts plus total binary bytes.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	var err error
	if st.Stories, err = s.stories.Count(ctx); err != nil {
		return nil, fail("stories", "count", err)
	}
	if st.Queue, err = s.queue.Count(ctx); err != nil {
		return nil, fail("queue", "count", err)
	}
	if st.Credentials, err = s.credentials.Count(ctx); err != nil {
		return nil, fail("credentials", "count", err)
	}
	if st.Settings, err = s.settings.Count(ctx); err != nil {
		return nil, fail("settings", "count", err)
	}
	if st.Binaries, err = s.binaries.Count(ctx); err != nil {
		return nil, fail("binaries", "count", err)
	}
	if st.BinaryBytes, err = s.binaries.TotalBytes(ctx); err != nil {
		return nil, fail("binaries", "total bytes", err)
	}
	return st, nil
}

// ClearAll wipes every collection in one transaction. Used for full reset.
func (s *Store) ClearAll(ctx context.Context) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, table := range []string{"stories", "queue", "credentials", "settings", "binaries"} {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return fail("database", "clear all", err)
	}
	return nil
}
