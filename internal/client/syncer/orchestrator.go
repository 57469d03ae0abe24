// Package syncer coordinates connectivity state, the draining of queued
// offline operations and the periodic refresh of the local story cache.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/rizkyab/dicerita/internal/client/api"
	"github.com/rizkyab/dicerita/internal/client/metrics"
	"github.com/rizkyab/dicerita/internal/client/models"
	"github.com/rizkyab/dicerita/internal/client/store"
	"github.com/rizkyab/dicerita/internal/common"
	"github.com/rizkyab/dicerita/internal/logging"
)

const (
	DefaultSettleDelay     = 1 * time.Second
	DefaultRefreshInterval = 5 * time.Minute
	DefaultRefreshPageSize = 20
)

// LastSyncSetting is the settings key recording when a drain last pushed
// at least one operation, as an RFC3339 timestamp.
const LastSyncSetting = "last_sync_at"

// Notifier receives a summary after every drain cycle that processed at
// least one operation. Implementations must not block.
type Notifier interface {
	SyncFinished(synced, failed int)
}

// Options tune the orchestrator. Zero values fall back to defaults.
type Options struct {
	SettleDelay     time.Duration
	RefreshInterval time.Duration
	RefreshPageSize int
}

// Orchestrator owns the online/offline flag and is the only component
// allowed to drain the pending-operation queue.
type Orchestrator struct {
	store    *store.Store
	client   api.Client
	log      logging.Logger
	notifier Notifier
	opts     Options

	online   atomic.Bool
	draining atomic.Bool
	drainMu  sync.Mutex

	settleMu    sync.Mutex
	settleTimer *time.Timer
}

func New(st *store.Store, client api.Client, notifier Notifier, log logging.Logger, opts Options) *Orchestrator {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.RefreshPageSize <= 0 {
		opts.RefreshPageSize = DefaultRefreshPageSize
	}
	return &Orchestrator{
		store:    st,
		client:   client,
		log:      log.With("component", "syncer"),
		notifier: notifier,
		opts:     opts,
	}
}

// Online reports the current connectivity flag.
func (o *Orchestrator) Online() bool {
	return o.online.Load()
}

// SyncInProgress reports whether a drain cycle is currently running.
func (o *Orchestrator) SyncInProgress() bool {
	return o.draining.Load()
}

// SetOnline flips the connectivity flag. A transition to online schedules a
// drain after a short settle delay so a flapping connection does not fire a
// sync storm. A transition to offline cancels any pending settle timer.
func (o *Orchestrator) SetOnline(ctx context.Context, online bool) {
	was := o.online.Swap(online)
	if online == was {
		return
	}
	if online {
		o.log.Info(ctx, "connection restored, scheduling drain", "settle", o.opts.SettleDelay)
		o.scheduleDrain(ctx)
	} else {
		o.log.Info(ctx, "connection lost")
		o.cancelSettle()
	}
}

func (o *Orchestrator) scheduleDrain(ctx context.Context) {
	o.settleMu.Lock()
	defer o.settleMu.Unlock()
	if o.settleTimer != nil {
		o.settleTimer.Stop()
	}
	o.settleTimer = time.AfterFunc(o.opts.SettleDelay, func() {
		if !o.online.Load() {
			return
		}
		if err := o.Drain(ctx); err != nil {
			o.log.Error(ctx, "drain after reconnect failed", "error", err)
		}
	})
}

func (o *Orchestrator) cancelSettle() {
	o.settleMu.Lock()
	defer o.settleMu.Unlock()
	if o.settleTimer != nil {
		o.settleTimer.Stop()
		o.settleTimer = nil
	}
}

// Drain pushes every pending operation to the remote API in queue order.
// A concurrent call while a cycle is running is a no-op. Network failures
// are accounted per operation; storage failures abort the cycle.
func (o *Orchestrator) Drain(ctx context.Context) error {
	if !o.drainMu.TryLock() {
		return nil
	}
	defer o.drainMu.Unlock()

	o.draining.Store(true)
	defer o.draining.Store(false)

	metrics.DrainCycle()

	ops, err := o.store.GetPendingOperations(ctx)
	if err != nil {
		return fmt.Errorf("loading pending operations: %w", err)
	}
	if len(ops) == 0 {
		return nil
	}

	o.log.Info(ctx, "draining queue", "pending", len(ops))

	var synced, failed int
	for i := range ops {
		op := &ops[i]

		if err := o.dispatch(ctx, op); err != nil {
			failed++
			metrics.OperationFailed()
			status := models.StatusPending
			if op.AttemptCount+1 >= op.AttemptLimit || !retriable(err) {
				status = models.StatusFailed
			}
			if errors.Is(err, api.ErrUnauthorized) {
				o.log.Warn(ctx, "operation rejected as unauthorized, login again to resubmit", "id", op.ID, "kind", op.Kind)
			}
			o.log.Warn(ctx, "operation failed", "id", op.ID, "kind", op.Kind, "status", status, "error", err)
			if merr := o.store.MarkOperationStatus(ctx, op.ID, status, err.Error()); merr != nil {
				return fmt.Errorf("recording failure for operation %d: %w", op.ID, merr)
			}
			continue
		}

		synced++
		metrics.OperationSynced()
		if merr := o.store.MarkOperationStatus(ctx, op.ID, models.StatusCompleted, ""); merr != nil {
			return fmt.Errorf("completing operation %d: %w", op.ID, merr)
		}
	}

	if _, err := o.store.PurgeCompletedOperations(ctx); err != nil {
		return fmt.Errorf("purging completed operations: %w", err)
	}

	if synced > 0 {
		if serr := o.store.PutSetting(ctx, LastSyncSetting, time.Now().UTC().Format(time.RFC3339)); serr != nil {
			o.log.Warn(ctx, "recording sync time failed", "error", serr)
		}
	}

	o.log.Info(ctx, "drain finished", "synced", synced, "failed", failed)
	if o.notifier != nil {
		o.notifier.SyncFinished(synced, failed)
	}
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, op *models.PendingOperation) error {
	switch op.Kind {
	case models.OperationCreateStory:
		var p models.CreateStoryPayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return fmt.Errorf("decoding payload: %w", err)
		}
		return o.client.CreateStory(ctx, p.Description, op.Photo, p.PhotoName, p.Lat, p.Lon)
	case models.OperationRegister:
		var p models.RegisterPayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return fmt.Errorf("decoding payload: %w", err)
		}
		return o.client.Register(ctx, p.Name, p.Email, p.Password)
	default:
		return fmt.Errorf("%w: %s", common.ErrorUnknownOperation, op.Kind)
	}
}

// retriable reports whether a dispatch error is worth another attempt.
// Malformed payloads and unknown kinds will never succeed, and a rejected
// session will not recover without a fresh login.
func retriable(err error) bool {
	if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, api.ErrNoToken) {
		return false
	}
	var netErr *api.NetworkError
	return errors.As(err, &netErr)
}

// Run executes the periodic cache refresh until ctx is cancelled. The first
// page of stories is re-fetched on every tick while the client is online and
// no drain cycle is running.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.opts.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !o.online.Load() || o.draining.Load() {
				continue
			}
			if err := o.RefreshCache(ctx); err != nil {
				o.log.Warn(ctx, "periodic refresh failed", "error", err)
			}
		}
	}
}

// RefreshCache fetches the first page from the remote API and upserts it
// into the local cache, retrying transient network errors with a fibonacci
// backoff.
func (o *Orchestrator) RefreshCache(ctx context.Context) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		page, err := o.client.ListStories(ctx, 1, o.opts.RefreshPageSize)
		if err != nil {
			var netErr *api.NetworkError
			if errors.As(err, &netErr) {
				return retry.RetryableError(err)
			}
			return err
		}
		if err := o.store.PutStories(ctx, page.Stories); err != nil {
			return err
		}
		o.log.Debug(ctx, "cache refreshed", "stories", len(page.Stories))
		return nil
	})
}
