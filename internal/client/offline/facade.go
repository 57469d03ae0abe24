// Package offline is the policy layer between the UI and everything else:
// it decides, per call, whether to talk to the network or fall back to the
// local cache, and queues writes that cannot be delivered right away.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rizkyab/dicerita/internal/client/api"
	"github.com/rizkyab/dicerita/internal/client/imagecache"
	"github.com/rizkyab/dicerita/internal/client/models"
	"github.com/rizkyab/dicerita/internal/client/store"
	"github.com/rizkyab/dicerita/internal/client/syncer"
	"github.com/rizkyab/dicerita/internal/common"
	"github.com/rizkyab/dicerita/internal/logging"
)

// SessionTTL is how long a cached login remains usable offline.
const SessionTTL = 168 * time.Hour

const backgroundTimeout = 30 * time.Second

// Facade exposes the offline-first API surface. All methods return a result
// struct; none of them ever returns a Go error to the caller.
type Facade struct {
	store  *store.Store
	client api.Client
	images *imagecache.Manager
	sync   *syncer.Orchestrator
	log    logging.Logger
}

func New(st *store.Store, client api.Client, images *imagecache.Manager, sync *syncer.Orchestrator, log logging.Logger) *Facade {
	return &Facade{
		store:  st,
		client: client,
		images: images,
		sync:   sync,
		log:    log.With("component", "offline"),
	}
}

// ListStories returns a page of stories, preferring the network and falling
// back to the local cache. A successful remote fetch is cached and its
// images preloaded in the background.
func (f *Facade) ListStories(ctx context.Context, page, size int) StoriesResult {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}

	if f.sync.Online() {
		remote, err := f.client.ListStories(ctx, page, size)
		if err == nil {
			f.cacheInBackground(remote.Stories)
			return StoriesResult{
				Result:     ok("stories loaded", SourceNetwork, false),
				Stories:    remote.Stories,
				Page:       remote.Page,
				TotalPages: remote.TotalPages,
			}
		}
		if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, api.ErrNoToken) {
			return StoriesResult{Result: failure("session expired, please login again", SourceNetwork, false)}
		}
		f.log.Warn(ctx, "remote list failed, falling back to cache", "error", err)
	}

	cached, err := f.store.GetStories(ctx, size, (page-1)*size)
	if err != nil {
		return StoriesResult{Result: failure(fmt.Sprintf("local cache unavailable: %v", err), SourceError, true)}
	}
	msg := "stories loaded from cache"
	if len(cached) == 0 {
		msg = "no cached stories yet"
	}
	return StoriesResult{
		Result:  ok(msg, SourceCache, true),
		Stories: cached,
		Page:    page,
	}
}

// GetStory returns one story by id, network first, cache second.
func (f *Facade) GetStory(ctx context.Context, id string) StoryResult {
	if f.sync.Online() {
		remote, err := f.client.GetStory(ctx, id)
		if err == nil {
			f.cacheInBackground([]models.Story{*remote})
			return StoryResult{Result: ok("story loaded", SourceNetwork, false), Story: remote}
		}
		if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, api.ErrNoToken) {
			return StoryResult{Result: failure("session expired, please login again", SourceNetwork, false)}
		}
		f.log.Warn(ctx, "remote get failed, falling back to cache", "id", id, "error", err)
	}

	cached, err := f.store.GetStory(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return StoryResult{Result: ok("story not in cache", SourceCache, true)}
		}
		return StoryResult{Result: failure(fmt.Sprintf("local cache unavailable: %v", err), SourceError, true)}
	}
	return StoryResult{Result: ok("story loaded from cache", SourceCache, true), Story: cached}
}

// AddStory validates and creates a story. Online the create goes straight to
// the remote API; offline, or when the remote call fails, the write is queued
// with high priority and the caller gets a temporary local id back.
func (f *Facade) AddStory(ctx context.Context, description string, photo []byte, photoName string, lat, lon *float64) AddResult {
	if ve := validateStory(description, photo, lat, lon); ve != nil {
		return AddResult{Result: failure(ve.Error(), SourceLocal, !f.sync.Online())}
	}
	if photoName == "" {
		photoName = "photo.jpg"
	}

	if f.sync.Online() {
		err := f.client.CreateStory(ctx, description, photo, photoName, lat, lon)
		if err == nil {
			go func() {
				bctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
				defer cancel()
				if rerr := f.sync.RefreshCache(bctx); rerr != nil {
					f.log.Warn(bctx, "refresh after create failed", "error", rerr)
				}
			}()
			return AddResult{Result: ok("story published", SourceNetwork, false)}
		}
		if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, api.ErrNoToken) {
			return AddResult{Result: failure("session expired, please login again", SourceNetwork, false)}
		}
		f.log.Warn(ctx, "remote create failed, queueing", "error", err)
	}

	return f.queueStory(ctx, description, photo, photoName, lat, lon)
}

func (f *Facade) queueStory(ctx context.Context, description string, photo []byte, photoName string, lat, lon *float64) AddResult {
	tempID := "temp_" + uuid.NewString()

	payload, err := json.Marshal(models.CreateStoryPayload{
		Description: description,
		PhotoName:   photoName,
		Lat:         lat,
		Lon:         lon,
		TempID:      tempID,
	})
	if err != nil {
		return AddResult{Result: failure(fmt.Sprintf("encoding story: %v", err), SourceError, true)}
	}

	_, err = f.store.EnqueueOperation(ctx, &models.PendingOperation{
		Kind:     models.OperationCreateStory,
		Priority: models.PriorityHigh,
		Payload:  payload,
		Photo:    photo,
	})
	if err != nil {
		return AddResult{Result: failure(fmt.Sprintf("saving story locally: %v", err), SourceError, true)}
	}

	author := "You"
	if s, _ := f.cachedSession(ctx); s != nil {
		author = s.Name
	}
	local := &models.Story{
		ID:          tempID,
		Author:      author,
		Description: description,
		CreatedAt:   time.Now(),
		Lat:         lat,
		Lon:         lon,
	}
	if err := f.store.PutStory(ctx, local); err != nil {
		f.log.Warn(ctx, "caching local story failed", "id", tempID, "error", err)
	}

	return AddResult{
		Result: ok("story saved locally and will sync when online", SourceOffline, true),
		ID:     tempID,
		Queued: true,
	}
}

func validateStory(description string, photo []byte, lat, lon *float64) *ValidationError {
	if description == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if len(description) > models.MaxDescriptionLen {
		return &ValidationError{Field: "description", Reason: fmt.Sprintf("must be at most %d characters", models.MaxDescriptionLen)}
	}
	if len(photo) == 0 {
		return &ValidationError{Field: "photo", Reason: "must not be empty"}
	}
	if lat != nil && (*lat < -90 || *lat > 90) {
		return &ValidationError{Field: "lat", Reason: "must be between -90 and 90"}
	}
	if lon != nil && (*lon < -180 || *lon > 180) {
		return &ValidationError{Field: "lon", Reason: "must be between -180 and 180"}
	}
	if (lat == nil) != (lon == nil) {
		return &ValidationError{Field: "location", Reason: "lat and lon must be set together"}
	}
	return nil
}

// Login authenticates against the remote API and caches the session for
// offline use. Offline, a cached session with a matching email is accepted.
func (f *Facade) Login(ctx context.Context, email, password string) LoginResult {
	if email == "" || password == "" {
		return LoginResult{Result: failure("email and password are required", SourceLocal, !f.sync.Online())}
	}

	if f.sync.Online() {
		session, err := f.client.Login(ctx, email, password)
		if err == nil {
			raw, merr := json.Marshal(session)
			if merr == nil {
				if cerr := f.store.CacheCredential(ctx, common.SessionCacheKey, raw, SessionTTL); cerr != nil {
					f.log.Warn(ctx, "caching session failed", "error", cerr)
				}
			}
			return LoginResult{Result: ok("logged in", SourceNetwork, false), Session: session}
		}
		if errors.Is(err, api.ErrUnauthorized) {
			return LoginResult{Result: failure("invalid email or password", SourceNetwork, false)}
		}
		f.log.Warn(ctx, "remote login failed, trying cached session", "error", err)
	}

	session, err := f.cachedSession(ctx)
	if err != nil {
		return LoginResult{Result: failure(fmt.Sprintf("local cache unavailable: %v", err), SourceError, true)}
	}
	if session == nil || session.Email != email {
		return LoginResult{Result: failure("cannot login while offline: no cached session for this account", SourceOffline, true)}
	}

	f.client.SetToken(session.Token)
	return LoginResult{
		Result:  ok("logged in from cached session (offline)", SourceCache, true),
		Session: session,
	}
}

// Register creates an account remotely, or queues the registration when the
// network is unavailable.
func (f *Facade) Register(ctx context.Context, name, email, password string) Result {
	if name == "" || email == "" {
		return failure("name and email are required", SourceLocal, !f.sync.Online())
	}
	if len(password) < 8 {
		return failure("password must be at least 8 characters", SourceLocal, !f.sync.Online())
	}

	if f.sync.Online() {
		err := f.client.Register(ctx, name, email, password)
		if err == nil {
			return ok("account created, you can login now", SourceNetwork, false)
		}
		var netErr *api.NetworkError
		if errors.As(err, &netErr) && netErr.StatusCode >= 400 && netErr.StatusCode < 500 {
			return failure(fmt.Sprintf("registration rejected: %v", err), SourceNetwork, false)
		}
		f.log.Warn(ctx, "remote register failed, queueing", "error", err)
	}

	payload, err := json.Marshal(models.RegisterPayload{Name: name, Email: email, Password: password})
	if err != nil {
		return failure(fmt.Sprintf("encoding registration: %v", err), SourceError, true)
	}
	if _, err := f.store.EnqueueOperation(ctx, &models.PendingOperation{
		Kind:    models.OperationRegister,
		Payload: payload,
	}); err != nil {
		return failure(fmt.Sprintf("saving registration locally: %v", err), SourceError, true)
	}
	return ok("registration queued and will be sent when online", SourceOffline, true)
}

// Logout drops the cached session and forgets the bearer token.
func (f *Facade) Logout(ctx context.Context) Result {
	f.client.SetToken("")
	if err := f.store.DeleteCredential(ctx, common.SessionCacheKey); err != nil {
		return failure(fmt.Sprintf("clearing session: %v", err), SourceError, !f.sync.Online())
	}
	return ok("logged out", SourceLocal, !f.sync.Online())
}

// CurrentSession returns the cached session, or nil when nobody is logged in.
func (f *Facade) CurrentSession(ctx context.Context) (*models.Session, error) {
	return f.cachedSession(ctx)
}

func (f *Facade) cachedSession(ctx context.Context) (*models.Session, error) {
	cred, err := f.store.GetCredential(ctx, common.SessionCacheKey)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, nil
	}
	var session models.Session
	if err := json.Unmarshal(cred.Value, &session); err != nil {
		return nil, fmt.Errorf("decoding cached session: %w", err)
	}
	return &session, nil
}

// RestoreSession re-arms the bearer token from the cached session, if any.
// Called on startup so an app restart does not force a new login.
func (f *Facade) RestoreSession(ctx context.Context) bool {
	session, err := f.cachedSession(ctx)
	if err != nil || session == nil {
		return false
	}
	f.client.SetToken(session.Token)
	return true
}

// Status snapshots connectivity, queue depth and cache usage.
func (f *Facade) Status(ctx context.Context) StatusResult {
	res := StatusResult{
		IsOnline:       f.sync.Online(),
		SyncInProgress: f.sync.SyncInProgress(),
	}

	pending, err := f.store.CountPendingOperations(ctx)
	if err != nil {
		res.Result = failure(fmt.Sprintf("reading queue: %v", err), SourceError, !res.IsOnline)
		return res
	}
	res.QueueLength = pending

	stats, err := f.images.Stats(ctx)
	if err != nil {
		res.Result = failure(fmt.Sprintf("reading cache stats: %v", err), SourceError, !res.IsOnline)
		return res
	}
	res.Cache = *stats
	res.Result = ok("ok", SourceLocal, !res.IsOnline)
	return res
}

// PendingOperations lists queued writes in drain order.
func (f *Facade) PendingOperations(ctx context.Context) OperationsResult {
	ops, err := f.store.GetPendingOperations(ctx)
	if err != nil {
		return OperationsResult{Result: failure(fmt.Sprintf("reading queue: %v", err), SourceError, !f.sync.Online())}
	}
	msg := fmt.Sprintf("%d pending operation(s)", len(ops))
	return OperationsResult{Result: ok(msg, SourceLocal, !f.sync.Online()), Operations: ops}
}

// CancelOperation withdraws a queued write before it is synced.
func (f *Facade) CancelOperation(ctx context.Context, id int64) Result {
	err := f.store.MarkOperationStatus(ctx, id, models.StatusCancelled, "")
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return failure(fmt.Sprintf("operation %d not found", id), SourceLocal, !f.sync.Online())
		}
		return failure(fmt.Sprintf("cancelling operation: %v", err), SourceError, !f.sync.Online())
	}
	return ok(fmt.Sprintf("operation %d cancelled", id), SourceLocal, !f.sync.Online())
}

// EvictStale removes old cached stories and images.
func (f *Facade) EvictStale(ctx context.Context) Result {
	stories, err := f.store.EvictStoriesOlderThan(ctx, store.DefaultStoryMaxAge)
	if err != nil {
		return failure(fmt.Sprintf("evicting stories: %v", err), SourceError, !f.sync.Online())
	}
	images, err := f.images.EvictStale(ctx, store.DefaultBinaryMaxAge)
	if err != nil {
		return failure(fmt.Sprintf("evicting images: %v", err), SourceError, !f.sync.Online())
	}
	return ok(fmt.Sprintf("evicted %d stale stories and %d stale images", stories, images), SourceLocal, !f.sync.Online())
}

// ClearAllData wipes every local collection. The queue goes too, so any
// unsynced writes are lost.
func (f *Facade) ClearAllData(ctx context.Context) Result {
	if err := f.store.ClearAll(ctx); err != nil {
		return failure(fmt.Sprintf("clearing local data: %v", err), SourceError, !f.sync.Online())
	}
	f.client.SetToken("")
	return ok("all local data cleared", SourceLocal, !f.sync.Online())
}

// SubscribePush registers a web-push subscription. Online only; there is
// nothing useful to queue for a push endpoint that may expire.
func (f *Facade) SubscribePush(ctx context.Context, sub api.PushSubscription) Result {
	if !f.sync.Online() {
		return failure("push subscription requires a connection", SourceOffline, true)
	}
	if err := f.client.SubscribePush(ctx, sub); err != nil {
		return failure(fmt.Sprintf("subscribing: %v", err), SourceNetwork, false)
	}
	return ok("push notifications enabled", SourceNetwork, false)
}

// UnsubscribePush removes a web-push subscription. Online only.
func (f *Facade) UnsubscribePush(ctx context.Context, endpoint string) Result {
	if !f.sync.Online() {
		return failure("push subscription requires a connection", SourceOffline, true)
	}
	if err := f.client.UnsubscribePush(ctx, endpoint); err != nil {
		return failure(fmt.Sprintf("unsubscribing: %v", err), SourceNetwork, false)
	}
	return ok("push notifications disabled", SourceNetwork, false)
}

// cacheInBackground upserts fetched stories and preloads their images off
// the request path. Failures are logged, never surfaced.
func (f *Facade) cacheInBackground(items []models.Story) {
	if len(items) == 0 {
		return
	}
	stories := make([]models.Story, len(items))
	copy(stories, items)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		if err := f.store.PutStories(ctx, stories); err != nil {
			f.log.Warn(ctx, "background cache write failed", "error", err)
			return
		}
		f.images.PreloadBatch(ctx, stories, 0)
	}()
}
