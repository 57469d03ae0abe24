// Package imagecache downloads, stores, evicts and serves the binary image
// assets referenced by stories. Downloads are deduplicated per URI, MIME
// types are whitelisted, and a soft capacity limit triggers age-based
// eviction before falling back to serve-without-cache.
package imagecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rizkyab/dicerita/internal/client/metrics"
	"github.com/rizkyab/dicerita/internal/client/models"
	"github.com/rizkyab/dicerita/internal/client/store"
	"github.com/rizkyab/dicerita/internal/common"
	"github.com/rizkyab/dicerita/internal/filex"
	"github.com/rizkyab/dicerita/internal/logging"
)

// Defaults for the cache policy.
const (
	DefaultMaxCacheBytes      = 50 * 1024 * 1024
	DefaultEvictAge           = 14 * 24 * time.Hour
	DefaultPreloadConcurrency = 2

	interChunkDelay = 200 * time.Millisecond
	maxDownloadSize = 20 * 1024 * 1024
)

// supported is the whitelist of image MIME types retained durably.
// Other content may be served once but is never persisted.
var supported = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// Options tune the cache policy; zero values select the defaults.
type Options struct {
	MaxCacheBytes      int64
	EvictAge           time.Duration
	PreloadConcurrency int
	TempDir            string
}

// Manager is the binary cache manager. It is safe for concurrent use.
type Manager struct {
	store  *store.Store
	http   *http.Client
	online func() bool
	log    logging.Logger
	opts   Options

	group singleflight.Group
}

// CacheStats reports entry count and total byte size of the binary cache.
type CacheStats struct {
	Count      int64
	TotalBytes int64
}

// New constructs a Manager. online reports current connectivity and is
// consulted on every cache miss.
func New(st *store.Store, online func() bool, log logging.Logger, opts Options) *Manager {
	if opts.MaxCacheBytes <= 0 {
		opts.MaxCacheBytes = DefaultMaxCacheBytes
	}
	if opts.EvictAge <= 0 {
		opts.EvictAge = DefaultEvictAge
	}
	if opts.PreloadConcurrency <= 0 {
		opts.PreloadConcurrency = DefaultPreloadConcurrency
	}
	if opts.TempDir == "" {
		opts.TempDir = "imagecache"
	}
	return &Manager{
		store:  st,
		http:   &http.Client{},
		online: online,
		log:    log.With("component", "imagecache"),
		opts:   opts,
	}
}

type downloaded struct {
	data   []byte
	mime   string
	cached bool
}

// Resolve returns a handle for uri: from the binary cache on a hit, via a
// deduplicated download on a miss while online, or nil when the asset is
// not cached and the client is offline.
func (m *Manager) Resolve(ctx context.Context, uri, ownerID string) (*Handle, error) {
	entry, err := m.store.GetBinary(ctx, uri)
	if err == nil {
		metrics.ImageCacheHit()
		return m.newHandle(uri, entry.Data, entry.MIMEType, true)
	}
	if !errors.Is(err, common.ErrorNotFound) {
		// Storage trouble is non-fatal here: fall through and try the
		// network as if it were a miss.
		m.log.Warn(ctx, "binary cache read failed", "uri", uri, "error", err)
	}

	if !m.online() {
		return nil, nil
	}
	metrics.ImageCacheMiss()

	// Concurrent callers for the same URI share a single download.
	v, err, _ := m.group.Do(uri, func() (any, error) {
		return m.downloadAndCache(ctx, uri, ownerID)
	})
	if err != nil {
		return nil, err
	}
	d := v.(*downloaded)
	return m.newHandle(uri, d.data, d.mime, d.cached)
}

func (m *Manager) downloadAndCache(ctx context.Context, uri, ownerID string) (*downloaded, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", uri, err)
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("download %s: unexpected status %d", uri, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", uri, err)
	}

	mediaType := resp.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	// Strip parameters like "; charset=utf-8" before the whitelist lookup.
	if mt, _, perr := mime.ParseMediaType(mediaType); perr == nil {
		mediaType = mt
	}

	// Non-whitelisted content is served once but never persisted.
	if !supported[mediaType] {
		m.log.Warn(ctx, "unsupported image type, serving without cache", "uri", uri, "mime", mediaType)
		metrics.ImageServedUncached()
		return &downloaded{data: data, mime: mediaType}, nil
	}

	if !m.makeRoom(ctx, int64(len(data))) {
		m.log.Warn(ctx, "cache over capacity, serving without cache", "uri", uri, "bytes", len(data))
		metrics.ImageServedUncached()
		return &downloaded{data: data, mime: mediaType}, nil
	}

	entry := &models.BinaryEntry{URI: uri, Data: data, MIMEType: mediaType, OwnerID: ownerID}
	if err := m.store.PutBinary(ctx, entry); err != nil {
		// Caching is best effort: the caller still gets the bytes.
		m.log.Warn(ctx, "failed to persist image", "uri", uri, "error", err)
		return &downloaded{data: data, mime: mediaType}, nil
	}
	metrics.ImageCached()
	if total, err := m.store.TotalBinaryBytes(ctx); err == nil {
		metrics.SetBinaryBytes(total)
	}
	return &downloaded{data: data, mime: mediaType, cached: true}, nil
}

// makeRoom enforces the soft capacity limit: when adding newBytes would
// exceed the cap it evicts stale entries first, and reports whether the
// asset fits afterwards. The limit is soft, so a false return means
// serve-without-cache, not rejection.
func (m *Manager) makeRoom(ctx context.Context, newBytes int64) bool {
	total, err := m.store.TotalBinaryBytes(ctx)
	if err != nil {
		m.log.Warn(ctx, "failed to read cache size", "error", err)
		return true
	}
	if total+newBytes <= m.opts.MaxCacheBytes {
		return true
	}

	n, err := m.store.EvictBinariesOlderThan(ctx, m.opts.EvictAge)
	if err != nil {
		m.log.Warn(ctx, "eviction failed", "error", err)
		return false
	}
	m.log.Info(ctx, "evicted stale images for capacity", "count", n)

	total, err = m.store.TotalBinaryBytes(ctx)
	if err != nil {
		return false
	}
	return total+newBytes <= m.opts.MaxCacheBytes
}

func (m *Manager) newHandle(uri string, data []byte, mime string, cached bool) (*Handle, error) {
	dir, err := filex.EnsureSubDir(m.opts.TempDir)
	if err != nil {
		return nil, fmt.Errorf("handle dir: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString())
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("write handle file: %w", err)
	}
	return &Handle{URI: uri, Path: path, MIMEType: mime, Cached: cached, owner: m}, nil
}

// Preload resolves a story's image in the background, swallowing all
// errors. The returned handle is released immediately: the goal is a warm
// cache, not a live handle.
func (m *Manager) Preload(ctx context.Context, story *models.Story) {
	if story == nil || story.PhotoURL == "" {
		return
	}
	h, err := m.Resolve(ctx, story.PhotoURL, story.ID)
	if err != nil {
		m.log.Warn(ctx, "preload failed", "story", story.ID, "error", err)
		return
	}
	m.Release(h)
}

// PreloadBatch preloads images for a list of stories in fixed-size chunks
// with bounded concurrency and a small delay between chunks. One story's
// failure never aborts the batch.
func (m *Manager) PreloadBatch(ctx context.Context, items []models.Story, concurrency int) {
	if len(items) == 0 {
		return
	}
	if concurrency <= 0 {
		concurrency = m.opts.PreloadConcurrency
	}

	for start := 0; start < len(items); start += concurrency {
		end := start + concurrency
		if end > len(items) {
			end = len(items)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, story := range items[start:end] {
			story := story
			g.Go(func() error {
				m.Preload(gctx, &story)
				return nil
			})
		}
		_ = g.Wait()

		if end < len(items) {
			select {
			case <-time.After(interChunkDelay):
			case <-ctx.Done():
				return
			}
		}
	}
}

// EvictStale removes cached images older than maxAge.
func (m *Manager) EvictStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	n, err := m.store.EvictBinariesOlderThan(ctx, maxAge)
	if err != nil {
		return 0, err
	}
	if total, terr := m.store.TotalBinaryBytes(ctx); terr == nil {
		metrics.SetBinaryBytes(total)
	}
	return n, nil
}

// Clear wipes the binary cache.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.ClearAllBinaries(ctx); err != nil {
		return err
	}
	metrics.SetBinaryBytes(0)
	return nil
}

// Stats reports current cache usage.
func (m *Manager) Stats(ctx context.Context) (*CacheStats, error) {
	st, err := m.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &CacheStats{Count: st.Binaries, TotalBytes: st.BinaryBytes}, nil
}
