package imagecache

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rizkyab/dicerita/internal/client/models"
	"github.com/rizkyab/dicerita/internal/client/store"
	"github.com/rizkyab/dicerita/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(":memory:", testLogger())
	require.NoError(t, st.Init(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newManager(t *testing.T, st *store.Store, online bool, opts Options) *Manager {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	return New(st, func() bool { return online }, testLogger(), opts)
}

func imageServer(t *testing.T, contentType string, body []byte, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolve_CacheHit(t *testing.T) {
	st := newTestStore(t)
	m := newManager(t, st, false, Options{})
	ctx := context.Background()

	require.NoError(t, st.PutBinary(ctx, &models.BinaryEntry{
		URI:      "https://cdn/p1.jpg",
		Data:     []byte{0xff, 0xd8, 0xff},
		MIMEType: "image/jpeg",
		OwnerID:  "s1",
	}))

	h, err := m.Resolve(ctx, "https://cdn/p1.jpg", "s1")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.True(t, h.Cached)
	assert.Equal(t, "image/jpeg", h.MIMEType)

	data, err := h.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)

	path := h.Path
	m.Release(h)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "release must remove the temp file")
}

func TestResolve_OfflineMissReturnsNil(t *testing.T) {
	st := newTestStore(t)
	m := newManager(t, st, false, Options{})

	h, err := m.Resolve(context.Background(), "https://cdn/unknown.jpg", "s1")
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestResolve_DownloadsAndCaches(t *testing.T) {
	st := newTestStore(t)
	m := newManager(t, st, true, Options{})
	ctx := context.Background()

	var hits atomic.Int32
	srv := imageServer(t, "image/jpeg", []byte{0xff, 0xd8, 0xff, 0xe0}, &hits)

	h, err := m.Resolve(ctx, srv.URL+"/p1.jpg", "s1")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.True(t, h.Cached)
	m.Release(h)

	ok, err := st.HasBinary(ctx, srv.URL+"/p1.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	// second resolve is served from the cache
	h2, err := m.Resolve(ctx, srv.URL+"/p1.jpg", "s1")
	require.NoError(t, err)
	require.NotNil(t, h2)
	m.Release(h2)

	assert.EqualValues(t, 1, hits.Load())
}

func TestResolve_ConcurrentCallersShareOneDownload(t *testing.T) {
	st := newTestStore(t)
	m := newManager(t, st, true, Options{})
	ctx := context.Background()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(50 * time.Millisecond)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	}))
	t.Cleanup(srv.Close)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := m.Resolve(ctx, srv.URL+"/shared.png", "s1")
			assert.NoError(t, err)
			if h != nil {
				m.Release(h)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, hits.Load())
}

func TestResolve_UnsupportedTypeServedWithoutCache(t *testing.T) {
	st := newTestStore(t)
	m := newManager(t, st, true, Options{})
	ctx := context.Background()

	srv := imageServer(t, "text/html", []byte("<html>not an image</html>"), nil)

	h, err := m.Resolve(ctx, srv.URL+"/page.html", "s1")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.False(t, h.Cached)
	m.Release(h)

	ok, err := st.HasBinary(ctx, srv.URL+"/page.html")
	require.NoError(t, err)
	assert.False(t, ok, "unsupported types must not be persisted")
}

func TestResolve_ContentTypeParametersIgnored(t *testing.T) {
	st := newTestStore(t)
	m := newManager(t, st, true, Options{})
	ctx := context.Background()

	srv := imageServer(t, "image/jpeg; charset=utf-8", []byte{0xff, 0xd8, 0xff, 0xe0}, nil)

	h, err := m.Resolve(ctx, srv.URL+"/p1.jpg", "s1")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.True(t, h.Cached)
	assert.Equal(t, "image/jpeg", h.MIMEType)
	m.Release(h)

	entry, err := st.GetBinary(ctx, srv.URL+"/p1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", entry.MIMEType)
}

func TestResolve_OverCapacityServedWithoutCache(t *testing.T) {
	st := newTestStore(t)
	m := newManager(t, st, true, Options{MaxCacheBytes: 10})
	ctx := context.Background()

	srv := imageServer(t, "image/jpeg", make([]byte, 64), nil)

	h, err := m.Resolve(ctx, srv.URL+"/big.jpg", "s1")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.False(t, h.Cached, "soft cap means serve-without-cache, not failure")
	m.Release(h)

	total, err := st.TotalBinaryBytes(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestResolve_EvictsStaleEntriesForCapacity(t *testing.T) {
	st := newTestStore(t)
	m := newManager(t, st, true, Options{MaxCacheBytes: 100, EvictAge: time.Millisecond})
	ctx := context.Background()

	require.NoError(t, st.PutBinary(ctx, &models.BinaryEntry{
		URI:      "https://cdn/old.jpg",
		Data:     make([]byte, 80),
		MIMEType: "image/jpeg",
	}))
	time.Sleep(5 * time.Millisecond)

	srv := imageServer(t, "image/jpeg", make([]byte, 50), nil)

	h, err := m.Resolve(ctx, srv.URL+"/new.jpg", "s1")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.True(t, h.Cached)
	m.Release(h)

	ok, err := st.HasBinary(ctx, "https://cdn/old.jpg")
	require.NoError(t, err)
	assert.False(t, ok, "stale entry evicted to make room")
}

func TestResolve_DownloadErrorPropagates(t *testing.T) {
	st := newTestStore(t)
	m := newManager(t, st, true, Options{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := m.Resolve(context.Background(), srv.URL+"/gone.jpg", "s1")
	assert.Error(t, err)
}

func TestPreloadBatch_WarmsEveryImage(t *testing.T) {
	st := newTestStore(t)
	m := newManager(t, st, true, Options{PreloadConcurrency: 2})
	ctx := context.Background()

	var hits atomic.Int32
	srv := imageServer(t, "image/jpeg", []byte{0xff, 0xd8}, &hits)

	stories := []models.Story{
		{ID: "s1", PhotoURL: srv.URL + "/1.jpg"},
		{ID: "s2", PhotoURL: srv.URL + "/2.jpg"},
		{ID: "s3", PhotoURL: srv.URL + "/3.jpg"},
		{ID: "s4"}, // no photo, skipped
	}

	m.PreloadBatch(ctx, stories, 2)

	for _, s := range stories[:3] {
		ok, err := st.HasBinary(ctx, s.PhotoURL)
		require.NoError(t, err)
		assert.True(t, ok, "image for %s should be cached", s.ID)
	}
	assert.EqualValues(t, 3, hits.Load())
}

func TestStatsAndClear(t *testing.T) {
	st := newTestStore(t)
	m := newManager(t, st, false, Options{})
	ctx := context.Background()

	require.NoError(t, st.PutBinary(ctx, &models.BinaryEntry{URI: "u1", Data: make([]byte, 5), MIMEType: "image/jpeg"}))
	require.NoError(t, st.PutBinary(ctx, &models.BinaryEntry{URI: "u2", Data: make([]byte, 7), MIMEType: "image/png"}))

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Count)
	assert.EqualValues(t, 12, stats.TotalBytes)

	require.NoError(t, m.Clear(ctx))
	stats, err = m.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Count)
	assert.Zero(t, stats.TotalBytes)
}
