// Package metrics exposes Prometheus instruments for the offline data
// layer, so operators can monitor cache-miss rates and drain failures
// instead of digging through logs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	imageCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dicerita_image_cache_hits_total",
		Help: "Total image resolutions served from the local binary cache.",
	})

	imageCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dicerita_image_cache_misses_total",
		Help: "Total image resolutions that required a network download.",
	})

	imagesCached = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dicerita_images_cached_total",
		Help: "Total images persisted to the binary cache.",
	})

	imagesServedUncached = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dicerita_images_served_uncached_total",
		Help: "Total images served without persisting (capacity or MIME policy).",
	})

	binaryCacheBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dicerita_binary_cache_bytes",
		Help: "Current total size of the binary cache in bytes.",
	})

	drainCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dicerita_sync_drain_cycles_total",
		Help: "Total drain cycles executed.",
	})

	opsSynced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dicerita_sync_operations_synced_total",
		Help: "Total queued operations successfully replayed.",
	})

	opsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dicerita_sync_operations_failed_total",
		Help: "Total failed operation dispatch attempts.",
	})

	storageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dicerita_storage_errors_total",
		Help: "Total storage failures by collection.",
	}, []string{"collection"})
)

func ImageCacheHit()         { imageCacheHits.Inc() }
func ImageCacheMiss()        { imageCacheMisses.Inc() }
func ImageCached()           { imagesCached.Inc() }
func ImageServedUncached()   { imagesServedUncached.Inc() }
func SetBinaryBytes(n int64) { binaryCacheBytes.Set(float64(n)) }

func DrainCycle()      { drainCycles.Inc() }
func OperationSynced() { opsSynced.Inc() }
func OperationFailed() { opsFailed.Inc() }

// StorageError records a storage failure against the named collection.
func StorageError(collection string) {
	storageErrors.WithLabelValues(collection).Inc()
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
