// Package metrics provides Prometheus metrics for imagehub.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups counts tier lookups by tier, image kind and result.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imagehub",
			Name:      "cache_lookups_total",
			Help:      "Total number of cache lookups",
		},
		[]string{"tier", "kind", "result"},
	)

	// CacheEvictions counts memory tier evictions.
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imagehub",
			Name:      "cache_evictions_total",
			Help:      "Total number of memory cache evictions",
		},
		[]string{"cache"},
	)

	// DiskWriteErrors counts swallowed disk write failures.
	DiskWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imagehub",
			Name:      "disk_write_errors_total",
			Help:      "Total number of failed disk cache writes",
		},
		[]string{"namespace"},
	)

	// FetchTotal counts network fetches by result.
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imagehub",
			Name:      "fetch_total",
			Help:      "Total number of network fetches",
		},
		[]string{"kind", "result"},
	)

	// FetchDuration measures network fetch duration.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "imagehub",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of network fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// CoalescedLoads counts callers that shared another caller's in-flight load.
	CoalescedLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imagehub",
			Name:      "coalesced_loads_total",
			Help:      "Total number of loads served by an in-flight load for the same key",
		},
		[]string{"kind"},
	)

	// ManifestEntries tracks the number of valid entries in the current manifest.
	ManifestEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "imagehub",
			Name:      "manifest_entries",
			Help:      "Number of valid entries in the current manifest",
		},
	)

	// ManifestLoads counts manifest load attempts by result.
	ManifestLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imagehub",
			Name:      "manifest_loads_total",
			Help:      "Total number of manifest load attempts",
		},
		[]string{"result"},
	)

	// ConnectivityStatus tracks connectivity (1 = connected, 0 = disconnected).
	ConnectivityStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "imagehub",
			Name:      "connectivity_status",
			Help:      "Network connectivity status (1 = connected, 0 = disconnected)",
		},
	)
)

// RecordLookup records a cache tier lookup.
func RecordLookup(tier, kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(tier, kind, result).Inc()
}

// RecordFetch records a network fetch.
func RecordFetch(kind string, err error, seconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	FetchTotal.WithLabelValues(kind, result).Inc()
	FetchDuration.WithLabelValues(kind).Observe(seconds)
}

// SetConnected records the current connectivity state.
func SetConnected(connected bool) {
	if connected {
		ConnectivityStatus.Set(1)
		return
	}
	ConnectivityStatus.Set(0)
}
