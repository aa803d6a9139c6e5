package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ResolutionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docdock",
			Name:      "resolution_events_total",
			Help:      "Count of resolution events processed by the reconciler.",
		},
		[]string{"type"},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docdock",
			Name:      "cache_hits_total",
			Help:      "Resolutions served from a committed cache entry.",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docdock",
			Name:      "cache_misses_total",
			Help:      "Cache lookups that required re-acquisition (absent or expired).",
		},
	)

	DownloadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docdock",
			Name:      "download_bytes_total",
			Help:      "Bytes committed to the cache by the network strategy.",
		},
	)

	StrategySelected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docdock",
			Name:      "strategy_selected_total",
			Help:      "Acquisition strategies selected by the scheme dispatcher.",
		},
		[]string{"scheme"},
	)

	ActiveResolutions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docdock",
			Name:      "active_resolutions",
			Help:      "Number of in-flight resolution tasks.",
		},
	)
)

// Register registers the docdock metrics into the default registry.
func Register() {
	prometheus.MustRegister(ResolutionEvents, CacheHits, CacheMisses, DownloadBytes, StrategySelected, ActiveResolutions)
}
