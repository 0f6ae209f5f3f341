package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simdex",
			Name:      "retrieval_requests_total",
			Help:      "Total number of similarity retrieval requests",
		},
		[]string{"status"}, // "ok" / "error"
	)

	RetrievalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "simdex",
			Name:      "retrieval_duration_seconds",
			Help:      "Similarity retrieval duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	RetrievalCandidatesScanned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "simdex",
			Name:      "retrieval_candidates_scanned",
			Help:      "Candidates that passed the prefilter and entered distance computation",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		},
	)

	AccessCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simdex",
			Name:      "access_cache_total",
			Help:      "Access-resolution cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	AccessFailClosedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "simdex",
			Name:      "access_fail_closed_total",
			Help:      "Resolutions that fell back to an empty authorized set on policy store failure",
		},
	)
)

// RegisterRetrievalMetrics registers retrieval metrics with the default
// registry. Called explicitly from the composition root (no init()).
func RegisterRetrievalMetrics() {
	prometheus.MustRegister(
		RetrievalRequestsTotal,
		RetrievalDuration,
		RetrievalCandidatesScanned,
		AccessCacheTotal,
		AccessFailClosedTotal,
	)
}
