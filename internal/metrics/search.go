package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric exported by the service.
const Namespace = "mindseye"

// Search and index Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"trigram", "status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_duration_seconds",
			Help:      "Search pipeline duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
		[]string{"trigram"},
	)

	SearchCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_candidates",
			Help:      "Events surviving trigram narrowing per search",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_results",
			Help:      "Events returned per search",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	IndexLoadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "index_loads_total",
			Help:      "Total number of collection loads",
		},
	)

	IndexLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "index_load_duration_seconds",
			Help:      "Time spent building the trigram index",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	IndexEvents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "index_events",
			Help:      "Events in the currently held collection",
		},
	)

	IndexShingles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "index_shingles",
			Help:      "Distinct shingles in the current trigram index",
		},
	)
)

var registerSearchOnce sync.Once

// RegisterSearchMetrics registers search and index metrics. Safe to call more than once.
func RegisterSearchMetrics() {
	registerSearchOnce.Do(func() {
		prometheus.MustRegister(
			SearchRequestsTotal,
			SearchDuration,
			SearchCandidates,
			SearchResults,
			IndexLoadsTotal,
			IndexLoadDuration,
			IndexEvents,
			IndexShingles,
		)
	})
}

// SearchRecorder feeds store observations into the Prometheus collectors.
type SearchRecorder struct{}

// ObserveLoad records one completed collection load.
func (SearchRecorder) ObserveLoad(events, shingles int, d time.Duration) {
	IndexLoadsTotal.Inc()
	IndexLoadDuration.Observe(d.Seconds())
	IndexEvents.Set(float64(events))
	IndexShingles.Set(float64(shingles))
}

// ObserveSearch records one search. Candidate and result sizes are only
// observed for successful searches.
func (SearchRecorder) ObserveSearch(useTrigram bool, candidates, results int, d time.Duration, err error) {
	trigram := strconv.FormatBool(useTrigram)
	status := "ok"
	if err != nil {
		status = "error"
	}
	SearchRequestsTotal.WithLabelValues(trigram, status).Inc()
	SearchDuration.WithLabelValues(trigram).Observe(d.Seconds())
	if err != nil {
		return
	}
	SearchCandidates.Observe(float64(candidates))
	SearchResults.Observe(float64(results))
}
