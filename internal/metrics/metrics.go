// Package metrics exposes Prometheus collectors for the announcer service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "predb_cycles_total",
			Help: "Total number of completed catalog scan cycles.",
		},
	)

	candidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predb_candidates_total",
			Help: "Total number of polled catalog entries, labeled by dedup result.",
		},
		[]string{"result"},
	)

	releasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predb_releases_total",
			Help: "Total number of processed releases, labeled by outcome and last stage reached.",
		},
		[]string{"outcome", "stage"},
	)

	fetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predb_fetch_requests_total",
			Help: "Total number of outbound fetches, labeled by caller and result.",
		},
		[]string{"caller", "result"},
	)

	renderDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "predb_render_duration_seconds",
			Help:    "Histogram of document render latencies, labeled by renderer.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"renderer"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCycle increments the scan cycle counter.
func ObserveCycle() {
	cyclesTotal.Inc()
}

// ObserveCandidates adds n candidates to a dedup classification ("new", "seen", "bootstrap").
func ObserveCandidates(result string, n int) {
	if n <= 0 {
		return
	}
	candidatesTotal.WithLabelValues(result).Add(float64(n))
}

// ObserveRelease records a terminal release outcome.
func ObserveRelease(outcome, stage string) {
	releasesTotal.WithLabelValues(outcome, stage).Inc()
}

// ObserveFetch records one outbound fetch.
func ObserveFetch(caller, result string) {
	fetchRequestsTotal.WithLabelValues(caller, result).Inc()
}

// ObserveRender records how long a renderer took.
func ObserveRender(renderer string, duration time.Duration) {
	renderDurationSeconds.WithLabelValues(renderer).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
