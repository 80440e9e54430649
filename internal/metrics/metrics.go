// Package metrics exposes Prometheus collectors for the indexer.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	urlsTotal                  *prometheus.CounterVec
	pipelineInflight           prometheus.Gauge
	fetchDurationSeconds       prometheus.Histogram
	fetchBytesTotal            *prometheus.CounterVec
	tfidfScoresWrittenTotal    prometheus.Counter
	commitCompensationsTotal   prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		urlsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webindexer_urls_total",
				Help: "Total number of URLs processed, labeled by pipeline outcome.",
			},
			[]string{"outcome"},
		)

		pipelineInflight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "webindexer_pipeline_inflight",
				Help: "Number of URL pipelines currently holding an admission slot.",
			},
		)

		fetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webindexer_fetch_duration_seconds",
				Help:    "Histogram of page GET latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webindexer_fetch_bytes_total",
				Help: "Total number of body bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		tfidfScoresWrittenTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webindexer_tfidf_scores_written_total",
				Help: "Total number of TF-IDF score records written.",
			},
		)

		commitCompensationsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webindexer_commit_compensations_total",
				Help: "Total number of compensating document deletes after a failed word commit.",
			},
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
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveOutcome increments the per-outcome URL counter.
func ObserveOutcome(outcome string) {
	urlsTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch records one successful GET.
func ObserveFetch(site string, duration time.Duration, bytesFetched int) {
	fetchDurationSeconds.Observe(duration.Seconds())
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(SanitizeSite(site)).Add(float64(bytesFetched))
	}
}

// IncInflight increments the in-flight pipelines gauge.
func IncInflight() {
	pipelineInflight.Inc()
}

// DecInflight decrements the in-flight pipelines gauge.
func DecInflight() {
	pipelineInflight.Dec()
}

// AddScoresWritten adds n to the TF-IDF scores counter.
func AddScoresWritten(n int) {
	tfidfScoresWrittenTotal.Add(float64(n))
}

// ObserveCompensation increments the compensating delete counter.
func ObserveCompensation() {
	commitCompensationsTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
