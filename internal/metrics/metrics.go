// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapesTotal               *prometheus.CounterVec
	scrapeDurationSeconds      prometheus.Histogram
	cacheEventsTotal           *prometheus.CounterVec
	poolAvailable              prometheus.Gauge
	lineItemsDroppedTotal      prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfce_scrapes_total",
				Help: "Total number of receipt scrapes, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		scrapeDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nfce_scrape_duration_seconds",
				Help:    "Histogram of end-to-end scrape latencies for cache misses.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
		)

		cacheEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfce_cache_events_total",
				Help: "Total result cache lookups, labeled hit or miss.",
			},
			[]string{"result"},
		)

		poolAvailable = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nfce_browser_pool_available",
				Help: "Number of browser sessions currently idle in the pool.",
			},
		)

		lineItemsDroppedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nfce_line_items_dropped_total",
				Help: "Total receipt line items dropped due to malformed structure.",
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30, 60},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScrape records one pipeline run by outcome ("success", or the error
// kind string) and its duration.
func ObserveScrape(outcome string, duration time.Duration) {
	scrapesTotal.WithLabelValues(outcome).Inc()
	scrapeDurationSeconds.Observe(duration.Seconds())
}

// ObserveCacheHit increments the cache hit counter.
func ObserveCacheHit() {
	cacheEventsTotal.WithLabelValues("hit").Inc()
}

// ObserveCacheMiss increments the cache miss counter.
func ObserveCacheMiss() {
	cacheEventsTotal.WithLabelValues("miss").Inc()
}

// SetPoolAvailable publishes the pool's current idle count.
func SetPoolAvailable(n int) {
	poolAvailable.Set(float64(n))
}

// ObserveDroppedLineItems counts line items discarded during conversion.
func ObserveDroppedLineItems(n int) {
	if n > 0 {
		lineItemsDroppedTotal.Add(float64(n))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
