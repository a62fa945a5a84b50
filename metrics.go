package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors of the service
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	MapsLoaded prometheus.Gauge

	LeakSearchesTotal  *prometheus.CounterVec
	LeakSearchDuration prometheus.Histogram
	LeakSearchAttempts prometheus.Histogram
	LeakGraphNodes     prometheus.Histogram
	LeakInvalidDomains prometheus.Counter
}

// NewMetrics creates the collectors on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundleak_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	m.HTTPRequestDuration = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soundleak_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.MapsLoaded = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "soundleak_maps_loaded",
			Help: "Number of maps held in memory",
		},
	)

	m.LeakSearchesTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundleak_searches_total",
			Help: "Total number of leak searches by result",
		},
		[]string{"result"},
	)

	m.LeakSearchDuration = promauto.With(reg).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soundleak_search_duration_seconds",
			Help:    "Leak search duration including graph construction",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
	)

	m.LeakSearchAttempts = promauto.With(reg).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soundleak_search_attempts",
			Help:    "Number of search attempts per leak search",
			Buckets: []float64{1, 2, 3, 5, 10, 25, 100},
		},
	)

	m.LeakGraphNodes = promauto.With(reg).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soundleak_graph_nodes",
			Help:    "Number of nodes in the leak search graph",
			Buckets: []float64{10, 100, 1000, 10000, 100000},
		},
	)

	m.LeakInvalidDomains = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "soundleak_invalid_domains_total",
			Help: "Leak searches rejected because the domain missed the start or end sector",
		},
	)

	return m
}

// ObserveSearch records the outcome of one leak search. Queries answered by
// the sound domain alone count as "out_of_range" and have no graph to observe.
func (m *Metrics) ObserveSearch(o *LeakOutcome) {
	m.LeakSearchDuration.Observe(o.Elapsed.Seconds())

	switch {
	case o.Finder == nil:
		m.LeakSearchesTotal.WithLabelValues("out_of_range").Inc()
		return
	case o.Found:
		m.LeakSearchesTotal.WithLabelValues("found").Inc()
	default:
		m.LeakSearchesTotal.WithLabelValues("not_found").Inc()
	}
	m.LeakSearchAttempts.Observe(float64(o.Attempts()))
	m.LeakGraphNodes.Observe(float64(o.NumNodes()))
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps a handler with request counting and timing
func (m *Metrics) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
