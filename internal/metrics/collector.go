// internal/metrics/collector.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Update kinds
const (
	KindCommand  = "command"
	KindCallback = "callback"
	KindQuery    = "query"
	KindIgnored  = "ignored"
)

// Lookup results
const (
	LookupFound    = "found"
	LookupNotFound = "not_found"
	LookupError    = "error"
	LookupCached   = "cached"
)

// Metrics holds the bot's Prometheus metrics on a private registry
type Metrics struct {
	Updates       *prometheus.CounterVec
	Lookups       *prometheus.CounterVec
	TMDBLatency   *prometheus.HistogramVec
	Probes        *prometheus.CounterVec
	CacheRequests *prometheus.CounterVec
	RateLimited   prometheus.Counter
	registry      *prometheus.Registry
}

// New creates and registers all metrics. Each call gets its own registry,
// so tests can create as many as they like.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinemabot_updates_total",
				Help: "Telegram updates handled",
			},
			[]string{"kind"},
		),
		Lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinemabot_lookups_total",
				Help: "Metadata lookups by result",
			},
			[]string{"result"},
		),
		TMDBLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cinemabot_tmdb_request_duration_seconds",
				Help:    "TMDB API latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		Probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinemabot_watchlink_probes_total",
				Help: "Watch link probes by outcome",
			},
			[]string{"result"},
		),
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinemabot_cache_requests_total",
				Help: "Cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cinemabot_rate_limited_total",
				Help: "Queries rejected by the per-user rate limit",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.Updates,
		m.Lookups,
		m.TMDBLatency,
		m.Probes,
		m.CacheRequests,
		m.RateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// IncUpdate counts one handled update
func (m *Metrics) IncUpdate(kind string) {
	m.Updates.WithLabelValues(kind).Inc()
}

// IncLookup counts one metadata lookup
func (m *Metrics) IncLookup(result string) {
	m.Lookups.WithLabelValues(result).Inc()
}

// ObserveTMDB records one TMDB call
func (m *Metrics) ObserveTMDB(endpoint string, d time.Duration) {
	m.TMDBLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// IncProbe counts one watch link probe
func (m *Metrics) IncProbe(result string) {
	m.Probes.WithLabelValues(result).Inc()
}

// IncCache counts one cache lookup
func (m *Metrics) IncCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(cache, result).Inc()
}

// IncRateLimited counts one rejected query
func (m *Metrics) IncRateLimited() {
	m.RateLimited.Inc()
}

// Registry exposes the registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus metrics handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
