// Package metrics owns the Prometheus collectors for the journal server.
//
// Collectors live on a private prometheus.Registry rather than the global
// default one, so each Registry (one per server, one per test) starts empty.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

const namespace = "memory_journal"

type Registry struct {
	reg *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	oracleCalls    *prometheus.CounterVec
	oracleDuration *prometheus.HistogramVec
	breakerState   *prometheus.GaugeVec
	searchResults  prometheus.Histogram
	searchDegraded prometheus.Counter
	sentiment      *prometheus.CounterVec
}

func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Registry{
		reg: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		oracleCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Calls to the embedding, completion and transcription providers by outcome.",
		}, []string{"op", "outcome"}),
		oracleDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_call_duration_seconds",
			Help:      "Provider call latency in seconds.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"op"}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "oracle_breaker_state",
			Help:      "Circuit breaker state per operation: 0 closed, 1 half-open, 2 open.",
		}, []string{"op"}),
		searchResults: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "semantic_search_results",
			Help:      "Number of results returned by semantic search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10},
		}),
		searchDegraded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "semantic_search_degraded_total",
			Help:      "Semantic searches answered without AI ranking because the query could not be embedded.",
		}),
		sentiment: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentiment_tags_total",
			Help:      "Emotions assigned automatically on memory creation.",
		}, []string{"emotion"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry, mostly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (r *Registry) ObserveOracleCall(op, outcome string, elapsed time.Duration) {
	r.oracleCalls.WithLabelValues(op, outcome).Inc()
	r.oracleDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SetBreakerState records gobreaker's state; its numeric values are the gauge values.
func (r *Registry) SetBreakerState(op string, state gobreaker.State) {
	r.breakerState.WithLabelValues(op).Set(float64(state))
}

func (r *Registry) ObserveSearch(results int, degraded bool) {
	r.searchResults.Observe(float64(results))
	if degraded {
		r.searchDegraded.Inc()
	}
}

func (r *Registry) ObserveSentiment(emotion string) {
	r.sentiment.WithLabelValues(emotion).Inc()
}
