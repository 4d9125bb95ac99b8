// Package metrics provides the Prometheus collectors of the generation chain.
// Collectors are registered on an injected Registerer so tests and embedders
// can use their own registry.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "llmcore"
)

// Request outcomes used for the status label.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operations used for the operation label.
const (
	OperationGenerate = "generate"
	OperationStream   = "stream"
)

// LatencyBuckets defines histogram buckets for latency metrics (in seconds).
// Local inference is slow, so the tail reaches several minutes.
var LatencyBuckets = []float64{
	0.005, 0.025, 0.05, 0.1, 0.25, 0.5,
	1.0, 2.5, 5.0, 10.0, 15.0, 30.0, 60.0, 120.0,
	180.0, 300.0,
}

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Requests       *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
	Errors         *prometheus.CounterVec
	StreamTokens   *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
	CacheSets      prometheus.Counter
	HTTPRequests   *prometheus.CounterVec
	HTTPLatency    *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
// A nil reg falls back to prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of generation requests",
			},
			[]string{"operation", "model_type", "model", "status"},
		),
		RequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Generation request latency in seconds",
				Buckets:   LatencyBuckets,
			},
			[]string{"operation", "model_type", "model"},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Failed generation requests by error kind",
			},
			[]string{"operation", "error_type"},
		),
		StreamTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_tokens_total",
				Help:      "Tokens delivered to stream callers",
			},
			[]string{"model_type", "model"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Response cache lookups by result",
			},
			[]string{"result"},
		),
		CacheSets: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_sets_total",
				Help:      "Responses written to the cache",
			},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served",
			},
			[]string{"route", "code"},
		),
		HTTPLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   LatencyBuckets,
			},
			[]string{"route"},
		),
	}
}

// RecordRequest records one finished generation call.
func (m *Metrics) RecordRequest(operation, modelType, model, status string, latency time.Duration) {
	if m == nil {
		return
	}
	model = sanitizeModelLabel(model)
	m.Requests.WithLabelValues(operation, modelType, model, status).Inc()
	m.RequestLatency.WithLabelValues(operation, modelType, model).Observe(latency.Seconds())
}

// RecordError counts a failure by kind.
func (m *Metrics) RecordError(operation, errorType string) {
	if m == nil {
		return
	}
	if errorType == "" {
		errorType = "unknown"
	}
	m.Errors.WithLabelValues(operation, errorType).Inc()
}

// RecordStreamTokens adds delivered stream tokens.
func (m *Metrics) RecordStreamTokens(modelType, model string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.StreamTokens.WithLabelValues(modelType, sanitizeModelLabel(model)).Add(float64(n))
}

// RecordCacheHit counts a cache hit.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("hit").Inc()
}

// RecordCacheMiss counts a cache miss.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// RecordCacheSet counts a cache write.
func (m *Metrics) RecordCacheSet() {
	if m == nil {
		return
	}
	m.CacheSets.Inc()
}

const maxModelLabelLen = 64

// sanitizeModelLabel bounds label cardinality and strips characters that do
// not belong in a model tag such as "llama2:13b".
func sanitizeModelLabel(model string) string {
	model = strings.TrimSpace(model)
	if model == "" {
		return "unknown"
	}

	var b strings.Builder
	b.Grow(min(len(model), maxModelLabelLen))
	for _, r := range model {
		if (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' || r == ':' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		if b.Len() >= maxModelLabelLen {
			break
		}
	}

	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "unknown"
	}
	return out
}
