package llmcore

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	tracer     trace.Tracer
	store      Store
	httpClient *http.Client
	transport  Transport
}

// WithLogger sets the slog logger used by every layer. Records from the
// monitoring layer ("llm_request", "llm_error") go here.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithRegisterer registers Prometheus collectors on reg. Without it no
// metrics are recorded.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *clientOptions) {
		o.registerer = reg
	}
}

// WithTracer sets the tracer for per-call spans. Defaults to the global
// OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *clientOptions) {
		o.tracer = t
	}
}

// WithStore replaces the in-memory cache store.
func WithStore(s Store) Option {
	return func(o *clientOptions) {
		o.store = s
	}
}

// WithHTTPClient sets the HTTP client used to reach the local endpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithTransport replaces the backend transport selected from the model type.
func WithTransport(t Transport) Option {
	return func(o *clientOptions) {
		o.transport = t
	}
}
