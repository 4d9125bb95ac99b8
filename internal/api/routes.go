package api //nolint:revive // package name is intentional

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blueberrycongee/llmcore/internal/metrics"
	"github.com/blueberrycongee/llmcore/internal/observability"
)

// RouteOptions controls optional parts of the route table.
type RouteOptions struct {
	// Metrics records per-route HTTP metrics when set.
	Metrics *metrics.Metrics
	// Gatherer is exposed at MetricsPath when set.
	Gatherer    prometheus.Gatherer
	MetricsPath string
}

// NewRouter registers every route and wraps the mux with request ID handling.
func NewRouter(h *Handler, opts RouteOptions) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", h.HealthLive)
	mux.HandleFunc("GET /health/ready", h.HealthReady)

	mux.Handle("POST /v1/generate", opts.Metrics.Middleware("/v1/generate", http.HandlerFunc(h.Generate)))
	mux.Handle("POST /v1/stream", opts.Metrics.Middleware("/v1/stream", http.HandlerFunc(h.Stream)))

	if opts.Gatherer != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	return observability.RequestIDMiddleware(mux)
}
