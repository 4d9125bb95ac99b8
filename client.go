package llmcore

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blueberrycongee/llmcore/internal/api"
	"github.com/blueberrycongee/llmcore/internal/backend"
	"github.com/blueberrycongee/llmcore/internal/cache"
	"github.com/blueberrycongee/llmcore/internal/generation"
	"github.com/blueberrycongee/llmcore/internal/metrics"
	"github.com/blueberrycongee/llmcore/internal/monitor"
	"github.com/blueberrycongee/llmcore/internal/observability"
)

// Client is the assembled generation chain.
type Client struct {
	cfg     *Config
	backend *backend.Client
	cached  *cache.Cached
	chain   Generator
	metrics *metrics.Metrics
	logger  *observability.Logger
}

var _ Generator = (*Client)(nil)

// New validates a copy of cfg and builds the chain. A nil cfg uses
// DefaultConfig.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	snapshot := *cfg
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	logger := observability.NewDiscardLogger()
	if o.logger != nil {
		logger = observability.FromSlog(o.logger, observability.NewRedactor())
	}

	var m *metrics.Metrics
	if o.registerer != nil {
		m = metrics.New(o.registerer)
	}

	backendOpts := []backend.Option{backend.WithLogger(logger)}
	if o.httpClient != nil {
		backendOpts = append(backendOpts, backend.WithHTTPClient(o.httpClient))
	}
	if o.transport != nil {
		backendOpts = append(backendOpts, backend.WithTransport(o.transport))
	}
	be, err := backend.New(snapshot.Model, snapshot.Backend, backendOpts...)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:     &snapshot,
		backend: be,
		metrics: m,
		logger:  logger,
	}

	var chain Generator = generation.New(snapshot.Model.Type, be)

	if snapshot.Cache.Enabled {
		store := o.store
		if store == nil {
			store = cache.NewMemoryStore(snapshot.Cache.TTL)
		}
		cacheOpts := []cache.Option{cache.WithLogger(logger)}
		if m != nil {
			cacheOpts = append(cacheOpts, cache.WithRecorder(m))
		}
		c.cached = cache.New(chain, store, snapshot.Cache.TTL, cacheOpts...)
		chain = c.cached
	}

	monitorOpts := []monitor.Option{monitor.WithLogger(logger), monitor.WithMetrics(m)}
	if o.tracer != nil {
		monitorOpts = append(monitorOpts, monitor.WithTracer(o.tracer))
	}
	c.chain = monitor.New(chain, snapshot.Model.Type, snapshot.Model.Name, monitorOpts...)

	return c, nil
}

// GenerateResponse implements Generator.
func (c *Client) GenerateResponse(ctx context.Context, req GenerationRequest) (string, error) {
	return c.chain.GenerateResponse(ctx, req)
}

// StreamResponse implements Generator.
func (c *Client) StreamResponse(ctx context.Context, prompt string, onToken TokenFunc) error {
	return c.chain.StreamResponse(ctx, prompt, onToken)
}

// Ping checks that the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}

// Config returns the validated configuration snapshot. It must not be modified.
func (c *Client) Config() *Config {
	return c.cfg
}

// CacheStats returns cache statistics. The zero value is returned when the
// cache is disabled.
func (c *Client) CacheStats() CacheStats {
	if c.cached == nil {
		return CacheStats{}
	}
	return c.cached.Stats()
}

// Handler returns the HTTP surface over the chain: generate, stream and the
// health probes. When gatherer is non-nil it is also served at metricsPath.
func (c *Client) Handler(gatherer prometheus.Gatherer, metricsPath string) http.Handler {
	h := api.NewHandler(c.chain, c, c.logger)
	return api.NewRouter(h, api.RouteOptions{
		Metrics:     c.metrics,
		Gatherer:    gatherer,
		MetricsPath: metricsPath,
	})
}

// Close releases the cache store.
func (c *Client) Close() error {
	if c.cached != nil {
		if err := c.cached.Close(); err != nil {
			return err
		}
	}
	c.logger.Debug("llmcore client closed")
	return nil
}
