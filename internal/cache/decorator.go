package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/blueberrycongee/llmcore/internal/observability"
	"github.com/blueberrycongee/llmcore/pkg/generator"
	"github.com/blueberrycongee/llmcore/pkg/types"
)

// DefaultTTL is the lifetime of a cached response when none is configured.
const DefaultTTL = time.Hour

// Cached decorates a Generator with response caching.
//
// Only successful GenerateResponse results are stored. Failures are returned
// unchanged and never cached. Streams bypass the cache entirely.
//
// Concurrent misses for the same key are not coalesced: each caller reaches
// the wrapped generator and the last successful write wins.
type Cached struct {
	next     generator.Generator
	store    Store
	keys     KeyGenerator
	ttl      time.Duration
	recorder Recorder
	logger   *observability.Logger

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

var _ generator.Generator = (*Cached)(nil)

// Option configures a Cached decorator.
type Option func(*Cached)

// WithKeyGenerator replaces the default SHA-256 key generator.
func WithKeyGenerator(g KeyGenerator) Option {
	return func(c *Cached) {
		c.keys = g
	}
}

// WithRecorder reports hits, misses and writes to r.
func WithRecorder(r Recorder) Option {
	return func(c *Cached) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithLogger sets the logger used for store failures and debug records.
func WithLogger(l *observability.Logger) Option {
	return func(c *Cached) {
		c.logger = l
	}
}

// New wraps next. A ttl of zero or less uses DefaultTTL.
func New(next generator.Generator, store Store, ttl time.Duration, opts ...Option) *Cached {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cached{
		next:     next,
		store:    store,
		keys:     NewKeyGenerator(""),
		ttl:      ttl,
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = observability.NewDiscardLogger()
	}
	c.logger = c.logger.WithFields("component", "cache")
	return c
}

// GenerateResponse returns a live cached result for req or calls the wrapped
// generator and caches its successful result.
func (c *Cached) GenerateResponse(ctx context.Context, req types.GenerationRequest) (string, error) {
	key := c.keys.Generate(req)
	log := c.logger.WithRequestID(ctx)

	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		// A broken store degrades to a miss.
		log.Warn("cache lookup failed", "error", err)
	}
	if found {
		c.hits.Add(1)
		c.recorder.RecordCacheHit()
		log.Debug("cache hit", "key", key)
		return string(data), nil
	}

	c.misses.Add(1)
	c.recorder.RecordCacheMiss()
	log.Debug("cache miss", "key", key)

	result, err := c.next.GenerateResponse(ctx, req)
	if err != nil {
		return "", err
	}

	if err := c.store.Set(ctx, key, []byte(result), c.ttl); err != nil {
		log.Warn("cache store failed", "error", err)
		return result, nil
	}
	c.sets.Add(1)
	c.recorder.RecordCacheSet()
	return result, nil
}

// StreamResponse passes the stream through uncached.
func (c *Cached) StreamResponse(ctx context.Context, prompt string, onToken generator.TokenFunc) error {
	return c.next.StreamResponse(ctx, prompt, onToken)
}

// Invalidate drops the cached result for req, if any.
func (c *Cached) Invalidate(ctx context.Context, req types.GenerationRequest) error {
	return c.store.Delete(ctx, c.keys.Generate(req))
}

// Stats returns cache statistics.
func (c *Cached) Stats() CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Hits:    hits,
		Misses:  misses,
		Sets:    c.sets.Load(),
		Items:   c.store.Len(),
		HitRate: hitRate,
	}
}

// Close closes the underlying store.
func (c *Cached) Close() error {
	return c.store.Close()
}
