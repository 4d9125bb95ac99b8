// Package cache provides the response cache decorator of the generation chain
// and the store it keeps entries in.
package cache

import (
	"context"
	"time"

	"github.com/blueberrycongee/llmcore/pkg/types"
)

// CacheStats holds cache statistics for monitoring.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Items   int     `json:"items"`
	HitRate float64 `json:"hit_rate"`
}

// Store keeps cached values with a per-entry TTL. Implementations must be safe
// for concurrent use and must never return an expired entry.
type Store interface {
	// Get retrieves a value. found is false for absent and expired keys.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key, replacing any previous entry.
	// A ttl of 0 uses the store's default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key from the store.
	Delete(ctx context.Context, key string) error

	// Flush removes every entry.
	Flush(ctx context.Context) error

	// Len returns the number of entries, possibly including expired ones not
	// yet collected.
	Len() int

	// Close releases any resources held by the store.
	Close() error
}

// KeyGenerator derives the cache key of a request.
type KeyGenerator interface {
	Generate(req types.GenerationRequest) string
}

// Recorder receives cache events, typically a *metrics.Metrics.
type Recorder interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordCacheSet()
}

type noopRecorder struct{}

func (noopRecorder) RecordCacheHit()  {}
func (noopRecorder) RecordCacheMiss() {}
func (noopRecorder) RecordCacheSet()  {}
