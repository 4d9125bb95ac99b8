package cache

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process Store backed by go-cache. Expired entries are
// hidden on read and removed by a janitor running every 2*defaultTTL.
// Contents do not survive a restart.
type MemoryStore struct {
	items  *gocache.Cache
	closed atomic.Bool
}

// NewMemoryStore creates a MemoryStore whose entries default to defaultTTL.
func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		items: gocache.New(defaultTTL, defaultTTL*2),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := s.items.Get(key)
	if !found {
		return nil, false, nil
	}
	data, ok := val.([]byte)
	if !ok {
		return nil, false, nil
	}
	return data, true, nil
}

// Set implements Store. The value is copied.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.items.Set(key, stored, ttl)
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.items.Delete(key)
	return nil
}

// Flush implements Store.
func (s *MemoryStore) Flush(context.Context) error {
	s.items.Flush()
	return nil
}

// Len implements Store.
func (s *MemoryStore) Len() int {
	return s.items.ItemCount()
}

// Close drops all entries. The janitor goroutine stops once the store is
// garbage collected.
func (s *MemoryStore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.items.Flush()
	}
	return nil
}
