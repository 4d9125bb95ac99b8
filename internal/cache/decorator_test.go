package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/llmcore/internal/metrics"
	llmerrors "github.com/blueberrycongee/llmcore/pkg/errors"
	"github.com/blueberrycongee/llmcore/pkg/generator"
	"github.com/blueberrycongee/llmcore/pkg/types"
)

type countingGenerator struct {
	calls   atomic.Int64
	streams atomic.Int64
	reply   func(req types.GenerationRequest) (string, error)
}

func (g *countingGenerator) GenerateResponse(_ context.Context, req types.GenerationRequest) (string, error) {
	g.calls.Add(1)
	return g.reply(req)
}

func (g *countingGenerator) StreamResponse(_ context.Context, prompt string, onToken generator.TokenFunc) error {
	g.streams.Add(1)
	return onToken(prompt)
}

func echo(req types.GenerationRequest) (string, error) {
	return "reply to " + req.Prompt, nil
}

type failingStore struct {
	*MemoryStore
	getErr error
	setErr error
}

func (s *failingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *failingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.MemoryStore.Set(ctx, key, value, ttl)
}

func TestCached_HitSkipsWrappedGenerator(t *testing.T) {
	inner := &countingGenerator{reply: echo}
	c := New(inner, NewMemoryStore(time.Minute), time.Minute)
	ctx := context.Background()
	req := types.GenerationRequest{Prompt: "Hello"}

	first, err := c.GenerateResponse(ctx, req)
	require.NoError(t, err)
	second, err := c.GenerateResponse(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "reply to Hello", first)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), inner.calls.Load())

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, 1, stats.Items)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestCached_SystemPromptSeparatesEntries(t *testing.T) {
	inner := &countingGenerator{reply: func(req types.GenerationRequest) (string, error) {
		return req.Prompt + "/" + req.SystemPrompt, nil
	}}
	c := New(inner, NewMemoryStore(time.Minute), time.Minute)
	ctx := context.Background()

	a, _ := c.GenerateResponse(ctx, types.GenerationRequest{Prompt: "Hello"})
	b, _ := c.GenerateResponse(ctx, types.GenerationRequest{Prompt: "Hello", SystemPrompt: "pirate"})

	assert.Equal(t, "Hello/", a)
	assert.Equal(t, "Hello/pirate", b)
	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestCached_InvalidUTF8PromptsAreDistinct(t *testing.T) {
	inner := &countingGenerator{reply: echo}
	c := New(inner, NewMemoryStore(time.Minute), time.Minute)
	ctx := context.Background()

	first, err := c.GenerateResponse(ctx, types.GenerationRequest{Prompt: "translate \xff"})
	require.NoError(t, err)
	second, err := c.GenerateResponse(ctx, types.GenerationRequest{Prompt: "translate \xfe"})
	require.NoError(t, err)

	assert.Equal(t, "reply to translate \xff", first)
	assert.Equal(t, "reply to translate \xfe", second)
	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestCached_FailureNotCached(t *testing.T) {
	cause := llmerrors.NewTransportError("ollama", "llama2", errors.New("connection refused"))
	fail := true
	inner := &countingGenerator{reply: func(req types.GenerationRequest) (string, error) {
		if fail {
			return "", cause
		}
		return echo(req)
	}}
	store := NewMemoryStore(time.Minute)
	c := New(inner, store, time.Minute)
	ctx := context.Background()
	req := types.GenerationRequest{Prompt: "X"}

	_, err := c.GenerateResponse(ctx, req)
	assert.Same(t, cause, err)
	assert.Zero(t, store.Len())

	fail = false
	got, err := c.GenerateResponse(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "reply to X", got)
	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestCached_EntryExpires(t *testing.T) {
	inner := &countingGenerator{reply: echo}
	c := New(inner, NewMemoryStore(time.Hour), 30*time.Millisecond)
	ctx := context.Background()
	req := types.GenerationRequest{Prompt: "Hello"}

	_, err := c.GenerateResponse(ctx, req)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	_, err = c.GenerateResponse(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestCached_EmptyResultIsCached(t *testing.T) {
	inner := &countingGenerator{reply: func(types.GenerationRequest) (string, error) { return "", nil }}
	c := New(inner, NewMemoryStore(time.Minute), time.Minute)
	ctx := context.Background()

	_, _ = c.GenerateResponse(ctx, types.GenerationRequest{Prompt: "silence"})
	_, _ = c.GenerateResponse(ctx, types.GenerationRequest{Prompt: "silence"})

	assert.Equal(t, int64(1), inner.calls.Load())
}

func TestCached_StreamBypassesCache(t *testing.T) {
	inner := &countingGenerator{reply: echo}
	store := NewMemoryStore(time.Minute)
	c := New(inner, store, time.Minute)

	for i := 0; i < 2; i++ {
		var got []string
		err := c.StreamResponse(context.Background(), "Hello", func(tok string) error {
			got = append(got, tok)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Hello"}, got)
	}

	assert.Equal(t, int64(2), inner.streams.Load())
	assert.Zero(t, store.Len())
}

func TestCached_StoreErrorsDegrade(t *testing.T) {
	inner := &countingGenerator{reply: echo}
	store := &failingStore{
		MemoryStore: NewMemoryStore(time.Minute),
		getErr:      errors.New("get broken"),
		setErr:      errors.New("set broken"),
	}
	c := New(inner, store, time.Minute)

	got, err := c.GenerateResponse(context.Background(), types.GenerationRequest{Prompt: "Hello"})

	require.NoError(t, err)
	assert.Equal(t, "reply to Hello", got)
	assert.Zero(t, c.Stats().Sets)
}

func TestCached_ConcurrentMissesAreNotCoalesced(t *testing.T) {
	release := make(chan struct{})
	var entered sync.WaitGroup
	entered.Add(2)
	inner := &countingGenerator{reply: func(req types.GenerationRequest) (string, error) {
		entered.Done()
		<-release
		return echo(req)
	}}
	c := New(inner, NewMemoryStore(time.Minute), time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.GenerateResponse(context.Background(), types.GenerationRequest{Prompt: "Hello"})
		}()
	}
	entered.Wait()
	close(release)
	wg.Wait()

	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestCached_Invalidate(t *testing.T) {
	inner := &countingGenerator{reply: echo}
	c := New(inner, NewMemoryStore(time.Minute), time.Minute)
	ctx := context.Background()
	req := types.GenerationRequest{Prompt: "Hello"}

	_, _ = c.GenerateResponse(ctx, req)
	require.NoError(t, c.Invalidate(ctx, req))
	_, _ = c.GenerateResponse(ctx, req)

	assert.Equal(t, int64(2), inner.calls.Load())
	require.NoError(t, c.Close())
}

func TestCached_RecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := New(&countingGenerator{reply: echo}, NewMemoryStore(time.Minute), time.Minute, WithRecorder(m))
	ctx := context.Background()

	_, _ = c.GenerateResponse(ctx, types.GenerationRequest{Prompt: "Hello"})
	_, _ = c.GenerateResponse(ctx, types.GenerationRequest{Prompt: "Hello"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheSets))
}

func TestNew_DefaultTTL(t *testing.T) {
	c := New(&countingGenerator{reply: echo}, NewMemoryStore(time.Minute), 0)
	assert.Equal(t, DefaultTTL, c.ttl)
}
