package embed

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps an Embedder and counts how many texts reach the
// backend.
type countingEmbedder struct {
	Embedder
	mu    sync.Mutex
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Embedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.calls += len(texts)
	c.mu.Unlock()
	return c.Embedder.EmbedBatch(ctx, texts)
}

func (c *countingEmbedder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestCachedEmbedderAvoidsRecompute(t *testing.T) {
	counter := &countingEmbedder{Embedder: NewStaticEmbedder()}
	cached := NewCachedEmbedder(counter, 10)
	ctx := context.Background()

	first, err := cached.Embed(ctx, "repeated query")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "repeated query")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, counter.count())
}

func TestCachedEmbedderBatchPartialHits(t *testing.T) {
	counter := &countingEmbedder{Embedder: NewStaticEmbedder()}
	cached := NewCachedEmbedder(counter, 10)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "warm")
	require.NoError(t, err)

	batch, err := cached.EmbedBatch(ctx, []string{"warm", "cold one", "cold two"})
	require.NoError(t, err)
	require.Len(t, batch, 3)

	// Only the two misses hit the backend.
	assert.Equal(t, 3, counter.count())

	direct, err := NewStaticEmbedder().Embed(ctx, "cold one")
	require.NoError(t, err)
	assert.Equal(t, direct, batch[1])
}

func TestCachedEmbedderEviction(t *testing.T) {
	counter := &countingEmbedder{Embedder: NewStaticEmbedder()}
	cached := NewCachedEmbedder(counter, 1)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "a")
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "b")
	require.NoError(t, err)
	_, err = cached.Embed(ctx, "a")
	require.NoError(t, err)

	assert.Equal(t, 3, counter.count())
}

func TestCachedEmbedderPassthrough(t *testing.T) {
	cached := NewCachedEmbedder(NewStaticEmbedder(), 0)

	assert.Equal(t, StaticDimensions, cached.Dimensions())
	assert.Equal(t, "static-hash-v1", cached.ModelName())
	assert.True(t, cached.Available(context.Background()))
}
