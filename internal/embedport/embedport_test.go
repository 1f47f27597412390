package embedport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "hierarchical document index")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "hierarchical document index")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 64)

	v3, err := e.Embed(ctx, "typed knowledge graph")
	require.NoError(t, err)
	assert.NotEqual(t, v1, v3)
}

func TestMockEmbedderBatchMatchesSingle(t *testing.T) {
	e := NewMockEmbedder(32)
	ctx := context.Background()
	texts := []string{"alpha section", "beta section", "gamma section"}

	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))
	for i, text := range texts {
		single, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestFactoryMock(t *testing.T) {
	e, err := Factory(Config{Provider: ProviderMock, Dimensions: 128})
	require.NoError(t, err)
	assert.Equal(t, 128, e.Dimensions())
	assert.True(t, e.Available(context.Background()))
}

func TestFactoryUnknownProvider(t *testing.T) {
	_, err := Factory(Config{Provider: "nonsense"})
	require.Error(t, err)
}

func TestFactoryHTTPRequiresEndpoint(t *testing.T) {
	_, err := Factory(Config{Provider: ProviderOllamaLike})
	require.Error(t, err)
}

func TestWithCacheMemoizes(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: *NewMockEmbedder(16)}
	e := WithCache(inner, 10)

	_, err := e.Embed(context.Background(), "same text")
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "same text")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
}

type countingEmbedder struct {
	MockEmbedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.MockEmbedder.Embed(ctx, text)
}
