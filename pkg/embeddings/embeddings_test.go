package embeddings

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingClient records how many provider calls were made
type countingClient struct {
	queryCalls int
	docCalls   int
}

func (c *countingClient) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	c.queryCalls++
	return []float32{1, 0, 0}, nil
}

func (c *countingClient) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	c.docCalls++
	out := make([][]float32, len(documents))
	for i := range documents {
		out[i] = []float32{0, 1, 0}
	}
	return out, nil
}

func TestNoopClient(t *testing.T) {
	client := NewNoopClient()

	emb, err := client.EmbedQuery(context.Background(), "test")
	assert.NoError(t, err)
	assert.Nil(t, emb)

	embs, err := client.EmbedDocuments(context.Background(), []string{"a", "b"})
	assert.NoError(t, err)
	assert.Nil(t, embs)
}

func TestCache(t *testing.T) {
	cache := NewCache()

	_, ok := cache.Get("SUPPORTS")
	assert.False(t, ok)

	cache.Set("SUPPORTS", []float32{1, 2, 3})
	emb, ok := cache.Get("SUPPORTS")
	assert.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, emb)
	assert.Equal(t, 1, cache.Len())
}

func TestServiceCachesQueries(t *testing.T) {
	client := &countingClient{}
	svc := NewServiceWithClient(client, slog.Default())

	ctx := context.Background()
	first, err := svc.EmbedQuery(ctx, "ENABLES")
	require.NoError(t, err)

	second, err := svc.EmbedQuery(ctx, "ENABLES")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.queryCalls, "second lookup should hit the cache")
	assert.Equal(t, 1, svc.CacheSize())
}

func TestServiceBatchOnlyEmbedsMisses(t *testing.T) {
	client := &countingClient{}
	svc := NewServiceWithClient(client, slog.Default())
	ctx := context.Background()

	// Warm one entry
	_, err := svc.EmbedQuery(ctx, "CAUSES")
	require.NoError(t, err)

	embs, err := svc.EmbedDocuments(ctx, []string{"CAUSES", "PREVENTS"})
	require.NoError(t, err)
	require.Len(t, embs, 2)

	// CAUSES came from the cache, PREVENTS from the provider
	assert.Equal(t, []float32{1, 0, 0}, embs[0])
	assert.Equal(t, []float32{0, 1, 0}, embs[1])
	assert.Equal(t, 1, client.docCalls)
	assert.Equal(t, 2, svc.CacheSize())

	// Fully-cached batch makes no provider call
	_, err = svc.EmbedDocuments(ctx, []string{"CAUSES", "PREVENTS"})
	require.NoError(t, err)
	assert.Equal(t, 1, client.docCalls)
}

func TestNoopServiceDisabled(t *testing.T) {
	svc := NewNoopService(slog.Default())
	assert.False(t, svc.IsEnabled())

	emb, err := svc.EmbedQuery(context.Background(), "test")
	assert.NoError(t, err)
	assert.Nil(t, emb)
}
