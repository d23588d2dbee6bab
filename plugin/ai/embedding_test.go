package ai

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingServiceEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3}},
			},
		})
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(&EmbeddingConfig{Model: "text-embedding-3-small", Dimensions: 3, APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, 3, svc.Dimensions())

	vector, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)

	_, err = svc.EmbedBatch(context.Background(), nil)
	assert.Error(t, err)
}

func TestHashEmbeddingService(t *testing.T) {
	svc := NewHashEmbeddingService(64)
	ctx := context.Background()

	a1, err := svc.Embed(ctx, "the same text")
	require.NoError(t, err)
	a2, err := svc.Embed(ctx, "the same text")
	require.NoError(t, err)
	b, err := svc.Embed(ctx, "different text")
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)
	assert.Len(t, a1, 64)

	var norm float64
	for _, v := range a1 {
		norm += float64(v * v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4)

	batch, err := svc.EmbedBatch(ctx, []string{"x", "y"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}
