// Package cache memoizes embeddings of repeated texts.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/AlessandroMondin/Journey/plugin/ai"
	storecache "github.com/AlessandroMondin/Journey/store/cache"
)

// DefaultTTL is how long an embedding stays cached.
const DefaultTTL = 30 * time.Minute

// EmbeddingService caches the vectors of an underlying ai.EmbeddingService.
type EmbeddingService struct {
	next  ai.EmbeddingService
	cache *storecache.Cache
}

var _ ai.EmbeddingService = (*EmbeddingService)(nil)

// NewEmbeddingService wraps next with a cache of at most maxItems vectors.
func NewEmbeddingService(next ai.EmbeddingService, maxItems int64) *EmbeddingService {
	return &EmbeddingService{
		next:  next,
		cache: storecache.New(storecache.Config{DefaultTTL: DefaultTTL, MaxItems: maxItems}),
	}
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch only sends the texts that are not cached yet.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if cached, ok := s.cache.Get(key(text)); ok {
			vectors[i] = cached.([]float32)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return vectors, nil
	}

	fresh, err := s.next.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, v := range fresh {
		if j >= len(missingIdx) {
			break
		}
		vectors[missingIdx[j]] = v
		s.cache.Set(key(missing[j]), v)
	}
	return vectors, nil
}

func (s *EmbeddingService) Dimensions() int {
	return s.next.Dimensions()
}

// Close releases the cache.
func (s *EmbeddingService) Close() {
	s.cache.Close()
}

func key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + hex.EncodeToString(sum[:])
}
