package vector

import (
	"context"

	"github.com/AlessandroMondin/Journey/store"
)

// StoreService keeps points in the memory_vector table (PostgreSQL + pgvector).
type StoreService struct {
	store *store.Store
}

func NewStoreService(s *store.Store) *StoreService {
	return &StoreService{store: s}
}

func (s *StoreService) StoreEmbedding(ctx context.Context, point *Point) error {
	_, err := s.store.UpsertMemoryVector(ctx, &store.MemoryVector{
		ID:        point.ID,
		OwnerID:   point.OwnerID,
		Content:   point.Content,
		Metadata:  point.Metadata,
		Embedding: point.Vector,
	})
	return err
}

func (s *StoreService) SearchSimilar(ctx context.Context, ownerID string, vector []float32, limit int) ([]VectorResult, error) {
	hits, err := s.store.SearchMemoryVectors(ctx, &store.SearchMemoryVector{
		OwnerID: ownerID,
		Vector:  vector,
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	list := make([]VectorResult, 0, len(hits))
	for _, hit := range hits {
		list = append(list, VectorResult{
			DocID:    hit.Vector.ID,
			Content:  hit.Vector.Content,
			Score:    hit.Score,
			Metadata: hit.Vector.Metadata,
		})
	}
	return list, nil
}

func (s *StoreService) DeleteOwner(ctx context.Context, ownerID string) (int, error) {
	deleted, err := s.store.DeleteMemoryVectors(ctx, &store.DeleteMemoryVector{OwnerID: &ownerID})
	return int(deleted), err
}
