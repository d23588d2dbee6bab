package store

import (
	"context"
	"errors"
)

// ErrVectorNotSupported is returned by drivers without vector search.
var ErrVectorNotSupported = errors.New("vector search is not supported by this driver; use postgres with pgvector")

// MemoryVector is an embedded memory fragment owned by a user.
type MemoryVector struct {
	ID        string
	OwnerID   string
	Content   string
	Metadata  map[string]string
	Embedding []float32
	CreatedTs int64
}

// MemoryVectorWithScore is a search hit. Score is cosine similarity, higher is closer.
type MemoryVectorWithScore struct {
	Vector *MemoryVector
	Score  float32
}

type SearchMemoryVector struct {
	OwnerID string
	Vector  []float32
	Limit   int
}

type DeleteMemoryVector struct {
	ID      *string
	OwnerID *string
}

func (s *Store) UpsertMemoryVector(ctx context.Context, upsert *MemoryVector) (*MemoryVector, error) {
	return s.driver.UpsertMemoryVector(ctx, upsert)
}

func (s *Store) SearchMemoryVectors(ctx context.Context, search *SearchMemoryVector) ([]*MemoryVectorWithScore, error) {
	if search.Limit <= 0 {
		search.Limit = 5
	}
	return s.driver.SearchMemoryVectors(ctx, search)
}

func (s *Store) DeleteMemoryVectors(ctx context.Context, delete *DeleteMemoryVector) (int64, error) {
	return s.driver.DeleteMemoryVectors(ctx, delete)
}
