// Package vector stores embedded memory fragments and answers owner-scoped
// similarity queries.
package vector

import "context"

// VectorService defines the vector retrieval service interface.
// Every point belongs to exactly one owner; queries never cross owners.
type VectorService interface {
	// StoreEmbedding upserts a point.
	StoreEmbedding(ctx context.Context, point *Point) error

	// SearchSimilar returns up to limit points of ownerID, most similar first.
	SearchSimilar(ctx context.Context, ownerID string, vector []float32, limit int) ([]VectorResult, error)

	// DeleteOwner removes all points of ownerID and returns how many were removed.
	DeleteOwner(ctx context.Context, ownerID string) (int, error)
}

// Point is a stored embedding.
type Point struct {
	ID       string
	OwnerID  string
	Content  string
	Vector   []float32
	Metadata map[string]string
}

// VectorResult represents a vector search result.
type VectorResult struct {
	DocID    string            `json:"id"`
	Content  string            `json:"content"`
	Score    float32           `json:"score"` // cosine similarity, higher is closer
	Metadata map[string]string `json:"metadata"`
}
