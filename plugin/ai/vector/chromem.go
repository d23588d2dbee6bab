package vector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemService keeps points in an embedded chromem-go database,
// one collection per owner.
type ChromemService struct {
	db *chromem.DB
	mu sync.Mutex
}

// NewChromemService creates an in-memory store, or a persistent one when path is set.
func NewChromemService(path string) (*ChromemService, error) {
	if path == "" {
		return &ChromemService{db: chromem.NewDB()}, nil
	}
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open chromem db: %w", err)
	}
	return &ChromemService{db: db}, nil
}

func collectionName(ownerID string) string {
	return "owner_" + ownerID
}

func (s *ChromemService) collection(ownerID string) (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Embeddings are always supplied by the caller, so no embedding func is set.
	col, err := s.db.GetOrCreateCollection(collectionName(ownerID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return col, nil
}

func (s *ChromemService) StoreEmbedding(ctx context.Context, point *Point) error {
	if point.OwnerID == "" {
		return fmt.Errorf("owner id is required")
	}
	col, err := s.collection(point.OwnerID)
	if err != nil {
		return err
	}

	metadata := map[string]string{"owner_id": point.OwnerID}
	for k, v := range point.Metadata {
		metadata[k] = v
	}
	// AddDocument does not replace, so drop any previous version first.
	if err := col.Delete(ctx, nil, nil, point.ID); err != nil {
		return fmt.Errorf("delete previous point: %w", err)
	}
	if err := col.AddDocument(ctx, chromem.Document{
		ID:        point.ID,
		Content:   point.Content,
		Embedding: point.Vector,
		Metadata:  metadata,
	}); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

func (s *ChromemService) SearchSimilar(ctx context.Context, ownerID string, vector []float32, limit int) ([]VectorResult, error) {
	col, err := s.collection(ownerID)
	if err != nil {
		return nil, err
	}
	// chromem rejects nResults larger than the collection.
	if count := col.Count(); limit > count {
		limit = count
	}
	if limit <= 0 {
		return []VectorResult{}, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, limit, map[string]string{"owner_id": ownerID}, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	list := make([]VectorResult, 0, len(results))
	for _, result := range results {
		list = append(list, VectorResult{
			DocID:    result.ID,
			Content:  result.Content,
			Score:    result.Similarity,
			Metadata: result.Metadata,
		})
	}
	return list, nil
}

func (s *ChromemService) DeleteOwner(_ context.Context, ownerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.db.GetCollection(collectionName(ownerID), nil)
	if col == nil {
		return 0, nil
	}
	count := col.Count()
	if err := s.db.DeleteCollection(collectionName(ownerID)); err != nil {
		return 0, fmt.Errorf("delete collection: %w", err)
	}
	slog.Debug("deleted vector collection", slog.String("owner", ownerID), slog.Int("points", count))
	return count, nil
}
