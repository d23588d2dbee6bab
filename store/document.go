package store

import "context"

// Document is a knowledge document attached to an agent.
type Document struct {
	ID         int32
	DocumentID string
	AgentID    string
	Content    string
	// Metadata is a JSON object.
	Metadata  string
	CreatedTs int64
}

type FindDocument struct {
	DocumentID *string
	AgentID    *string
}

func (s *Store) CreateDocument(ctx context.Context, create *Document) (*Document, error) {
	return s.driver.CreateDocument(ctx, create)
}

func (s *Store) ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error) {
	return s.driver.ListDocuments(ctx, find)
}
