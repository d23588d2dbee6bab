package rag

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemoryDocumentStore is a process-local DocumentStore used when Redis is not configured.
type InMemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]MemoryDocument
}

func NewInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{docs: make(map[string]MemoryDocument)}
}

func (s *InMemoryDocumentStore) Create(_ context.Context, ownerID, text string, now time.Time) (*MemoryDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[ownerID]; ok {
		return nil, ErrDocumentExists
	}
	doc := MemoryDocument{
		ID:        "memory:" + ownerID,
		OwnerID:   ownerID,
		Text:      text,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	s.docs[ownerID] = doc
	return &doc, nil
}

func (s *InMemoryDocumentStore) Get(_ context.Context, ownerID string) (*MemoryDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[ownerID]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (s *InMemoryDocumentStore) Update(_ context.Context, ownerID, text string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[ownerID]
	if !ok {
		return fmt.Errorf("memory document not found for owner %s", ownerID)
	}
	doc.Text = text
	doc.UpdatedAt = now.UTC()
	s.docs[ownerID] = doc
	return nil
}

func (*InMemoryDocumentStore) Close() error {
	return nil
}
