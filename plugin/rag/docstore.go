// Package rag keeps a per-owner memory document and a vector index of past
// conversations, independent of the agent memory blob.
package rag

import (
	"context"
	"errors"
	"time"
)

// ErrDocumentExists is returned when creating a document that already exists.
var ErrDocumentExists = errors.New("memory document already exists")

// MemoryDocument is the plain-text memory of one owner.
type MemoryDocument struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentStore persists memory documents.
type DocumentStore interface {
	// Create stores a new document; ErrDocumentExists if one exists.
	Create(ctx context.Context, ownerID, text string, now time.Time) (*MemoryDocument, error)
	// Get returns nil, nil when the owner has no document.
	Get(ctx context.Context, ownerID string) (*MemoryDocument, error)
	// Update replaces the text of an existing document.
	Update(ctx context.Context, ownerID, text string, now time.Time) error
	Close() error
}
