package store

import "context"

// MemoryEntry is one dated snapshot in a user's memory ledger.
type MemoryEntry struct {
	ID        int32
	MemoryID  string
	UserID    string
	AgentID   string
	Text      string
	Mood      string
	CreatedTs int64
	UpdatedTs int64
}

type FindMemoryEntry struct {
	MemoryID *string
	UserID   *string
	AgentID  *string
	// CreatedTsAfter keeps entries created at or after the given unix time.
	CreatedTsAfter *int64
	// IDAfter keeps entries with a larger row id and orders by id.
	IDAfter *int32
	// CorrectedAfter keeps entries edited after creation whose updated_ts is
	// larger than the given unix time, ordered by updated_ts.
	CorrectedAfter *int64
	Limit          int
}

type UpdateMemoryEntry struct {
	MemoryID string
	// AgentID scopes the update to entries of one agent when set.
	AgentID *string

	Text *string
	Mood *string
}

func (s *Store) CreateMemoryEntry(ctx context.Context, create *MemoryEntry) (*MemoryEntry, error) {
	return s.driver.CreateMemoryEntry(ctx, create)
}

// ListMemoryEntries returns entries ordered by creation time, oldest first.
func (s *Store) ListMemoryEntries(ctx context.Context, find *FindMemoryEntry) ([]*MemoryEntry, error) {
	return s.driver.ListMemoryEntries(ctx, find)
}

func (s *Store) GetMemoryEntry(ctx context.Context, find *FindMemoryEntry) (*MemoryEntry, error) {
	list, err := s.ListMemoryEntries(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateMemoryEntry returns nil when no entry matched.
func (s *Store) UpdateMemoryEntry(ctx context.Context, update *UpdateMemoryEntry) (*MemoryEntry, error) {
	return s.driver.UpdateMemoryEntry(ctx, update)
}
