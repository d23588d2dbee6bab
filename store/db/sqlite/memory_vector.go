package sqlite

import (
	"context"

	"github.com/AlessandroMondin/Journey/store"
)

// ============================================================================
// MEMORY VECTORS - NOT SUPPORTED IN SQLITE
// ============================================================================

func (*DB) UpsertMemoryVector(context.Context, *store.MemoryVector) (*store.MemoryVector, error) {
	return nil, store.ErrVectorNotSupported
}

func (*DB) SearchMemoryVectors(context.Context, *store.SearchMemoryVector) ([]*store.MemoryVectorWithScore, error) {
	return nil, store.ErrVectorNotSupported
}

func (*DB) DeleteMemoryVectors(context.Context, *store.DeleteMemoryVector) (int64, error) {
	return 0, store.ErrVectorNotSupported
}
