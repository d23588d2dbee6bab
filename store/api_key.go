package store

import "context"

// APIKey links a credential to its user record.
type APIKey struct {
	ID        int32
	Key       string
	AuthID    int32
	IsActive  bool
	CreatedTs int64
}

type FindAPIKey struct {
	ID       *int32
	Key      *string
	AuthID   *int32
	IsActive *bool
}

type UpdateAPIKey struct {
	ID       int32
	IsActive *bool
}

func (s *Store) CreateAPIKey(ctx context.Context, create *APIKey) (*APIKey, error) {
	return s.driver.CreateAPIKey(ctx, create)
}

func (s *Store) ListAPIKeys(ctx context.Context, find *FindAPIKey) ([]*APIKey, error) {
	return s.driver.ListAPIKeys(ctx, find)
}

func (s *Store) GetAPIKey(ctx context.Context, find *FindAPIKey) (*APIKey, error) {
	list, err := s.ListAPIKeys(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateAPIKey(ctx context.Context, update *UpdateAPIKey) (*APIKey, error) {
	return s.driver.UpdateAPIKey(ctx, update)
}

// DeactivateAPIKey marks a key inactive. Users behind an inactive key can no longer log in.
func (s *Store) DeactivateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	apiKey, err := s.GetAPIKey(ctx, &FindAPIKey{Key: &key})
	if err != nil || apiKey == nil {
		return nil, err
	}
	isActive := false
	return s.UpdateAPIKey(ctx, &UpdateAPIKey{ID: apiKey.ID, IsActive: &isActive})
}
