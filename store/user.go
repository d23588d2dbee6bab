package store

import (
	"context"

	"github.com/pkg/errors"
)

// User is the profile record of a registered account.
// UserID is the public identifier ("user_<uuid>").
type User struct {
	ID        int32
	UserID    string
	APIKeyID  int32
	Name      string
	Email     string
	CreatedTs int64
}

type FindUser struct {
	ID       *int32
	UserID   *string
	APIKeyID *int32
}

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	user, err := s.driver.CreateUser(ctx, create)
	if err != nil {
		return nil, err
	}
	if !s.inTx {
		s.userCache.Set(user.UserID, user)
	}
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	list, err := s.driver.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if !s.inTx {
		for _, user := range list {
			s.userCache.Set(user.UserID, user)
		}
	}
	return list, nil
}

func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	if find.UserID != nil && !s.inTx {
		if cached, ok := s.userCache.Get(*find.UserID); ok {
			return cached.(*User), nil
		}
	}

	list, err := s.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// GetUserByUsername follows credential -> api key -> user.
// It returns nil when any link is missing or the api key is inactive.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	credential, err := s.GetCredential(ctx, &FindCredential{Username: &username})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get credential")
	}
	if credential == nil {
		return nil, nil
	}
	isActive := true
	apiKey, err := s.GetAPIKey(ctx, &FindAPIKey{AuthID: &credential.ID, IsActive: &isActive})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get api key")
	}
	if apiKey == nil {
		return nil, nil
	}
	return s.GetUser(ctx, &FindUser{APIKeyID: &apiKey.ID})
}
