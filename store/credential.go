package store

import (
	"context"
	"errors"
)

// ErrUsernameTaken is returned by CreateCredential when the username exists.
var ErrUsernameTaken = errors.New("username already registered")

// Credential is a username and bcrypt password hash pair.
type Credential struct {
	ID           int32
	Username     string
	PasswordHash string
	CreatedTs    int64
}

type FindCredential struct {
	ID       *int32
	Username *string
}

func (s *Store) CreateCredential(ctx context.Context, create *Credential) (*Credential, error) {
	return s.driver.CreateCredential(ctx, create)
}

func (s *Store) ListCredentials(ctx context.Context, find *FindCredential) ([]*Credential, error) {
	return s.driver.ListCredentials(ctx, find)
}

func (s *Store) GetCredential(ctx context.Context, find *FindCredential) (*Credential, error) {
	list, err := s.ListCredentials(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
