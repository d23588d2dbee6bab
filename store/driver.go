package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// RunInTx runs fn with a driver bound to a single transaction.
	// The transaction is committed when fn returns nil and rolled back otherwise.
	RunInTx(ctx context.Context, fn func(Driver) error) error

	// SystemSetting model related methods.
	UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error)
	ListSystemSettings(ctx context.Context, find *FindSystemSetting) ([]*SystemSetting, error)

	// Credential model related methods.
	CreateCredential(ctx context.Context, create *Credential) (*Credential, error)
	ListCredentials(ctx context.Context, find *FindCredential) ([]*Credential, error)

	// APIKey model related methods.
	CreateAPIKey(ctx context.Context, create *APIKey) (*APIKey, error)
	ListAPIKeys(ctx context.Context, find *FindAPIKey) ([]*APIKey, error)
	UpdateAPIKey(ctx context.Context, update *UpdateAPIKey) (*APIKey, error)

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)

	// Agent model related methods.
	CreateAgent(ctx context.Context, create *Agent) (*Agent, error)
	ListAgents(ctx context.Context, find *FindAgent) ([]*Agent, error)
	UpdateAgent(ctx context.Context, update *UpdateAgent) (*Agent, error)

	// MemoryEntry model related methods.
	CreateMemoryEntry(ctx context.Context, create *MemoryEntry) (*MemoryEntry, error)
	ListMemoryEntries(ctx context.Context, find *FindMemoryEntry) ([]*MemoryEntry, error)
	UpdateMemoryEntry(ctx context.Context, update *UpdateMemoryEntry) (*MemoryEntry, error)

	// Document model related methods.
	CreateDocument(ctx context.Context, create *Document) (*Document, error)
	ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error)

	// MemoryVector model related methods.
	// Drivers without a vector extension return ErrVectorNotSupported.
	UpsertMemoryVector(ctx context.Context, upsert *MemoryVector) (*MemoryVector, error)
	SearchMemoryVectors(ctx context.Context, search *SearchMemoryVector) ([]*MemoryVectorWithScore, error)
	DeleteMemoryVectors(ctx context.Context, delete *DeleteMemoryVector) (int64, error)
}
