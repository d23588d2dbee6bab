package rag

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

// RedisConfig holds the Redis connection configuration.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	PoolSize     int
	MinIdleConns int
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		KeyPrefix:    "journey:",
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// RedisDocumentStore keeps the document text at <prefix>memory:<owner> and its
// timestamps in the hash <prefix>memory:<owner>:metadata.
type RedisDocumentStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisDocumentStore connects to Redis and verifies the connection.
func NewRedisDocumentStore(config *RedisConfig) (*RedisDocumentStore, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	slog.Info("Redis document store connected", slog.String("addr", config.Addr))

	return &RedisDocumentStore{
		client:    client,
		keyPrefix: config.KeyPrefix,
	}, nil
}

func (r *RedisDocumentStore) documentKey(ownerID string) string {
	return r.keyPrefix + "memory:" + ownerID
}

func (r *RedisDocumentStore) metadataKey(ownerID string) string {
	return r.documentKey(ownerID) + ":metadata"
}

func (r *RedisDocumentStore) Create(ctx context.Context, ownerID, text string, now time.Time) (*MemoryDocument, error) {
	key := r.documentKey(ownerID)
	created, err := r.client.SetNX(ctx, key, text, 0).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create memory document")
	}
	if !created {
		return nil, ErrDocumentExists
	}

	ts := now.UTC().Format(time.RFC3339Nano)
	if err := r.client.HSet(ctx, r.metadataKey(ownerID), fieldCreatedAt, ts, fieldUpdatedAt, ts).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to store memory metadata")
	}

	return &MemoryDocument{
		ID:        key,
		OwnerID:   ownerID,
		Text:      text,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

func (r *RedisDocumentStore) Get(ctx context.Context, ownerID string) (*MemoryDocument, error) {
	key := r.documentKey(ownerID)
	text, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get memory document")
	}

	metadata, err := r.client.HGetAll(ctx, r.metadataKey(ownerID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get memory metadata")
	}

	doc := &MemoryDocument{ID: key, OwnerID: ownerID, Text: text}
	doc.CreatedAt, _ = time.Parse(time.RFC3339Nano, metadata[fieldCreatedAt])
	doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, metadata[fieldUpdatedAt])
	return doc, nil
}

func (r *RedisDocumentStore) Update(ctx context.Context, ownerID, text string, now time.Time) error {
	key := r.documentKey(ownerID)
	// XX only overwrites an existing key.
	updated, err := r.client.SetXX(ctx, key, text, 0).Result()
	if err != nil {
		return errors.Wrap(err, "failed to update memory document")
	}
	if !updated {
		return errors.Errorf("memory document not found for owner %s", ownerID)
	}
	if err := r.client.HSet(ctx, r.metadataKey(ownerID), fieldUpdatedAt, now.UTC().Format(time.RFC3339Nano)).Err(); err != nil {
		return errors.Wrap(err, "failed to update memory metadata")
	}
	return nil
}

func (r *RedisDocumentStore) Close() error {
	return r.client.Close()
}
