package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements BlobStore and KVStore on a single Redis
// connection. Blob entries and index entries live in one keyspace;
// callers keep them apart with their key prefixes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore and verifies connectivity.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Get retrieves a blob by key
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

// Put stores a blob. Blob entries carry their expiry inside their
// metadata and are swept explicitly, so no store-level TTL is set.
func (s *RedisStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// List returns up to limit keys matching the prefix
func (s *RedisStore) List(ctx context.Context, prefix string, limit int) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", int64(limit)).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if limit > 0 && len(keys) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan failed: %w", err)
	}
	return keys, nil
}

// Delete removes a key
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// GetString retrieves a string value by key
func (s *RedisStore) GetString(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return val, nil
}

// PutString stores a string value with the given ttl (0 = no expiry)
func (s *RedisStore) PutString(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Close closes the underlying Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// KV returns a KVStore view of this store.
func (s *RedisStore) KV() KVStore {
	return &redisKV{store: s}
}

// redisKV adapts RedisStore to the KVStore interface
type redisKV struct {
	store *RedisStore
}

func (kv *redisKV) Get(ctx context.Context, key string) (string, error) {
	return kv.store.GetString(ctx, key)
}

func (kv *redisKV) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return kv.store.PutString(ctx, key, value, ttl)
}

func (kv *redisKV) List(ctx context.Context, prefix string, limit int) ([]string, error) {
	return kv.store.List(ctx, prefix, limit)
}

func (kv *redisKV) Delete(ctx context.Context, key string) error {
	return kv.store.Delete(ctx, key)
}
