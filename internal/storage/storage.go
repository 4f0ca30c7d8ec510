// Package storage abstracts the durable stores backing the cache: a
// blob store for full cache entries and a key/value store for the
// secondary index and metrics snapshots. Both are eventually consistent
// and may independently expire entries.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist in a store.
var ErrNotFound = errors.New("storage: key not found")

// BlobStore holds opaque payloads keyed by string. Writes are full
// replacements; there is no partial update.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	List(ctx context.Context, prefix string, limit int) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// KVStore holds short string values with optional per-entry expiry.
// A ttl of zero means the entry never expires.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	List(ctx context.Context, prefix string, limit int) ([]string, error)
	Delete(ctx context.Context, key string) error
}
