// Package index maintains the secondary index: a durable key/value
// mapping from semantic identifiers (transaction signature, account
// address, mint address, content hash) to primary cache keys. Index
// writes are best-effort; the primary store is the source of truth and
// an index entry may outlive or predate the payload it points to.
package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solcache/internal/storage"
)

// Namespace identifies the semantic key family of an index entry.
type Namespace string

const (
	Tx      Namespace = "tx"
	Account Namespace = "acct"
	Mint    Namespace = "mint"
	Hash    Namespace = "hash"
)

// Per-namespace entry expiry. Independent of the TTL of the cache
// entry the mapping points to: historical tx signatures rarely change,
// account state mappings go stale quickly.
var namespaceTTL = map[Namespace]time.Duration{
	Tx:      7 * 24 * time.Hour,
	Account: 10 * time.Minute,
	Mint:    time.Hour,
	Hash:    30 * 24 * time.Hour,
}

// Index wraps the durable KV store with namespaced, best-effort writes.
type Index struct {
	kv     storage.KVStore
	logger zerolog.Logger
}

// New creates an Index on the given KV store
func New(kv storage.KVStore, logger zerolog.Logger) *Index {
	return &Index{
		kv:     kv,
		logger: logger.With().Str("component", "index").Logger(),
	}
}

// entryKey builds the namespaced KV key
func entryKey(ns Namespace, key string) string {
	return string(ns) + ":" + key
}

// Get returns the primary cache key mapped to the semantic key, if any.
func (ix *Index) Get(ctx context.Context, ns Namespace, key string) (string, bool) {
	primaryKey, err := ix.kv.Get(ctx, entryKey(ns, key))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			ix.logger.Warn().Err(err).Str("namespace", string(ns)).Msg("index read failed")
		}
		return "", false
	}
	return primaryKey, true
}

// Put records a semantic key -> primary key mapping. Failures (invalid
// address, store error) are logged and swallowed: an index write must
// never fail the request that triggered it.
func (ix *Index) Put(ctx context.Context, ns Namespace, key, primaryKey string) {
	if err := ix.put(ctx, ns, key, primaryKey); err != nil {
		ix.logger.Warn().
			Err(err).
			Str("namespace", string(ns)).
			Str("key", key).
			Msg("index write failed")
	}
}

func (ix *Index) put(ctx context.Context, ns Namespace, key, primaryKey string) error {
	if key == "" {
		return fmt.Errorf("empty index key")
	}
	// Address-shaped namespaces are validated; a malformed address must
	// not poison the index.
	if ns == Account || ns == Mint {
		if !validAddress(key) {
			return fmt.Errorf("invalid address: %s", key)
		}
	}
	return ix.kv.Put(ctx, entryKey(ns, key), primaryKey, namespaceTTL[ns])
}

// ListKeys returns up to limit index keys matching the prefix.
func (ix *Index) ListKeys(ctx context.Context, prefix string, limit int) ([]string, error) {
	return ix.kv.List(ctx, prefix, limit)
}

// Delete removes an index entry by its full key name.
func (ix *Index) Delete(ctx context.Context, key string) error {
	return ix.kv.Delete(ctx, key)
}

// base58Alphabet is the Bitcoin alphabet used by Solana addresses.
var base58Alphabet = func() [256]bool {
	var ok [256]bool
	for _, c := range "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz" {
		ok[c] = true
	}
	return ok
}()

// validAddress checks that s looks like a base58-encoded 32-byte key.
func validAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !base58Alphabet[s[i]] {
			return false
		}
	}
	return true
}
