package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of BlobStore and KVStore.
// Used by tests and dev mode; nothing survives a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	kvs   map[string]kvEntry

	now func() time.Time
}

type kvEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
		kvs:   make(map[string]kvEntry),
		now:   time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.now = now
}

// Get retrieves a blob by key
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put stores a blob
func (s *MemoryStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.blobs[key] = stored
	return nil
}

// List returns up to limit blob keys matching the prefix, sorted
func (s *MemoryStore) List(ctx context.Context, prefix string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

// Delete removes a blob
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// KV returns a KVStore view of this store.
func (s *MemoryStore) KV() KVStore {
	return &memoryKV{store: s}
}

// memoryKV adapts MemoryStore to the KVStore interface
type memoryKV struct {
	store *MemoryStore
}

func (kv *memoryKV) Get(ctx context.Context, key string) (string, error) {
	kv.store.mu.RLock()
	defer kv.store.mu.RUnlock()

	entry, ok := kv.store.kvs[key]
	if !ok {
		return "", ErrNotFound
	}
	if !entry.expiresAt.IsZero() && kv.store.now().After(entry.expiresAt) {
		return "", ErrNotFound
	}
	return entry.value, nil
}

func (kv *memoryKV) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	kv.store.mu.Lock()
	defer kv.store.mu.Unlock()

	entry := kvEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = kv.store.now().Add(ttl)
	}
	kv.store.kvs[key] = entry
	return nil
}

func (kv *memoryKV) List(ctx context.Context, prefix string, limit int) ([]string, error) {
	kv.store.mu.RLock()
	defer kv.store.mu.RUnlock()

	now := kv.store.now()
	var keys []string
	for key, entry := range kv.store.kvs {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

func (kv *memoryKV) Delete(ctx context.Context, key string) error {
	kv.store.mu.Lock()
	defer kv.store.mu.Unlock()
	delete(kv.store.kvs, key)
	return nil
}
