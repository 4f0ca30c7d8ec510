package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solcache/internal/storage"
)

// Store is the primary store adapter: it reads and writes cache
// entries against the durable blob store and applies the TTL policy.
type Store struct {
	blobs  storage.BlobStore
	policy Policy
	logger zerolog.Logger

	now func() time.Time
}

// NewStore creates a Store with the given policy
func NewStore(blobs storage.BlobStore, policy Policy, logger zerolog.Logger) *Store {
	return &Store{
		blobs:  blobs,
		policy: policy,
		logger: logger.With().Str("component", "cache-store").Logger(),
		now:    time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Read fetches and decodes the entry under the primary key.
// Returns storage.ErrNotFound when the key does not exist.
func (s *Store) Read(ctx context.Context, key string) (*Entry, error) {
	data, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return &entry, nil
}

// Fresh reports whether the entry is usable under the current policy.
func (s *Store) Fresh(entry *Entry) bool {
	return entry.Fresh(s.now(), s.policy.Disabled)
}

// Write stores a payload under the primary key. The TTL is computed
// from the method at write time, so policy changes only affect entries
// written afterwards.
func (s *Store) Write(ctx context.Context, key, method string, params, payload json.RawMessage) error {
	now := s.now()
	entry := Entry{
		Data: payload,
		Metadata: Metadata{
			Timestamp: now.UnixMilli(),
			Method:    method,
			Params:    params,
		},
	}
	if !s.policy.Disabled {
		entry.Metadata.ExpiresAt = now.Add(s.policy.TTL(method)).UnixMilli()
	}

	data, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return s.blobs.Put(ctx, key, data)
}

// SweepExpired scans the primary namespace and deletes every entry
// whose expiry has passed. Entries without an expiry are kept. Returns
// the number of entries removed.
func (s *Store) SweepExpired(ctx context.Context) (int, error) {
	keys, err := s.blobs.List(ctx, KeyPrefix, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache entries: %w", err)
	}

	nowMs := s.now().UnixMilli()
	removed := 0
	for _, key := range keys {
		entry, err := s.Read(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("skipping unreadable entry during sweep")
			continue
		}
		if entry.Metadata.ExpiresAt != 0 && entry.Metadata.ExpiresAt < nowMs {
			if err := s.blobs.Delete(ctx, key); err != nil {
				s.logger.Warn().Err(err).Str("key", key).Msg("failed to delete expired entry")
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// ListKeys returns up to limit primary-store keys matching the prefix.
// Admin surface.
func (s *Store) ListKeys(ctx context.Context, prefix string, limit int) ([]string, error) {
	return s.blobs.List(ctx, prefix, limit)
}

// ReadRaw returns the raw stored blob without decoding. Admin surface.
func (s *Store) ReadRaw(ctx context.Context, key string) ([]byte, error) {
	return s.blobs.Get(ctx, key)
}
