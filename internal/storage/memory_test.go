package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_BlobRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, "rpc:a", []byte("one")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := s.Get(ctx, "rpc:a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "one" {
		t.Errorf("data = %s", data)
	}

	if _, err := s.Get(ctx, "rpc:missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	if err := s.Delete(ctx, "rpc:a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "rpc:a"); !errors.Is(err, ErrNotFound) {
		t.Error("deleted blob still readable")
	}
}

func TestMemoryStore_ListPrefixAndLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Put(ctx, "rpc:a", []byte("1"))
	s.Put(ctx, "rpc:b", []byte("2"))
	s.Put(ctx, "other:c", []byte("3"))

	keys, err := s.List(ctx, "rpc:", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("len = %d, want 2", len(keys))
	}

	keys, err = s.List(ctx, "rpc:", 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("limited len = %d, want 1", len(keys))
	}
}

func TestMemoryKV_TTLExpiry(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	s.SetClock(func() time.Time { return current })

	kv := s.KV()
	ctx := context.Background()

	if err := kv.Put(ctx, "acct:x", "key1", 10*time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := kv.Put(ctx, "tx:y", "key2", 0); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := kv.Get(ctx, "acct:x"); err != nil {
		t.Errorf("fresh entry unreadable: %v", err)
	}

	current = base.Add(11 * time.Minute)
	if _, err := kv.Get(ctx, "acct:x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired entry still readable: %v", err)
	}
	if _, err := kv.Get(ctx, "tx:y"); err != nil {
		t.Errorf("no-expiry entry unreadable: %v", err)
	}

	keys, err := kv.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("List returned expired entries: %v", keys)
	}
}
