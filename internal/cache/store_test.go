package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"solcache/internal/storage"
)

func newTestStore(t *testing.T, policy Policy) (*Store, *storage.MemoryStore, func() time.Time) {
	t.Helper()
	mem := storage.NewMemoryStore()
	store := NewStore(mem, policy, zerolog.Nop())

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	clock := func() time.Time { return current }
	store.SetClock(clock)
	return store, mem, func() time.Time { return current }
}

func TestStore_WriteRead(t *testing.T) {
	store, _, _ := newTestStore(t, NewPolicy(time.Hour, false))
	ctx := context.Background()

	params := []byte(`["abc"]`)
	payload := []byte(`{"lamports":100}`)
	key := PrimaryKey("getBalance", params)

	if err := store.Write(ctx, key, "getBalance", params, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	entry, err := store.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(entry.Data) != string(payload) {
		t.Errorf("Data = %s, want %s", entry.Data, payload)
	}
	if entry.Metadata.Method != "getBalance" {
		t.Errorf("Method = %s", entry.Metadata.Method)
	}
	if entry.Metadata.ExpiresAt == 0 {
		t.Error("ExpiresAt not set")
	}
	if !store.Fresh(entry) {
		t.Error("freshly written entry reported stale")
	}
}

func TestStore_ReadMissing(t *testing.T) {
	store, _, _ := newTestStore(t, NewPolicy(time.Hour, false))

	_, err := store.Read(context.Background(), "rpc:getSlot:[]")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_FreshnessBoundary(t *testing.T) {
	// getSlot has a 30s lifetime; just inside stays fresh, just past goes stale.
	mem := storage.NewMemoryStore()
	store := NewStore(mem, NewPolicy(time.Hour, false), zerolog.Nop())

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	store.SetClock(func() time.Time { return current })

	ctx := context.Background()
	key := PrimaryKey("getSlot", nil)
	if err := store.Write(ctx, key, "getSlot", nil, []byte(`12345`)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	entry, err := store.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	current = base.Add(29 * time.Second)
	if !store.Fresh(entry) {
		t.Error("entry stale at 29s, want fresh")
	}

	current = base.Add(31 * time.Second)
	if store.Fresh(entry) {
		t.Error("entry fresh at 31s, want stale")
	}
}

func TestStore_TTLDisabled(t *testing.T) {
	store, _, _ := newTestStore(t, NewPolicy(time.Hour, true))
	ctx := context.Background()

	key := PrimaryKey("getSlot", nil)
	if err := store.Write(ctx, key, "getSlot", nil, []byte(`1`)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	entry, err := store.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if entry.Metadata.ExpiresAt != 0 {
		t.Errorf("ExpiresAt = %d, want 0 with TTL disabled", entry.Metadata.ExpiresAt)
	}
	if !store.Fresh(entry) {
		t.Error("entry stale with TTL disabled")
	}
}

func TestStore_SweepExpired(t *testing.T) {
	mem := storage.NewMemoryStore()
	store := NewStore(mem, NewPolicy(time.Hour, false), zerolog.Nop())

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	store.SetClock(func() time.Time { return current })

	ctx := context.Background()
	if err := store.Write(ctx, PrimaryKey("getSlot", nil), "getSlot", nil, []byte(`1`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := store.Write(ctx, PrimaryKey("getVersion", nil), "getVersion", nil, []byte(`{}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// One minute out the slot entry (30s) is gone, getVersion (7d) is not.
	current = base.Add(time.Minute)
	removed, err := store.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if _, err := store.Read(ctx, PrimaryKey("getSlot", nil)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("swept entry still readable: %v", err)
	}
	if _, err := store.Read(ctx, PrimaryKey("getVersion", nil)); err != nil {
		t.Errorf("long-lived entry removed: %v", err)
	}
}
