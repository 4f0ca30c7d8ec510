package metrics

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"solcache/internal/storage"
)

func TestAggregator_RecordCounts(t *testing.T) {
	a := NewAggregator(storage.NewMemoryStore().KV(), nil, zerolog.Nop())

	a.RecordHit("getSlot", 5*time.Millisecond)
	a.RecordHit("getSlot", 5*time.Millisecond)
	a.RecordMiss("getSlot", 100*time.Millisecond)
	a.RecordMiss("getBalance", 80*time.Millisecond)

	snap := a.Snapshot()
	if snap.Hits != 2 || snap.Misses != 2 {
		t.Errorf("global hits/misses = %d/%d, want 2/2", snap.Hits, snap.Misses)
	}

	slot := snap.MethodStats["getSlot"]
	if slot.Hits != 2 || slot.Misses != 1 {
		t.Errorf("getSlot hits/misses = %d/%d, want 2/1", slot.Hits, slot.Misses)
	}
	if snap.MethodStats["getBalance"].Misses != 1 {
		t.Error("getBalance miss not recorded")
	}
}

func TestAggregator_RunningAverage(t *testing.T) {
	a := NewAggregator(storage.NewMemoryStore().KV(), nil, zerolog.Nop())

	// Samples 10ms, 20ms, 60ms -> average 30ms regardless of hit/miss mix.
	a.RecordHit("getSlot", 10*time.Millisecond)
	a.RecordMiss("getSlot", 20*time.Millisecond)
	a.RecordHit("getSlot", 60*time.Millisecond)

	got := a.Snapshot().MethodStats["getSlot"].AvgResponseTime
	if math.Abs(got-30) > 0.001 {
		t.Errorf("AvgResponseTime = %f, want 30", got)
	}
}

func TestAggregator_HitRate(t *testing.T) {
	a := NewAggregator(storage.NewMemoryStore().KV(), nil, zerolog.Nop())

	if rate := a.HitRate(); rate != 0 {
		t.Errorf("HitRate on empty = %f, want 0", rate)
	}

	a.RecordHit("getSlot", time.Millisecond)
	a.RecordHit("getSlot", time.Millisecond)
	a.RecordHit("getSlot", time.Millisecond)
	a.RecordMiss("getSlot", time.Millisecond)

	if rate := a.HitRate(); math.Abs(rate-75) > 0.001 {
		t.Errorf("HitRate = %f, want 75", rate)
	}
}

func TestAggregator_LoadSnapshot(t *testing.T) {
	kv := storage.NewMemoryStore().KV()
	ctx := context.Background()

	seed := `{"hits":10,"misses":5,"methodStats":{"getSlot":{"hits":10,"misses":5,"avgResponseTime":12.5}}}`
	if err := kv.Put(ctx, "CACHE_METRICS", seed, 0); err != nil {
		t.Fatalf("Put: %v", err)
	}

	a := NewAggregator(kv, nil, zerolog.Nop())
	a.Load(ctx)

	snap := a.Snapshot()
	if snap.Hits != 10 || snap.Misses != 5 {
		t.Errorf("loaded hits/misses = %d/%d, want 10/5", snap.Hits, snap.Misses)
	}
	if snap.MethodStats["getSlot"].AvgResponseTime != 12.5 {
		t.Errorf("loaded avg = %f", snap.MethodStats["getSlot"].AvgResponseTime)
	}

	// Recording continues from the loaded state.
	a.RecordHit("getSlot", time.Millisecond)
	if got := a.Snapshot().Hits; got != 11 {
		t.Errorf("hits after record = %d, want 11", got)
	}
}

func TestAggregator_LoadCorruptSnapshot(t *testing.T) {
	kv := storage.NewMemoryStore().KV()
	ctx := context.Background()
	if err := kv.Put(ctx, "CACHE_METRICS", "{not json", 0); err != nil {
		t.Fatalf("Put: %v", err)
	}

	a := NewAggregator(kv, nil, zerolog.Nop())
	a.Load(ctx)

	if snap := a.Snapshot(); snap.Hits != 0 || snap.Misses != 0 {
		t.Errorf("corrupt snapshot not discarded: %+v", snap)
	}
}

func TestAggregator_Persist(t *testing.T) {
	kv := storage.NewMemoryStore().KV()
	a := NewAggregator(kv, nil, zerolog.Nop())

	a.RecordMiss("getSlot", 50*time.Millisecond)

	// The snapshot write is fire-and-forget; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := kv.Get(context.Background(), "CACHE_METRICS"); err == nil && data != "" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("snapshot never persisted")
}
