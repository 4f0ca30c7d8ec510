// Package metrics accumulates cache hit/miss statistics per method and
// persists them as a snapshot in the durable KV store. Counts are
// approximate by design: concurrent processes may race on the snapshot
// and one update may be lost.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solcache/internal/storage"
)

// snapshotKey is where the serialized snapshot lives in the KV store.
const snapshotKey = "CACHE_METRICS"

// persistTimeout bounds the background snapshot write.
const persistTimeout = 5 * time.Second

// MethodStats holds per-method counters and a running latency average.
type MethodStats struct {
	Hits            uint64  `json:"hits"`
	Misses          uint64  `json:"misses"`
	AvgResponseTime float64 `json:"avgResponseTime"`
}

// CacheMetrics is the full snapshot: global counters plus per-method stats.
type CacheMetrics struct {
	Hits        uint64                 `json:"hits"`
	Misses      uint64                 `json:"misses"`
	MethodStats map[string]MethodStats `json:"methodStats"`
}

// Aggregator mutates the snapshot on every request completion and
// persists it asynchronously. Loaded once at process start.
type Aggregator struct {
	mu      sync.Mutex
	metrics CacheMetrics

	kv         storage.KVStore
	collectors *Collectors // optional Prometheus export
	logger     zerolog.Logger
}

// NewAggregator creates an Aggregator backed by the given KV store.
// collectors may be nil.
func NewAggregator(kv storage.KVStore, collectors *Collectors, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		metrics: CacheMetrics{
			MethodStats: make(map[string]MethodStats),
		},
		kv:         kv,
		collectors: collectors,
		logger:     logger.With().Str("component", "metrics").Logger(),
	}
}

// Load restores the snapshot from the KV store. A missing snapshot
// starts from all-zero counters; a corrupt one is logged and discarded.
func (a *Aggregator) Load(ctx context.Context) {
	data, err := a.kv.Get(ctx, snapshotKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			a.logger.Warn().Err(err).Msg("failed to load metrics snapshot")
		}
		return
	}

	var loaded CacheMetrics
	if err := json.Unmarshal([]byte(data), &loaded); err != nil {
		a.logger.Warn().Err(err).Msg("discarding corrupt metrics snapshot")
		return
	}
	if loaded.MethodStats == nil {
		loaded.MethodStats = make(map[string]MethodStats)
	}

	a.mu.Lock()
	a.metrics = loaded
	a.mu.Unlock()
	a.logger.Info().
		Uint64("hits", loaded.Hits).
		Uint64("misses", loaded.Misses).
		Msg("loaded metrics snapshot")
}

// RecordHit counts a cache hit for the method
func (a *Aggregator) RecordHit(method string, elapsed time.Duration) {
	a.record(method, elapsed, true)
}

// RecordMiss counts a cache miss for the method
func (a *Aggregator) RecordMiss(method string, elapsed time.Duration) {
	a.record(method, elapsed, false)
}

func (a *Aggregator) record(method string, elapsed time.Duration, hit bool) {
	elapsedMs := float64(elapsed) / float64(time.Millisecond)

	a.mu.Lock()
	stats := a.metrics.MethodStats[method]
	if hit {
		a.metrics.Hits++
		stats.Hits++
	} else {
		a.metrics.Misses++
		stats.Misses++
	}
	// Running average over all recorded samples for the method, using
	// the post-increment count.
	n := float64(stats.Hits + stats.Misses)
	stats.AvgResponseTime = (stats.AvgResponseTime*(n-1) + elapsedMs) / n
	a.metrics.MethodStats[method] = stats
	data, err := json.Marshal(&a.metrics)
	a.mu.Unlock()

	if a.collectors != nil {
		a.collectors.Observe(method, hit, elapsed)
	}

	if err != nil {
		a.logger.Warn().Err(err).Msg("failed to encode metrics snapshot")
		return
	}
	// Fire-and-forget: persistence failures never surface to the caller.
	go a.persist(data)
}

func (a *Aggregator) persist(data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := a.kv.Put(ctx, snapshotKey, string(data), 0); err != nil {
		a.logger.Warn().Err(err).Msg("failed to persist metrics snapshot")
	}
}

// Snapshot returns a copy of the current metrics
func (a *Aggregator) Snapshot() CacheMetrics {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := CacheMetrics{
		Hits:        a.metrics.Hits,
		Misses:      a.metrics.Misses,
		MethodStats: make(map[string]MethodStats, len(a.metrics.MethodStats)),
	}
	for method, stats := range a.metrics.MethodStats {
		out.MethodStats[method] = stats
	}
	return out
}

// HitRate returns the global hit percentage, 0 when nothing recorded.
func (a *Aggregator) HitRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := a.metrics.Hits + a.metrics.Misses
	if total == 0 {
		return 0
	}
	return float64(a.metrics.Hits) / float64(total) * 100
}
