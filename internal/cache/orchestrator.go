package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"solcache/internal/index"
)

// Upstream executes an RPC call against the chain node.
type Upstream interface {
	Call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)
}

// Recorder accumulates hit/miss metrics per method.
type Recorder interface {
	RecordHit(method string, elapsed time.Duration)
	RecordMiss(method string, elapsed time.Duration)
}

// Result is the outcome of an orchestrated call.
type Result struct {
	Payload  json.RawMessage
	CacheHit bool
	Elapsed  time.Duration
}

// Orchestrator is the read/write path of the cache: secondary index
// first, primary store by derived key second, upstream last. Reads and
// writes are unguarded; two concurrent misses on the same key may both
// call upstream and both write, which is safe because writes are
// idempotent overwrites of the same derived key.
type Orchestrator struct {
	store    *Store
	index    *index.Index
	upstream Upstream
	metrics  Recorder
	sf       *singleflight.Group // nil unless single-flight is enabled
	logger   zerolog.Logger

	now func() time.Time
}

// NewOrchestrator wires the cache read/write path. When singleFlight is
// set, concurrent identical-key upstream fetches are collapsed into one.
func NewOrchestrator(store *Store, ix *index.Index, upstream Upstream, metrics Recorder, singleFlight bool, logger zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		index:    ix,
		upstream: upstream,
		metrics:  metrics,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
		now:      time.Now,
	}
	if singleFlight {
		o.sf = &singleflight.Group{}
	}
	return o
}

// SetClock overrides the time source. Test hook.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// Execute resolves a call through the two-tier cache, falling back to
// the upstream on a miss. params must be a positional JSON array (or
// empty).
func (o *Orchestrator) Execute(ctx context.Context, method string, params json.RawMessage) (*Result, error) {
	start := o.now()
	parsed := parseParams(params)

	// Tier 1: semantic key via the secondary index. A hit here is
	// terminal; a mapping to missing or stale data is a soft miss.
	if ns, semKey, ok := SemanticKey(method, parsed); ok {
		if primaryKey, found := o.index.Get(ctx, ns, semKey); found {
			if entry, err := o.store.Read(ctx, primaryKey); err == nil && o.store.Fresh(entry) {
				elapsed := o.now().Sub(start)
				o.metrics.RecordHit(method, elapsed)
				o.logger.Debug().Str("method", method).Str("key", primaryKey).Msg("index hit")
				return &Result{Payload: entry.Data, CacheHit: true, Elapsed: elapsed}, nil
			}
		}
	}

	// Tier 2: direct canonical key. On a hit, repopulate the index so
	// the next lookup takes tier 1 (self-healing).
	primaryKey := PrimaryKey(method, params)
	if entry, err := o.store.Read(ctx, primaryKey); err == nil && o.store.Fresh(entry) {
		o.refreshIndex(ctx, method, parsed, params, primaryKey)
		elapsed := o.now().Sub(start)
		o.metrics.RecordHit(method, elapsed)
		o.logger.Debug().Str("method", method).Str("key", primaryKey).Msg("cache hit")
		return &Result{Payload: entry.Data, CacheHit: true, Elapsed: elapsed}, nil
	}

	// Miss: fetch from upstream, then populate store and index.
	o.logger.Debug().Str("method", method).Str("key", primaryKey).Msg("cache miss")
	payload, err := o.fetch(ctx, method, params, primaryKey)
	if err != nil {
		return nil, err
	}

	elapsed := o.now().Sub(start)
	o.metrics.RecordMiss(method, elapsed)
	return &Result{Payload: payload, CacheHit: false, Elapsed: elapsed}, nil
}

// fetch calls upstream and writes through to the store and index.
func (o *Orchestrator) fetch(ctx context.Context, method string, params json.RawMessage, primaryKey string) (json.RawMessage, error) {
	if o.sf == nil {
		return o.fetchAndStore(ctx, method, params, primaryKey)
	}

	payload, err, _ := o.sf.Do(primaryKey, func() (interface{}, error) {
		return o.fetchAndStore(ctx, method, params, primaryKey)
	})
	if err != nil {
		return nil, err
	}
	return payload.(json.RawMessage), nil
}

func (o *Orchestrator) fetchAndStore(ctx context.Context, method string, params json.RawMessage, primaryKey string) (json.RawMessage, error) {
	payload, err := o.upstream.Call(ctx, method, params)
	if err != nil {
		return nil, err
	}

	if err := o.store.Write(ctx, primaryKey, method, params, payload); err != nil {
		// The response is still good; the next identical call will miss again.
		o.logger.Warn().Err(err).Str("key", primaryKey).Msg("cache write failed")
		return payload, nil
	}
	o.refreshIndex(ctx, method, parseParams(params), params, primaryKey)
	return payload, nil
}

// refreshIndex records the semantic mapping and the content-hash dedup
// mapping for a primary key. Best-effort throughout.
func (o *Orchestrator) refreshIndex(ctx context.Context, method string, parsed []json.RawMessage, params json.RawMessage, primaryKey string) {
	if ns, semKey, ok := SemanticKey(method, parsed); ok {
		o.index.Put(ctx, ns, semKey, primaryKey)
	}
	o.index.Put(ctx, index.Hash, ContentHash(params), primaryKey)
}

// parseParams splits a raw params array into its elements. Unparsable
// params yield nil, which disables semantic-key derivation only.
func parseParams(params json.RawMessage) []json.RawMessage {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	var parsed []json.RawMessage
	if err := json.Unmarshal(params, &parsed); err != nil {
		return nil
	}
	return parsed
}
