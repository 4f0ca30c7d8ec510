// Package subscription implements polling-based subscriptions: clients
// register an RPC call over the WebSocket surface, the poller re-executes
// it on a fixed cadence through the cache, and connections bound to the
// subscription get a push whenever the serialized result changes.
package subscription

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Sink receives serialized notifications. Implemented by the WebSocket
// client; Notify must not block the caller.
type Sink interface {
	Notify(data []byte)
}

// Subscription is one polled RPC call. Subscriptions are keyed by the
// caller-chosen id, so two connections subscribing with the same id
// share one poll loop.
type Subscription struct {
	ID     string
	Method string
	Params json.RawMessage

	// lastResult is the serialized result of the previous poll, used for
	// change detection. hasResult distinguishes "never polled" from a
	// null result.
	lastResult string
	hasResult  bool
}

// Registry tracks subscriptions and which connections are bound to each.
// A subscription lives as long as at least one connection references it.
type Registry struct {
	mu    sync.Mutex
	subs  map[string]*Subscription
	conns map[Sink]map[string]bool

	logger zerolog.Logger
}

// NewRegistry creates an empty Registry
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		subs:   make(map[string]*Subscription),
		conns:  make(map[Sink]map[string]bool),
		logger: logger.With().Str("component", "subscriptions").Logger(),
	}
}

// Subscribe binds conn to the subscription with the given id, creating
// it if needed. When the id already exists its target call is left as
// is; the new connection joins the existing poll loop.
func (r *Registry) Subscribe(conn Sink, id, method string, params json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[id]; !ok {
		r.subs[id] = &Subscription{
			ID:     id,
			Method: method,
			Params: params,
		}
		r.logger.Debug().Str("subscription", id).Str("method", method).Msg("subscription created")
	}

	ids, ok := r.conns[conn]
	if !ok {
		ids = make(map[string]bool)
		r.conns[conn] = ids
	}
	ids[id] = true
}

// Unsubscribe unbinds conn from the subscription. Returns false when the
// connection was not bound to it.
func (r *Registry) Unsubscribe(conn Sink, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, ok := r.conns[conn]
	if !ok || !ids[id] {
		return false
	}
	delete(ids, id)
	if len(ids) == 0 {
		delete(r.conns, conn)
	}
	r.gc(id)
	return true
}

// RemoveConnection unbinds conn from everything. Called when the
// WebSocket closes.
func (r *Registry) RemoveConnection(conn Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, ok := r.conns[conn]
	if !ok {
		return
	}
	delete(r.conns, conn)
	for id := range ids {
		r.gc(id)
	}
}

// gc drops the subscription when no connection references it anymore.
// Caller holds the lock.
func (r *Registry) gc(id string) {
	for _, ids := range r.conns {
		if ids[id] {
			return
		}
	}
	delete(r.subs, id)
	r.logger.Debug().Str("subscription", id).Msg("subscription removed")
}

// snapshot returns a copy of the live subscriptions for a poll pass.
func (r *Registry) snapshot() []*Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, sub)
	}
	return out
}

// get returns the live subscription for id, if any.
func (r *Registry) get(id string) (*Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	return sub, ok
}

// updateResult records a poll result and reports whether it changed.
// The first result after creation always counts as changed.
func (r *Registry) updateResult(id string, result string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok {
		return false
	}
	if sub.hasResult && sub.lastResult == result {
		return false
	}
	sub.lastResult = result
	sub.hasResult = true
	return true
}

// sinksFor returns the connections currently bound to the subscription.
func (r *Registry) sinksFor(id string) []Sink {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Sink
	for conn, ids := range r.conns {
		if ids[id] {
			out = append(out, conn)
		}
	}
	return out
}

// Count returns the number of live subscriptions
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
