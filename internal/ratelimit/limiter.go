// Package ratelimit implements fixed-window per-client admission
// control. State is process-local and best-effort: a restart silently
// resets every client's quota, and bursts are admitted across window
// boundaries. Both are accepted properties of the scheme.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Window is the fixed admission window length.
const Window = 60 * time.Second

// window tracks one client's count within the current fixed window.
type window struct {
	count       int
	windowStart time.Time
}

// Limiter admits up to maxPerWindow calls per client per fixed window.
// Client windows live in a bounded LRU so an open set of client ids
// cannot grow memory without limit.
type Limiter struct {
	mu      sync.Mutex
	clients *lru.Cache[string, *window]
	max     int

	now func() time.Time
}

// NewLimiter creates a Limiter tracking at most maxClients windows.
func NewLimiter(maxPerWindow, maxClients int) (*Limiter, error) {
	clients, err := lru.New[string, *window](maxClients)
	if err != nil {
		return nil, fmt.Errorf("failed to create client window cache: %w", err)
	}
	return &Limiter{
		clients: clients,
		max:     maxPerWindow,
		now:     time.Now,
	}, nil
}

// SetClock overrides the time source. Test hook.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

// IsLimited counts one call for the client and reports whether it
// exceeds the window quota. The first call in a window (or the first
// sight of a client) always passes.
func (l *Limiter) IsLimited(clientID string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.clients.Get(clientID)
	if !ok || now.Sub(w.windowStart) > Window {
		l.clients.Add(clientID, &window{count: 1, windowStart: now})
		return false
	}

	w.count++
	return w.count > l.max
}
