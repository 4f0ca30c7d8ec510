package cache

import (
	"encoding/json"
	"time"
)

// Entry is a cached payload with its metadata, stored as one blob under
// the primary key. A rewrite with the same key fully replaces it.
type Entry struct {
	Data     json.RawMessage `json:"data"`
	Metadata Metadata        `json:"metadata"`
}

// Metadata describes when and for which call an entry was written.
// Timestamps are unix milliseconds. ExpiresAt is zero when the entry
// never expires (TTL disabled at write time).
type Metadata struct {
	Timestamp int64           `json:"timestamp"`
	ExpiresAt int64           `json:"expiresAt,omitempty"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params"`
}

// Fresh reports whether the entry is still usable at the given time.
// With TTL disabled every entry is fresh; otherwise an entry without an
// expiry (written while TTL was disabled) counts as stale.
func (e *Entry) Fresh(now time.Time, ttlDisabled bool) bool {
	if ttlDisabled {
		return true
	}
	return e.Metadata.ExpiresAt != 0 && e.Metadata.ExpiresAt > now.UnixMilli()
}
