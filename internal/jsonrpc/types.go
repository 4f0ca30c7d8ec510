package jsonrpc

import "encoding/json"

// Version is the JSON-RPC version
const Version = "2.0"

// JSON-RPC error codes. The last two are non-standard: -32429 signals
// rate limiting, -32003 signals that the upstream RPC endpoint rejected
// the call (operator action needed, not a client retry).
const (
	CodeParseError       = -32700
	CodeInvalidRequest   = -32600
	CodeMethodNotFound   = -32601
	CodeInvalidParams    = -32602
	CodeInternalError    = -32603
	CodeRateLimited      = -32429
	CodeUpstreamRejected = -32003
)

// ID represents a JSON-RPC request/response ID
// It can be a string, number, or null
type ID struct {
	value interface{}
}

// NewIDString creates an ID from a string
func NewIDString(s string) ID {
	return ID{value: s}
}

// NewIDInt creates an ID from an integer
func NewIDInt(n int64) ID {
	return ID{value: n}
}

// NewIDNull creates a null ID
func NewIDNull() ID {
	return ID{value: nil}
}

// IsNull returns true if the ID is null
func (id ID) IsNull() bool {
	return id.value == nil
}

// Value returns the underlying value
func (id ID) Value() interface{} {
	return id.value
}

// Key returns a string form of the ID usable as a map key.
// String and numeric ids get distinct prefixes so "3" and 3 never collide.
func (id ID) Key() string {
	switch v := id.value.(type) {
	case nil:
		return ""
	case string:
		return "s:" + v
	case float64:
		b, _ := json.Marshal(v)
		return "n:" + string(b)
	case int64:
		b, _ := json.Marshal(v)
		return "n:" + string(b)
	default:
		b, _ := json.Marshal(v)
		return "j:" + string(b)
	}
}

// String returns the raw string form of the ID (without the Key prefix).
func (id ID) String() string {
	if s, ok := id.value.(string); ok {
		return s
	}
	b, _ := json.Marshal(id.value)
	return string(b)
}

// MarshalJSON implements json.Marshaler
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &id.value)
}

// Error represents a JSON-RPC error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// NewError creates a new JSON-RPC error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Common errors
var (
	ErrParse          = NewError(CodeParseError, "Parse error")
	ErrInvalidRequest = NewError(CodeInvalidRequest, "Invalid Request")
	ErrInvalidParams  = NewError(CodeInvalidParams, "Invalid params")
	ErrInternal       = NewError(CodeInternalError, "Internal error")
	ErrRateLimited    = NewError(CodeRateLimited, "Too many requests, please try again later")
)

// SubscriptionNotification is the async push sent to subscribed
// connections when a polled result changes.
type SubscriptionNotification struct {
	JSONRPC      string             `json:"jsonrpc"`
	Method       string             `json:"method"`
	Params       SubscriptionParams `json:"params"`
	ResponseTime int64              `json:"responseTime"`
	CacheHit     bool               `json:"cacheHit"`
}

// SubscriptionParams contains the subscription notification parameters
type SubscriptionParams struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}
