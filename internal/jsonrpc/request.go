package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Request represents a JSON-RPC request
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      ID              `json:"id"`
}

// Validate checks if the request is valid
func (r *Request) Validate() error {
	if r.JSONRPC != Version {
		return fmt.Errorf("invalid jsonrpc version: %s", r.JSONRPC)
	}
	if r.Method == "" {
		return fmt.Errorf("method is required")
	}
	return nil
}

// ParamsArray unmarshals the params as a positional array.
// A missing or null params field yields an empty array.
func (r *Request) ParamsArray() ([]json.RawMessage, error) {
	if len(r.Params) == 0 || string(r.Params) == "null" {
		return nil, nil
	}
	var params []json.RawMessage
	if err := json.Unmarshal(r.Params, &params); err != nil {
		return nil, fmt.Errorf("params must be an array: %w", err)
	}
	return params, nil
}

// ParseRequest parses a single JSON-RPC request from bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// ParseBatchRequest parses a batch of JSON-RPC requests.
// Returns the requests and whether the input was a batch (array).
func ParseBatchRequest(data []byte) ([]*Request, bool, error) {
	data = trimWhitespace(data)
	if len(data) == 0 {
		return nil, false, ErrInvalidRequest
	}

	if data[0] == '[' {
		var requests []*Request
		if err := json.Unmarshal(data, &requests); err != nil {
			return nil, true, fmt.Errorf("failed to parse batch request: %w", err)
		}
		if len(requests) == 0 {
			return nil, true, ErrInvalidRequest
		}
		return requests, true, nil
	}

	req, err := ParseRequest(data)
	if err != nil {
		return nil, false, err
	}
	return []*Request{req}, false, nil
}

// NewRequest creates a new JSON-RPC request
func NewRequest(method string, params interface{}, id ID) (*Request, error) {
	req := &Request{
		JSONRPC: Version,
		Method:  method,
		ID:      id,
	}

	if params != nil {
		paramsBytes, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		req.Params = paramsBytes
	}

	return req, nil
}

// Bytes returns the request as JSON bytes
func (r *Request) Bytes() ([]byte, error) {
	return json.Marshal(r)
}

// trimWhitespace removes leading whitespace from byte slice
func trimWhitespace(data []byte) []byte {
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return data[i:]
		}
	}
	return data
}

// SubscribeTarget is the payload of a subscribe request: the RPC call
// the client wants polled on its behalf.
type SubscribeTarget struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// IsSubscribeMethod returns true if the method is subscribe
func (r *Request) IsSubscribeMethod() bool {
	return r.Method == "subscribe"
}

// IsUnsubscribeMethod returns true if the method is unsubscribe
func (r *Request) IsUnsubscribeMethod() bool {
	return r.Method == "unsubscribe"
}

// GetSubscribeTarget extracts the target RPC call from subscribe params
func (r *Request) GetSubscribeTarget() (*SubscribeTarget, error) {
	if !r.IsSubscribeMethod() {
		return nil, fmt.Errorf("not a subscribe request")
	}

	var target SubscribeTarget
	if err := json.Unmarshal(r.Params, &target); err != nil {
		return nil, fmt.Errorf("invalid params format: %w", err)
	}
	if target.Method == "" {
		return nil, fmt.Errorf("subscription method is required")
	}
	return &target, nil
}

// GetUnsubscribeID extracts the subscription ID from unsubscribe params
func (r *Request) GetUnsubscribeID() (string, error) {
	if !r.IsUnsubscribeMethod() {
		return "", fmt.Errorf("not an unsubscribe request")
	}

	var params []string
	if err := json.Unmarshal(r.Params, &params); err != nil {
		return "", fmt.Errorf("invalid params format: %w", err)
	}

	if len(params) == 0 {
		return "", fmt.Errorf("subscription ID is required")
	}

	return params[0], nil
}
