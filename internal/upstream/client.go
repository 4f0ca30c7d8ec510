// Package upstream is the HTTP JSON-RPC client for the chain node. All
// calls go through a circuit breaker so a failing endpoint sheds load
// quickly instead of stacking timeouts.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"solcache/internal/jsonrpc"
)

// RejectedError marks a call the upstream endpoint refused outright
// (blocked key, forbidden origin). Retrying will not help; the operator
// has to fix the endpoint credentials.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// IsRejected reports whether err (or its message) indicates an upstream
// rejection rather than a transient failure.
func IsRejected(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := err.(*RejectedError); ok {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "403 Forbidden") || strings.Contains(msg, "blocked")
}

// Client executes JSON-RPC calls against a single upstream endpoint.
type Client struct {
	url        string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     zerolog.Logger
}

// NewClient creates a Client for the given endpoint URL.
func NewClient(url string, timeout time.Duration, logger zerolog.Logger) *Client {
	log := logger.With().Str("component", "upstream").Logger()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "upstream",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Rejections are deterministic; they say nothing about the
			// endpoint's health and must not trip the breaker.
			return err == nil || IsRejected(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})

	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: breaker,
		logger:  log,
	}
}

// Call executes a single JSON-RPC method upstream and returns the raw
// result payload. A JSON-RPC error from the node is returned as a
// *jsonrpc.Error; transport failures come back wrapped.
func (c *Client) Call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.call(ctx, method, params)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("upstream unavailable: %w", err)
		}
		return nil, err
	}
	return result.(json.RawMessage), nil
}

func (c *Client) call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	req := jsonrpc.Request{
		JSONRPC: jsonrpc.Version,
		Method:  method,
		Params:  params,
		ID:      jsonrpc.NewIDInt(1),
	}
	body, err := json.Marshal(&req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("upstream call")

	if resp.StatusCode == http.StatusForbidden {
		return nil, &RejectedError{Message: fmt.Sprintf("403 Forbidden: %s", truncate(data, 256))}
	}
	if resp.StatusCode != http.StatusOK {
		if strings.Contains(string(data), "blocked") {
			return nil, &RejectedError{Message: fmt.Sprintf("upstream blocked request: %s", truncate(data, 256))}
		}
		return nil, fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, truncate(data, 256))
	}

	parsed, err := jsonrpc.ParseResponse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse upstream response: %w", err)
	}
	if parsed.Error != nil {
		if strings.Contains(parsed.Error.Message, "blocked") {
			return nil, &RejectedError{Message: parsed.Error.Message}
		}
		return nil, parsed.Error
	}
	return parsed.Result, nil
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
