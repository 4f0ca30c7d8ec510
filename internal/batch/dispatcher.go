// Package batch dispatches JSON-RPC batch requests: requests are
// grouped by method, groups execute concurrently, and responses are
// reassembled in the original request order by id.
package batch

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"solcache/internal/jsonrpc"
)

// Executor processes a single request into a response envelope.
type Executor interface {
	Process(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response
}

// Dispatcher executes batches against an Executor.
type Dispatcher struct {
	executor Executor
	logger   zerolog.Logger
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(executor Executor, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		executor: executor,
		logger:   logger.With().Str("component", "batch").Logger(),
	}
}

// Execute runs all requests and returns responses in the input order.
// The output always has the same length as the input: a request whose
// id is missing from the computed results (an id collision within the
// batch) gets a synthesized internal error.
func (d *Dispatcher) Execute(ctx context.Context, requests []*jsonrpc.Request) []*jsonrpc.Response {
	groups := make(map[string][]*jsonrpc.Request)
	for _, req := range requests {
		groups[req.Method] = append(groups[req.Method], req)
	}

	var mu sync.Mutex
	results := make(map[string]*jsonrpc.Response, len(requests))

	var wg sync.WaitGroup
	for _, group := range groups {
		wg.Add(1)
		go func(group []*jsonrpc.Request) {
			defer wg.Done()
			for _, req := range group {
				resp := d.executor.Process(ctx, req)
				mu.Lock()
				results[req.ID.Key()] = resp
				mu.Unlock()
			}
		}(group)
	}
	wg.Wait()

	responses := make([]*jsonrpc.Response, len(requests))
	for i, req := range requests {
		if resp, ok := results[req.ID.Key()]; ok {
			responses[i] = resp
			continue
		}
		d.logger.Warn().
			Str("method", req.Method).
			Str("id", req.ID.Key()).
			Msg("no result for batch request id")
		responses[i] = jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrInternal)
	}
	return responses
}
