// Package proxy is the RPC front: it validates incoming JSON-RPC
// requests, runs them through the cache orchestrator, and maps failures
// onto the wire error taxonomy.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solcache/internal/cache"
	"solcache/internal/jsonrpc"
	"solcache/internal/upstream"
)

// Processor executes one validated request end to end.
type Processor struct {
	orchestrator *cache.Orchestrator
	logger       zerolog.Logger

	now func() time.Time
}

// NewProcessor creates a Processor over the orchestrator
func NewProcessor(orchestrator *cache.Orchestrator, logger zerolog.Logger) *Processor {
	return &Processor{
		orchestrator: orchestrator,
		logger:       logger.With().Str("component", "processor").Logger(),
		now:          time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (p *Processor) SetClock(now func() time.Time) {
	p.now = now
}

// Process validates and executes a single request. It always returns a
// response envelope; failures are encoded as JSON-RPC errors with the
// processing time stamped on.
func (p *Processor) Process(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	start := p.now()

	if err := req.Validate(); err != nil {
		return p.finish(start, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrInvalidRequest), false)
	}

	spec, ok := cache.LookupMethod(req.Method)
	if !ok {
		p.logger.Debug().Str("method", req.Method).Msg("unsupported method")
		return p.finish(start, jsonrpc.NewErrorResponse(req.ID,
			jsonrpc.NewError(jsonrpc.CodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))), false)
	}

	params, err := req.ParamsArray()
	if err != nil {
		return p.finish(start, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrInvalidParams), false)
	}
	if len(params) < spec.MinParams {
		return p.finish(start, jsonrpc.NewErrorResponse(req.ID,
			jsonrpc.NewError(jsonrpc.CodeInvalidParams,
				fmt.Sprintf("%s requires at least %d params", req.Method, spec.MinParams))), false)
	}

	result, err := p.orchestrator.Execute(ctx, req.Method, req.Params)
	if err != nil {
		p.logger.Warn().Err(err).Str("method", req.Method).Msg("request failed")
		return p.finish(start, jsonrpc.NewErrorResponse(req.ID, mapError(err)), false)
	}

	resp := jsonrpc.NewResponseRaw(req.ID, result.Payload)
	return p.finish(start, resp, result.CacheHit)
}

func (p *Processor) finish(start time.Time, resp *jsonrpc.Response, cacheHit bool) *jsonrpc.Response {
	resp.ResponseTime = p.now().Sub(start).Milliseconds()
	resp.CacheHit = cacheHit
	return resp
}

// mapError translates an execution failure into a wire error.
func mapError(err error) *jsonrpc.Error {
	if upstream.IsRejected(err) {
		return jsonrpc.NewError(jsonrpc.CodeUpstreamRejected, err.Error())
	}
	var rpcErr *jsonrpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return jsonrpc.ErrInternal
}
