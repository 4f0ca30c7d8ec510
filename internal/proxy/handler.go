package proxy

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"solcache/internal/jsonrpc"
)

// RateLimiter gates requests per client id.
type RateLimiter interface {
	IsLimited(clientID string) bool
}

// BatchExecutor runs a batch of requests and returns responses in order.
type BatchExecutor interface {
	Execute(ctx context.Context, requests []*jsonrpc.Request) []*jsonrpc.Response
}

// LimitObserver is notified of rate-limited rejections.
type LimitObserver interface {
	ObserveRateLimited()
}

// Handler is the HTTP JSON-RPC endpoint.
type Handler struct {
	processor   *Processor
	dispatcher  BatchExecutor
	limiter     RateLimiter
	observer    LimitObserver // optional
	apiKey      string        // empty disables auth
	maxBodySize int64
	logger      zerolog.Logger
}

// NewHandler creates the RPC endpoint handler. observer may be nil.
func NewHandler(processor *Processor, dispatcher BatchExecutor, limiter RateLimiter, observer LimitObserver, apiKey string, maxBodySize int64, logger zerolog.Logger) *Handler {
	return &Handler{
		processor:   processor,
		dispatcher:  dispatcher,
		limiter:     limiter,
		observer:    observer,
		apiKey:      apiKey,
		maxBodySize: maxBodySize,
		logger:      logger.With().Str("component", "rpc").Logger(),
	}
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.apiKey != "" && bearerToken(r) != h.apiKey {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Rate limiting happens before any parsing so abusive clients pay
	// nothing but the connection.
	clientID := clientIP(r)
	if h.limiter.IsLimited(clientID) {
		if h.observer != nil {
			h.observer.ObserveRateLimited()
		}
		h.logger.Debug().Str("client", clientID).Msg("rate limited")
		w.Header().Set("Retry-After", "60")
		h.writeResponse(w, http.StatusTooManyRequests,
			jsonrpc.NewErrorResponse(jsonrpc.NewIDNull(), jsonrpc.ErrRateLimited))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodySize))
	if err != nil {
		h.writeResponse(w, http.StatusBadRequest,
			jsonrpc.NewErrorResponse(jsonrpc.NewIDNull(), jsonrpc.ErrParse))
		return
	}

	requests, isBatch, err := jsonrpc.ParseBatchRequest(body)
	if err != nil {
		h.logger.Debug().Err(err).Str("client", clientID).Msg("unparsable request")
		h.writeResponse(w, http.StatusBadRequest,
			jsonrpc.NewErrorResponse(jsonrpc.NewIDNull(), jsonrpc.ErrParse))
		return
	}

	if !isBatch {
		resp := h.processor.Process(r.Context(), requests[0])
		h.writeResponse(w, http.StatusOK, resp)
		return
	}

	responses := h.dispatcher.Execute(r.Context(), requests)
	data, err := jsonrpc.MarshalBatchResponse(responses)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode batch response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, data)
}

func (h *Handler) writeResponse(w http.ResponseWriter, status int, resp *jsonrpc.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, status, data)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		h.logger.Debug().Err(err).Msg("failed to write response")
	}
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// clientIP resolves the caller's address, preferring the first
// X-Forwarded-For hop when a proxy sits in front.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
