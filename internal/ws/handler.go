// Package ws serves the WebSocket surface: regular RPC calls plus the
// subscribe/unsubscribe control methods.
package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"solcache/internal/proxy"
	"solcache/internal/subscription"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// Handler handles WebSocket connections
type Handler struct {
	processor  *proxy.Processor
	dispatcher proxy.BatchExecutor
	registry   *subscription.Registry
	poller     *subscription.Poller
	logger     zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(processor *proxy.Processor, dispatcher proxy.BatchExecutor, registry *subscription.Registry, poller *subscription.Poller, logger zerolog.Logger) *Handler {
	return &Handler{
		processor:  processor,
		dispatcher: dispatcher,
		registry:   registry,
		poller:     poller,
		logger:     logger.With().Str("component", "ws").Logger(),
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	h.logger.Info().
		Str("remoteAddr", r.RemoteAddr).
		Msg("new WebSocket connection")

	client := NewClient(conn, h.processor, h.dispatcher, h.registry, h.poller, h.logger.With().Str("remoteAddr", r.RemoteAddr).Logger())
	client.Run(r.Context())
}
