package ws

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"solcache/internal/cache"
	"solcache/internal/jsonrpc"
	"solcache/internal/proxy"
	"solcache/internal/subscription"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // 1MB
)

// Client represents a WebSocket client connection
type Client struct {
	conn       *websocket.Conn
	processor  *proxy.Processor
	dispatcher proxy.BatchExecutor
	registry   *subscription.Registry
	poller     *subscription.Poller
	logger     zerolog.Logger

	sendChan  chan []byte
	closeChan chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, processor *proxy.Processor, dispatcher proxy.BatchExecutor, registry *subscription.Registry, poller *subscription.Poller, logger zerolog.Logger) *Client {
	return &Client{
		conn:       conn,
		processor:  processor,
		dispatcher: dispatcher,
		registry:   registry,
		poller:     poller,
		logger:     logger,
		sendChan:   make(chan []byte, 256),
		closeChan:  make(chan struct{}),
	}
}

// Run starts the client read and write loops
func (c *Client) Run(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump reads messages from the WebSocket connection
func (c *Client) readPump(ctx context.Context) {
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeChan:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug().Err(err).Msg("read error")
			}
			return
		}

		c.handleMessage(ctx, data)
	}
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeChan:
			return
		case data := <-c.sendChan:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug().Err(err).Msg("write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming message
func (c *Client) handleMessage(ctx context.Context, data []byte) {
	requests, isBatch, err := jsonrpc.ParseBatchRequest(data)
	if err != nil {
		c.sendError(jsonrpc.NewIDNull(), jsonrpc.ErrParse)
		return
	}

	if isBatch {
		c.handleBatch(ctx, requests)
	} else {
		c.handleSingle(ctx, requests[0])
	}
}

// handleSingle handles a single JSON-RPC request
func (c *Client) handleSingle(ctx context.Context, req *jsonrpc.Request) {
	switch {
	case req.IsSubscribeMethod():
		c.handleSubscribe(ctx, req)
	case req.IsUnsubscribeMethod():
		c.handleUnsubscribe(req)
	default:
		c.sendResponse(c.processor.Process(ctx, req))
	}
}

// handleBatch handles a batch of JSON-RPC requests. Subscription control
// messages get individual responses; the rest come back as one array.
func (c *Client) handleBatch(ctx context.Context, requests []*jsonrpc.Request) {
	var regular []*jsonrpc.Request
	for _, req := range requests {
		if req.IsSubscribeMethod() || req.IsUnsubscribeMethod() {
			c.handleSingle(ctx, req)
			continue
		}
		regular = append(regular, req)
	}
	if len(regular) == 0 {
		return
	}

	responses := c.dispatcher.Execute(ctx, regular)
	data, err := jsonrpc.MarshalBatchResponse(responses)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to marshal batch response")
		return
	}
	c.send(data)
}

// handleSubscribe registers a polled subscription for this connection.
// The subscription id is the caller's request id.
func (c *Client) handleSubscribe(ctx context.Context, req *jsonrpc.Request) {
	target, err := req.GetSubscribeTarget()
	if err != nil {
		c.sendError(req.ID, jsonrpc.NewError(jsonrpc.CodeInvalidParams, err.Error()))
		return
	}
	if _, ok := cache.LookupMethod(target.Method); !ok {
		c.sendError(req.ID, jsonrpc.NewError(jsonrpc.CodeMethodNotFound, "Method not found: "+target.Method))
		return
	}

	// Registrations without an id get a generated one. The raw string
	// form keys the registry, so the string "3" and the number 3 share a
	// subscription; acceptable loose keying, the ids are client-chosen.
	subID := req.ID.String()
	if req.ID.IsNull() {
		subID = newSubscriptionID()
	}
	c.registry.Subscribe(c, subID, target.Method, target.Params)

	resp, _ := jsonrpc.NewResponse(req.ID, subID)
	c.sendResponse(resp)

	// Deliver the current state right away instead of waiting a full
	// poll interval.
	go c.poller.Poll(context.Background(), subID)

	c.logger.Debug().
		Str("subscription", subID).
		Str("method", target.Method).
		Msg("subscription created")
}

// handleUnsubscribe removes this connection from a subscription
func (c *Client) handleUnsubscribe(req *jsonrpc.Request) {
	subID, err := req.GetUnsubscribeID()
	if err != nil {
		c.sendError(req.ID, jsonrpc.NewError(jsonrpc.CodeInvalidParams, err.Error()))
		return
	}

	removed := c.registry.Unsubscribe(c, subID)
	resp, _ := jsonrpc.NewResponse(req.ID, removed)
	c.sendResponse(resp)

	c.logger.Debug().
		Str("subscription", subID).
		Bool("removed", removed).
		Msg("unsubscribe requested")
}

// newSubscriptionID generates an id for subscribe requests that carry none.
func newSubscriptionID() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// Notify implements subscription.Sink
func (c *Client) Notify(data []byte) {
	c.send(data)
}

// sendResponse sends a JSON-RPC response
func (c *Client) sendResponse(resp *jsonrpc.Response) {
	data, err := resp.Bytes()
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to marshal response")
		return
	}
	c.send(data)
}

// sendError sends a JSON-RPC error response
func (c *Client) sendError(id jsonrpc.ID, rpcErr *jsonrpc.Error) {
	c.sendResponse(jsonrpc.NewErrorResponse(id, rpcErr))
}

// send queues data for the write pump
func (c *Client) send(data []byte) {
	select {
	case c.sendChan <- data:
	case <-c.closeChan:
	default:
		// Channel full, drop message
		c.logger.Warn().Msg("send channel full, dropping message")
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closeChan)
		c.registry.RemoveConnection(c)
		c.conn.Close()
		c.logger.Debug().Msg("client closed")
	})
}
