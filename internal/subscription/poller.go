package subscription

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"solcache/internal/cache"
	"solcache/internal/jsonrpc"
)

// Poller re-executes every live subscription on a fixed cadence and
// pushes notifications to bound connections when results change.
type Poller struct {
	registry     *Registry
	orchestrator *cache.Orchestrator
	interval     time.Duration
	logger       zerolog.Logger

	stop chan struct{}
	done chan struct{}
}

// NewPoller creates a Poller over the registry.
func NewPoller(registry *Registry, orchestrator *cache.Orchestrator, interval time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		registry:     registry,
		orchestrator: orchestrator,
		interval:     interval,
		logger:       logger.With().Str("component", "poller").Logger(),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start runs the poll loop until Stop is called.
func (p *Poller) Start() {
	go p.run()
}

// Stop terminates the poll loop and waits for the current pass to finish.
func (p *Poller) Stop() {
	close(p.stop)
	<-p.done
}

func (p *Poller) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.pollAll()
		}
	}
}

// pollAll executes one pass over the live subscriptions.
func (p *Poller) pollAll() {
	subs := p.registry.snapshot()
	for _, sub := range subs {
		ctx, cancel := context.WithTimeout(context.Background(), p.interval)
		p.Poll(ctx, sub.ID)
		cancel()
	}
}

// Poll executes one subscription and notifies bound connections when the
// result differs from the previous poll. Also used right after subscribe
// to deliver the initial state.
func (p *Poller) Poll(ctx context.Context, id string) {
	sub, ok := p.registry.get(id)
	if !ok {
		return
	}

	result, err := p.orchestrator.Execute(ctx, sub.Method, sub.Params)
	if err != nil {
		p.logger.Warn().Err(err).
			Str("subscription", id).
			Str("method", sub.Method).
			Msg("subscription poll failed")
		return
	}

	if !p.registry.updateResult(id, string(result.Payload)) {
		return
	}

	notification := jsonrpc.SubscriptionNotification{
		JSONRPC: jsonrpc.Version,
		Method:  "subscription",
		Params: jsonrpc.SubscriptionParams{
			Subscription: id,
			Result:       result.Payload,
		},
		ResponseTime: result.Elapsed.Milliseconds(),
		CacheHit:     result.CacheHit,
	}
	data, err := json.Marshal(&notification)
	if err != nil {
		p.logger.Error().Err(err).Str("subscription", id).Msg("failed to encode notification")
		return
	}

	sinks := p.registry.sinksFor(id)
	for _, sink := range sinks {
		sink.Notify(data)
	}
	p.logger.Debug().
		Str("subscription", id).
		Int("connections", len(sinks)).
		Msg("notification sent")
}
