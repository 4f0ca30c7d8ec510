// Package server wires the gateway together: stores, cache, index,
// metrics, rate limiting, subscriptions, and the two HTTP surfaces.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"solcache/internal/batch"
	"solcache/internal/cache"
	"solcache/internal/config"
	"solcache/internal/index"
	"solcache/internal/metrics"
	"solcache/internal/proxy"
	"solcache/internal/ratelimit"
	"solcache/internal/storage"
	"solcache/internal/subscription"
	"solcache/internal/upstream"
	"solcache/internal/ws"
)

// Server represents the main server
type Server struct {
	cfg    *config.Config
	logger zerolog.Logger

	redis      *storage.RedisStore // nil in memory mode
	store      *cache.Store
	index      *index.Index
	aggregator *metrics.Aggregator
	registry   *subscription.Registry
	poller     *subscription.Poller

	rpcHandler http.Handler
	wsHandler  http.Handler
	promReg    *prometheus.Registry

	rpcServer *http.Server
	wsServer  *http.Server
}

// New creates a new Server
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	var blobs storage.BlobStore
	var kv storage.KVStore
	var redisStore *storage.RedisStore

	if cfg.IsRedisEnabled() {
		var err error
		redisStore, err = storage.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		blobs = redisStore
		kv = redisStore.KV()
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis stores")
	} else {
		mem := storage.NewMemoryStore()
		blobs = mem
		kv = mem.KV()
		logger.Warn().Msg("no redis configured, using in-memory stores")
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promCollectors := metrics.NewCollectors(promReg)

	aggregator := metrics.NewAggregator(kv, promCollectors, logger)

	policy := cache.NewPolicy(cfg.GetDefaultTTLDuration(), cfg.DisableTTL)
	store := cache.NewStore(blobs, policy, logger)
	ix := index.New(kv, logger)

	client := upstream.NewClient(cfg.UpstreamURL, cfg.GetRequestTimeoutDuration(), logger)
	orchestrator := cache.NewOrchestrator(store, ix, client, aggregator, cfg.SingleFlight, logger)

	limiter, err := ratelimit.NewLimiter(cfg.RateLimitPerMinute, cfg.RateLimitClients)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	processor := proxy.NewProcessor(orchestrator, logger)
	dispatcher := batch.NewDispatcher(processor, logger)
	rpcHandler := proxy.NewHandler(processor, dispatcher, limiter, promCollectors, cfg.APIKey, cfg.MaxBodySize, logger)

	registry := subscription.NewRegistry(logger)
	poller := subscription.NewPoller(registry, orchestrator, cfg.GetPollIntervalDuration(), logger)
	wsHandler := ws.NewHandler(processor, dispatcher, registry, poller, logger)

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		redis:      redisStore,
		store:      store,
		index:      ix,
		aggregator: aggregator,
		registry:   registry,
		poller:     poller,
		rpcHandler: rpcHandler,
		wsHandler:  wsHandler,
		promReg:    promReg,
	}
	return s, nil
}

// Start starts the RPC and WebSocket servers and the subscription poller.
func (s *Server) Start(ctx context.Context) error {
	s.aggregator.Load(ctx)
	s.poller.Start()

	mux := http.NewServeMux()
	mux.Handle("/", s.rpcHandler)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))
	s.registerAdmin(mux)

	rpcAddr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.RPCPort)
	wsAddr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.WSPort)

	s.rpcServer = &http.Server{
		Addr:         rpcAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		s.logger.Info().Str("addr", rpcAddr).Msg("starting RPC server")
		if err := s.rpcServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("RPC server error")
		}
	}()

	s.wsServer = &http.Server{
		Addr:        wsAddr,
		Handler:     s.wsHandler,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		s.logger.Info().Str("addr", wsAddr).Msg("starting WebSocket server")
		if err := s.wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("WebSocket server error")
		}
	}()

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server...")

	s.poller.Stop()

	var rpcErr, wsErr error
	if s.rpcServer != nil {
		rpcErr = s.rpcServer.Shutdown(ctx)
	}
	if s.wsServer != nil {
		wsErr = s.wsServer.Shutdown(ctx)
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close redis connection")
		}
	}

	if rpcErr != nil {
		return fmt.Errorf("RPC server shutdown error: %w", rpcErr)
	}
	if wsErr != nil {
		return fmt.Errorf("WebSocket server shutdown error: %w", wsErr)
	}

	s.logger.Info().Msg("server stopped")
	return nil
}
