package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Host               string       `json:"host"`
	RPCPort            int          `json:"rpcPort"`
	WSPort             int          `json:"wsPort"`
	LogLevel           string       `json:"logLevel"`
	MaxBodySize        int64        `json:"maxBodySize"`
	RequestTimeout     int          `json:"requestTimeout"` // ms - per-request budget for store and upstream I/O
	UpstreamURL        string       `json:"upstreamUrl"`
	APIKey             string       `json:"apiKey"`      // bearer token for the RPC surface
	AdminSecret        string       `json:"adminSecret"` // bearer token for admin endpoints
	Redis              *RedisConfig `json:"redis,omitempty"`
	CacheTTLMinutes    int          `json:"cacheTtlMinutes"` // default TTL for methods without a tier
	DisableTTL         bool         `json:"disableTtl"`      // entries never expire when set
	RateLimitPerMinute int          `json:"rateLimitPerMinute"`
	RateLimitClients   int          `json:"rateLimitClients"` // max tracked client windows
	PollInterval       int          `json:"pollInterval"`     // ms - subscription poll cadence
	SingleFlight       bool         `json:"singleFlight"`     // dedup concurrent identical upstream fetches
}

// RedisConfig holds the connection settings for the durable stores.
// When absent the server runs with in-memory stores (dev mode only:
// nothing survives a restart).
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Default values
const (
	DefaultHost               = "localhost"
	DefaultRPCPort            = 8080
	DefaultWSPort             = 8081
	DefaultLogLevel           = "info"
	DefaultMaxBodySize        = int64(1 << 20) // 1MB
	DefaultRequestTimeout     = 10000          // ms
	DefaultCacheTTLMinutes    = 10080          // 7 days - data-lake reuse over freshness
	DefaultRateLimitPerMinute = 35
	DefaultRateLimitClients   = 10000
	DefaultPollInterval       = 15000 // ms
)

// GetRequestTimeoutDuration returns request timeout as time.Duration
func (c *Config) GetRequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}

// GetDefaultTTLDuration returns the fallback cache TTL as time.Duration
func (c *Config) GetDefaultTTLDuration() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// GetPollIntervalDuration returns the subscription poll interval as time.Duration
func (c *Config) GetPollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Millisecond
}

// IsRedisEnabled returns true if durable Redis stores are configured
func (c *Config) IsRedisEnabled() bool {
	return c.Redis != nil && c.Redis.Addr != ""
}
