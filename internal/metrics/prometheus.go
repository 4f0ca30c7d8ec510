package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors exports request outcomes to Prometheus.
type Collectors struct {
	RequestsTotal *prometheus.CounterVec
	ResponseTime  *prometheus.HistogramVec
	RateLimited   prometheus.Counter
}

// NewCollectors creates and registers the Prometheus collectors
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "solcache",
				Name:      "requests_total",
				Help:      "RPC requests processed, by method and cache outcome",
			},
			[]string{"method", "outcome"},
		),
		ResponseTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "solcache",
				Name:      "response_time_seconds",
				Help:      "RPC request processing time",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "solcache",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),
	}

	reg.MustRegister(c.RequestsTotal, c.ResponseTime, c.RateLimited)
	return c
}

// Observe records one completed request
func (c *Collectors) Observe(method string, hit bool, elapsed time.Duration) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	c.RequestsTotal.WithLabelValues(method, outcome).Inc()
	c.ResponseTime.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveRateLimited records one rate-limited rejection
func (c *Collectors) ObserveRateLimited() {
	c.RateLimited.Inc()
}
