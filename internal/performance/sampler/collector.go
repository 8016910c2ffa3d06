package sampler

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Collector accumulates request counters between samples. The worker
// drains it once per interval, so every sample carries deltas rather
// than process lifetime totals.
type Collector struct {
	requests     atomic.Int64
	errors       atomic.Int64
	latencyMicro atomic.Int64
	activeConns  atomic.Int64
}

func NewCollector() *Collector {
	return &Collector{}
}

// ObserveRequest records one finished request.
func (c *Collector) ObserveRequest(latency time.Duration, isError bool) {
	c.requests.Add(1)
	c.latencyMicro.Add(latency.Microseconds())
	if isError {
		c.errors.Add(1)
	}
}

// drain returns the accumulated counters and resets them.
func (c *Collector) drain() (requests, errors int64, avgLatencyMs float64) {
	requests = c.requests.Swap(0)
	errors = c.errors.Swap(0)
	latency := c.latencyMicro.Swap(0)
	if requests > 0 {
		avgLatencyMs = float64(latency) / float64(requests) / 1000
	}
	return requests, errors, avgLatencyMs
}

// ActiveConnections reports requests currently in flight.
func (c *Collector) ActiveConnections() int64 {
	return c.activeConns.Load()
}

// GinMiddleware feeds the collector from the HTTP request path.
func GinMiddleware(c *Collector) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		c.activeConns.Add(1)
		start := time.Now()

		ctx.Next()

		c.activeConns.Add(-1)
		c.ObserveRequest(time.Since(start), ctx.Writer.Status() >= 500)
	}
}
