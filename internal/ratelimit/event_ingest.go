package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brightclass/insight/internal/config"
)

const keyEventIngestTenant = "insight:ratelimit:events:%s"

// EventIngestLimiter throttles event writes per tenant. A nil limiter
// allows everything, which is how disabled configs and missing redis
// degrade.
type EventIngestLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewEventIngestLimiter(cfg config.Config, bucket *TokenBucket) (*EventIngestLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled || bucket == nil {
		return nil, nil
	}
	if limitCfg.Rate <= 0 || limitCfg.Burst <= 0 {
		return nil, errors.New("event ingest rate limit must be positive")
	}

	return &EventIngestLimiter{
		bucket: bucket,
		rate:   limitCfg.Rate,
		burst:  int(limitCfg.Burst),
	}, nil
}

// AllowTenant consumes one token from the tenant's bucket. Redis errors
// are returned to the caller, which fails open.
func (l *EventIngestLimiter) AllowTenant(ctx context.Context, tenantID string) (*RateLimitResult, error) {
	if l == nil {
		return &RateLimitResult{Allowed: true}, nil
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		tenantID = "platform"
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyEventIngestTenant, tenantID), l.rate, l.burst)
}
