package server

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brightclass/insight/internal/observability/logger"
	obsmetrics "github.com/brightclass/insight/internal/observability/metrics"
)

const rateLimitReasonTenantRate = "tenant-rate"

// EventIngestRateLimit enforces the per-tenant redis token bucket in
// front of event ingest. Redis failures let the request through; a
// dropped event beats a dropped learning session.
func (s *Server) EventIngestRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.eventLimiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		tenant := ""
		if tenantID, ok := requestTenantID(c); ok {
			tenant = tenantID.String()
		}
		endpoint := normalizeRateLimitEndpoint(c)

		result, err := s.eventLimiter.AllowTenant(ctx, tenant)
		if err != nil {
			logger.FromContext(ctx).Warn("event ingest rate limit check failed", zap.Error(err))
			recordRateLimitAllowed(ctx, endpoint, tenant, s.obsMetrics)
			c.Next()
			return
		}
		if !result.Allowed {
			logger.FromContext(ctx).Warn("event ingest rate limit exceeded",
				zap.String("endpoint", endpoint),
			)
			recordRateLimitDenied(ctx, endpoint, tenant, rateLimitReasonTenantRate, s.obsMetrics)
			c.Header("Retry-After", retryAfterSeconds(result.RetryAfter))
			c.Header("X-Rate-Limited-Reason", rateLimitReasonTenantRate)
			AbortWithError(c, ErrRateLimited)
			return
		}

		recordRateLimitAllowed(ctx, endpoint, tenant, s.obsMetrics)
		c.Next()
	}
}

func recordRateLimitAllowed(ctx context.Context, endpoint, tenantID string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, tenantID, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, tenantID, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, tenantID, endpoint, reason)
}

func retryAfterSeconds(wait time.Duration) string {
	seconds := int64(wait / time.Second)
	if wait%time.Second > 0 || seconds < 1 {
		seconds++
	}
	return strconv.FormatInt(seconds, 10)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
