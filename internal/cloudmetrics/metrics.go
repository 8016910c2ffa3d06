package cloudmetrics

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// CloudMetrics is the accounting registry pushed from self-hosted
// deployments to BrightClass Cloud. It is separate from the local
// /metrics registry so operational metrics never leave the instance.
type CloudMetrics struct {
	registry *prometheus.Registry
	pusher   Pusher
	logger   *zap.Logger

	defaultTenant string

	eventsIngested  *prometheus.CounterVec
	recommendations *prometheus.CounterVec
	engineErrors    *prometheus.CounterVec
	tenantsTotal    prometheus.Gauge
	memoryBytes     prometheus.Gauge
}

func New(registry *prometheus.Registry, pusher Pusher, instanceID, version, defaultTenant string, logger *zap.Logger) *CloudMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	constLabels := prometheus.Labels{
		"instance_id": normalizeLabel(instanceID),
		"version":     normalizeLabel(version),
	}

	c := &CloudMetrics{
		registry:      registry,
		pusher:        pusher,
		logger:        logger,
		defaultTenant: strings.TrimSpace(defaultTenant),
		eventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "insight_cloud_events_ingested_total",
			Help:        "Analytics events accepted by this instance.",
			ConstLabels: constLabels,
		}, []string{"tenant_id", "event_type"}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "insight_cloud_break_recommendations_total",
			Help:        "Break recommendations served by this instance.",
			ConstLabels: constLabels,
		}, []string{"tenant_id", "channel"}),
		engineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "insight_cloud_engine_errors_total",
			Help:        "AI engine call failures observed by this instance.",
			ConstLabels: constLabels,
		}, []string{"tenant_id", "operation"}),
		tenantsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "insight_cloud_tenants_total",
			Help:        "Tenants with analytics events stored on this instance.",
			ConstLabels: constLabels,
		}),
		memoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "insight_cloud_memory_bytes",
			Help:        "Process memory obtained from the OS.",
			ConstLabels: constLabels,
		}),
	}

	registry.MustRegister(
		c.eventsIngested,
		c.recommendations,
		c.engineErrors,
		c.tenantsTotal,
		c.memoryBytes,
	)
	return c
}

func (c *CloudMetrics) RecordEventIngested(tenantID, eventType string) {
	if c == nil {
		return
	}
	c.eventsIngested.WithLabelValues(c.normalizeTenant(tenantID), normalizeLabel(eventType)).Inc()
}

func (c *CloudMetrics) RecordRecommendationServed(tenantID, channel string) {
	if c == nil {
		return
	}
	c.recommendations.WithLabelValues(c.normalizeTenant(tenantID), normalizeLabel(channel)).Inc()
}

func (c *CloudMetrics) RecordEngineError(tenantID, operation string) {
	if c == nil {
		return
	}
	c.engineErrors.WithLabelValues(c.normalizeTenant(tenantID), normalizeLabel(operation)).Inc()
}

func (c *CloudMetrics) SetTenantsTotal(count int64) {
	if c == nil {
		return
	}
	if count < 0 {
		count = 0
	}
	c.tenantsTotal.Set(float64(count))
}

func (c *CloudMetrics) SetMemoryUsage(bytes uint64) {
	if c == nil {
		return
	}
	c.memoryBytes.Set(float64(bytes))
}

// Push sends the accounting registry through the configured pusher.
func (c *CloudMetrics) Push(ctx context.Context) error {
	if c == nil || c.pusher == nil {
		return nil
	}
	return c.pusher.Push(ctx, c.registry)
}

func (c *CloudMetrics) normalizeTenant(tenantID string) string {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		tenantID = c.defaultTenant
	}
	if tenantID == "" {
		return "unknown"
	}
	return tenantID
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
