package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	analyticsdomain "github.com/brightclass/insight/internal/analytics/domain"
	"github.com/brightclass/insight/internal/config"
)

func TestMetricsCacheScopesAreIndependent(t *testing.T) {
	mc := NewMetricsCache(config.Config{CacheTTL: config.CacheTTLConfig{
		Dashboard: 5 * time.Minute,
		Tenant:    10 * time.Minute,
		User:      30 * time.Minute,
		System:    time.Minute,
	}})

	key := Key("dashboard", "2026-03-01", "2026-03-07")
	mc.SetDashboard(key, analyticsdomain.DashboardResponse{
		TimeRange: analyticsdomain.TimeRange{Start: "2026-03-01", End: "2026-03-07"},
	})

	got, ok := mc.GetDashboard(key)
	require.True(t, ok)
	require.Equal(t, "2026-03-01", got.TimeRange.Start)

	_, ok = mc.GetTenant(key)
	require.False(t, ok)
}

func TestMetricsCacheZeroTTLDisablesScope(t *testing.T) {
	mc := NewMetricsCache(config.Config{})

	mc.SetDashboard("k", analyticsdomain.DashboardResponse{})
	_, ok := mc.GetDashboard("k")
	require.False(t, ok)
}
