package cache

import (
	analyticsdomain "github.com/brightclass/insight/internal/analytics/domain"
	"github.com/brightclass/insight/internal/config"
	perfdomain "github.com/brightclass/insight/internal/performance/domain"
)

// MetricsCache memoizes computed analytics responses. Each scope keeps
// its own TTL so dashboard queries stay fresher than per-user ones.
type MetricsCache struct {
	ttl config.CacheTTLConfig

	dashboards Cache[string, analyticsdomain.DashboardResponse]
	tenants    Cache[string, analyticsdomain.TenantAnalyticsResponse]
	users      Cache[string, analyticsdomain.UserAnalyticsResponse]
	system     Cache[string, perfdomain.SeriesResponse]
}

func NewMetricsCache(cfg config.Config) *MetricsCache {
	return &MetricsCache{
		ttl:        cfg.CacheTTL,
		dashboards: NewTTLCache[string, analyticsdomain.DashboardResponse](),
		tenants:    NewTTLCache[string, analyticsdomain.TenantAnalyticsResponse](),
		users:      NewTTLCache[string, analyticsdomain.UserAnalyticsResponse](),
		system:     NewTTLCache[string, perfdomain.SeriesResponse](),
	}
}

func (c *MetricsCache) GetDashboard(key string) (analyticsdomain.DashboardResponse, bool) {
	return c.dashboards.Get(key)
}

func (c *MetricsCache) SetDashboard(key string, value analyticsdomain.DashboardResponse) {
	c.dashboards.Set(key, value, c.ttl.Dashboard)
}

func (c *MetricsCache) GetTenant(key string) (analyticsdomain.TenantAnalyticsResponse, bool) {
	return c.tenants.Get(key)
}

func (c *MetricsCache) SetTenant(key string, value analyticsdomain.TenantAnalyticsResponse) {
	c.tenants.Set(key, value, c.ttl.Tenant)
}

func (c *MetricsCache) GetUser(key string) (analyticsdomain.UserAnalyticsResponse, bool) {
	return c.users.Get(key)
}

func (c *MetricsCache) SetUser(key string, value analyticsdomain.UserAnalyticsResponse) {
	c.users.Set(key, value, c.ttl.User)
}

func (c *MetricsCache) GetSystem(key string) (perfdomain.SeriesResponse, bool) {
	return c.system.Get(key)
}

func (c *MetricsCache) SetSystem(key string, value perfdomain.SeriesResponse) {
	c.system.Set(key, value, c.ttl.System)
}
