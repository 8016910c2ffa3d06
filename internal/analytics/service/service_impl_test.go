package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/brightclass/insight/internal/analytics/domain"
	"github.com/brightclass/insight/internal/cache"
	"github.com/brightclass/insight/internal/clock"
	"github.com/brightclass/insight/internal/config"
	eventdomain "github.com/brightclass/insight/internal/event/domain"
	"github.com/brightclass/insight/pkg/db"
)

func setupAnalyticsService(t *testing.T, now time.Time) (*Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&eventdomain.Event{}, &domain.DailyMetric{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:  dbConn,
		Log: zap.NewNop(),
		Cache: cache.NewMetricsCache(config.Config{CacheTTL: config.CacheTTLConfig{
			Dashboard: 5 * time.Minute,
			Tenant:    10 * time.Minute,
			User:      30 * time.Minute,
			System:    time.Minute,
		}}),
		Clock: clock.NewFakeClock(now),
	}).(*Service)

	return svc, dbConn, node
}

func seedMetric(t *testing.T, dbConn *gorm.DB, node *snowflake.Node, day time.Time, tenantID snowflake.ID, name string, value float64) {
	t.Helper()
	require.NoError(t, dbConn.Create(&domain.DailyMetric{
		ID:           node.Generate(),
		MetricDate:   day,
		TenantID:     tenantID,
		MetricName:   name,
		DimensionKey: domain.DefaultDimensionKey,
		MetricValue:  value,
		Dimensions:   datatypes.JSONMap{"dimension_key": domain.DefaultDimensionKey},
		CreatedAt:    day,
		UpdatedAt:    day,
	}).Error)
}

func seedAnalyticsEvent(t *testing.T, dbConn *gorm.DB, node *snowflake.Node, at time.Time, eventType string, tenantID snowflake.ID, userID string, properties datatypes.JSONMap) {
	t.Helper()
	event := eventdomain.Event{
		ID:         node.Generate(),
		OccurredAt: at,
		EventType:  eventType,
		Properties: properties,
		CreatedAt:  at,
	}
	if tenantID != 0 {
		event.TenantID = &tenantID
	}
	if userID != "" {
		event.UserID = &userID
	}
	require.NoError(t, dbConn.Create(&event).Error)
}

func TestDashboardMetricsBuildsBranches(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, dbConn, node := setupAnalyticsService(t, now)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	seedMetric(t, dbConn, node, day, domain.PlatformTenantID, domain.MetricActiveUsersDaily, 12)
	seedMetric(t, dbConn, node, day, 7, domain.MetricActiveUsersDaily, 4)
	seedMetric(t, dbConn, node, day.AddDate(0, 0, 1), 7, domain.MetricActiveUsersDaily, 6)
	seedMetric(t, dbConn, node, day, 7, domain.MetricErrorsRate, 0.25)

	resp, err := svc.DashboardMetrics(context.Background(), domain.DashboardRequest{
		Start: day,
		End:   day.AddDate(0, 0, 7),
	})
	require.NoError(t, err)

	require.Equal(t, "2026-03-02", resp.TimeRange.Start)
	require.Len(t, resp.Platform.ActiveUsers.Daily, 1)
	require.Equal(t, 12.0, resp.Platform.ActiveUsers.Daily[0].Value)

	tenant, ok := resp.Tenants["7"]
	require.True(t, ok)
	require.Len(t, tenant.ActiveUsers.Daily, 2)
	require.Equal(t, "2026-03-02", tenant.ActiveUsers.Daily[0].Date)
	require.Equal(t, "2026-03-03", tenant.ActiveUsers.Daily[1].Date)
	require.Len(t, tenant.Errors.Rate, 1)
	require.Equal(t, 0.25, tenant.Errors.Rate[0].Value)
}

func TestDashboardMetricsGroupFilter(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, dbConn, node := setupAnalyticsService(t, now)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	seedMetric(t, dbConn, node, day, 7, domain.MetricActiveUsersDaily, 4)
	seedMetric(t, dbConn, node, day, 7, domain.MetricErrorsCount, 2)

	resp, err := svc.DashboardMetrics(context.Background(), domain.DashboardRequest{
		Start:   day,
		End:     day.AddDate(0, 0, 1),
		Metrics: []string{domain.GroupErrors},
	})
	require.NoError(t, err)

	tenant := resp.Tenants["7"]
	require.Empty(t, tenant.ActiveUsers.Daily)
	require.Len(t, tenant.Errors.Count, 1)

	_, err = svc.DashboardMetrics(context.Background(), domain.DashboardRequest{
		Start:   day,
		End:     day.AddDate(0, 0, 1),
		Metrics: []string{"bogus"},
	})
	require.ErrorIs(t, err, domain.ErrInvalidMetricGroup)
}

func TestDashboardMetricsServedFromCache(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, dbConn, node := setupAnalyticsService(t, now)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	seedMetric(t, dbConn, node, day, 7, domain.MetricContentViews, 10)

	req := domain.DashboardRequest{Start: day, End: day.AddDate(0, 0, 1)}
	first, err := svc.DashboardMetrics(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 10.0, first.Tenants["7"].Content.Views[0].Value)

	// New rows are invisible until the dashboard TTL expires.
	seedMetric(t, dbConn, node, day, 8, domain.MetricContentViews, 99)
	second, err := svc.DashboardMetrics(context.Background(), req)
	require.NoError(t, err)
	require.NotContains(t, second.Tenants, "8")
}

func TestDashboardMetricsRejectsInvertedRange(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, _, _ := setupAnalyticsService(t, now)

	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err := svc.DashboardMetrics(context.Background(), domain.DashboardRequest{
		Start: start,
		End:   start.AddDate(0, 0, -1),
	})
	require.ErrorIs(t, err, domain.ErrInvalidTimeRange)
}

func TestTenantAnalytics(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, dbConn, node := setupAnalyticsService(t, now)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	seedMetric(t, dbConn, node, day, 7, domain.MetricActiveUsersDaily, 4)

	seedAnalyticsEvent(t, dbConn, node, day.Add(time.Hour), "content.view", 7, "u-1", datatypes.JSONMap{"content_id": "c-1"})
	seedAnalyticsEvent(t, dbConn, node, day.Add(2*time.Hour), "content.view", 7, "u-2", datatypes.JSONMap{"content_id": "c-1"})
	seedAnalyticsEvent(t, dbConn, node, day.Add(3*time.Hour), "content.view", 7, "u-1", datatypes.JSONMap{"content_id": "c-2"})
	seedAnalyticsEvent(t, dbConn, node, day.Add(4*time.Hour), "content.complete", 7, "u-1", datatypes.JSONMap{"content_id": "c-1"})
	seedAnalyticsEvent(t, dbConn, node, day.Add(5*time.Hour), "quiz.complete", 7, "u-1", datatypes.JSONMap{"score": 90.0})
	seedAnalyticsEvent(t, dbConn, node, day.Add(6*time.Hour), "quiz.complete", 7, "u-2", datatypes.JSONMap{"score": 70.0})

	resp, err := svc.TenantAnalytics(context.Background(), 7)
	require.NoError(t, err)

	require.Equal(t, "7", resp.TenantID)
	require.Len(t, resp.DailyActiveUsers, 1)
	require.Equal(t, 4.0, resp.DailyActiveUsers[0].Value)

	require.Len(t, resp.TopContent, 2)
	require.Equal(t, "c-1", resp.TopContent[0].ContentID)
	require.Equal(t, 2.0, resp.TopContent[0].Views)
	require.Equal(t, 1.0, resp.TopContent[0].Completions)

	require.Equal(t, 3.0, resp.Summary.TotalViews)
	require.Equal(t, 1.0, resp.Summary.TotalCompletions)
	require.InDelta(t, 1.0/3.0, resp.Summary.CompletionRate, 1e-9)
	require.Equal(t, 80.0, resp.Summary.AvgQuizScore)

	_, err = svc.TenantAnalytics(context.Background(), 0)
	require.ErrorIs(t, err, domain.ErrInvalidTenant)
}

func TestUserAnalytics(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, dbConn, node := setupAnalyticsService(t, now)

	dayOne := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	dayTwo := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)

	seedAnalyticsEvent(t, dbConn, node, dayOne, "content.view", 7, "u-1", datatypes.JSONMap{"content_id": "c-1"})
	seedAnalyticsEvent(t, dbConn, node, dayOne.Add(time.Hour), "content.complete", 7, "u-1", datatypes.JSONMap{"content_id": "c-1"})
	seedAnalyticsEvent(t, dbConn, node, dayTwo, "content.view", 7, "u-1", datatypes.JSONMap{"content_id": "c-2"})
	seedAnalyticsEvent(t, dbConn, node, dayTwo.Add(time.Hour), "quiz.complete", 7, "u-1", datatypes.JSONMap{"score": 85.0})
	// Another user's activity never leaks in.
	seedAnalyticsEvent(t, dbConn, node, dayTwo, "content.view", 7, "u-2", datatypes.JSONMap{"content_id": "c-9"})

	resp, err := svc.UserAnalytics(context.Background(), "u-1")
	require.NoError(t, err)

	require.Equal(t, "u-1", resp.UserID)
	require.EqualValues(t, 4, resp.Summary.TotalEvents)
	require.Equal(t, 2, resp.Summary.ActiveDays)
	require.Equal(t, 2, resp.Summary.ContentViewed)
	require.Equal(t, 1, resp.Summary.ContentComplete)
	require.Equal(t, 85.0, resp.Summary.AvgQuizScore)

	require.Len(t, resp.DailyActivity, 2)
	require.Equal(t, "2026-03-02", resp.DailyActivity[0].Date)
	require.Equal(t, 2.0, resp.DailyActivity[0].Value)

	require.Contains(t, resp.RecentContent, "c-1")
	require.Contains(t, resp.RecentContent, "c-2")
	require.Len(t, resp.RecentQuizScores, 1)
	require.Equal(t, 85.0, resp.RecentQuizScores[0].Score)

	_, err = svc.UserAnalytics(context.Background(), " ")
	require.ErrorIs(t, err, domain.ErrInvalidUser)
}
