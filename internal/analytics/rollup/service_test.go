package rollup

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/brightclass/insight/internal/analytics/domain"
	eventdomain "github.com/brightclass/insight/internal/event/domain"
	"github.com/brightclass/insight/pkg/db"
)

func setupRollupDB(t *testing.T) (*gorm.DB, *snowflake.Node) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := dbConn.AutoMigrate(&eventdomain.Event{}, &domain.DailyMetric{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return dbConn, node
}

func seedEvent(t *testing.T, dbConn *gorm.DB, node *snowflake.Node, at time.Time, eventType string, tenantID int64, userID string, properties datatypes.JSONMap) {
	t.Helper()

	event := eventdomain.Event{
		ID:         node.Generate(),
		OccurredAt: at,
		EventType:  eventType,
		Properties: properties,
		CreatedAt:  at,
	}
	if tenantID != 0 {
		id := snowflake.ID(tenantID)
		event.TenantID = &id
	}
	if userID != "" {
		event.UserID = &userID
	}
	if err := dbConn.Create(&event).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

func loadMetric(t *testing.T, dbConn *gorm.DB, day time.Time, tenantID snowflake.ID, name string) float64 {
	t.Helper()

	var row domain.DailyMetric
	err := dbConn.
		Where("metric_date = ? AND tenant_id = ? AND metric_name = ?", day, tenantID, name).
		First(&row).Error
	if err != nil {
		t.Fatalf("load metric %s for tenant %d: %v", name, tenantID, err)
	}
	return row.MetricValue
}

func countMetricRows(t *testing.T, dbConn *gorm.DB) int64 {
	t.Helper()

	var count int64
	if err := dbConn.Model(&domain.DailyMetric{}).Count(&count).Error; err != nil {
		t.Fatalf("count metric rows: %v", err)
	}
	return count
}

func TestAggregateDayIdempotency(t *testing.T) {
	dbConn, node := setupRollupDB(t)
	svc := NewService(Params{DB: dbConn, Log: zap.NewNop(), GenID: node})
	ctx := context.Background()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	seedEvent(t, dbConn, node, day.Add(9*time.Hour), "content.view", 7, "u-1", datatypes.JSONMap{"duration": 120.0})
	seedEvent(t, dbConn, node, day.Add(10*time.Hour), "content.view", 7, "u-2", datatypes.JSONMap{"duration": 60.0})
	seedEvent(t, dbConn, node, day.Add(11*time.Hour), "content.complete", 7, "u-1", nil)

	if err := svc.AggregateDay(ctx, day); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	rowsBefore := countMetricRows(t, dbConn)
	viewsBefore := loadMetric(t, dbConn, day, 7, domain.MetricContentViews)
	if viewsBefore != 2 {
		t.Fatalf("expected 2 views, got %v", viewsBefore)
	}

	if err := svc.AggregateDay(ctx, day); err != nil {
		t.Fatalf("aggregate second pass: %v", err)
	}

	if rowsAfter := countMetricRows(t, dbConn); rowsAfter != rowsBefore {
		t.Fatalf("expected row count to remain %d, got %d", rowsBefore, rowsAfter)
	}
	if viewsAfter := loadMetric(t, dbConn, day, 7, domain.MetricContentViews); viewsAfter != viewsBefore {
		t.Fatalf("expected views to remain %v, got %v", viewsBefore, viewsAfter)
	}
}

func TestAggregateDayActiveUserWindows(t *testing.T) {
	dbConn, node := setupRollupDB(t)
	svc := NewService(Params{DB: dbConn, Log: zap.NewNop(), GenID: node})
	ctx := context.Background()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	// One user on day D, a second inside the trailing week, a third
	// inside the trailing month only.
	seedEvent(t, dbConn, node, day.Add(8*time.Hour), "content.view", 7, "u-1", nil)
	seedEvent(t, dbConn, node, day.AddDate(0, 0, -3), "content.view", 7, "u-2", nil)
	seedEvent(t, dbConn, node, day.AddDate(0, 0, -20), "content.view", 7, "u-3", nil)

	if err := svc.AggregateDay(ctx, day); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	daily := loadMetric(t, dbConn, day, 7, domain.MetricActiveUsersDaily)
	weekly := loadMetric(t, dbConn, day, 7, domain.MetricActiveUsersWeekly)
	monthly := loadMetric(t, dbConn, day, 7, domain.MetricActiveUsersMonthly)

	if daily != 1 || weekly != 2 || monthly != 3 {
		t.Fatalf("expected windows 1/2/3, got %v/%v/%v", daily, weekly, monthly)
	}
	if daily > weekly || weekly > monthly {
		t.Fatalf("expected daily <= weekly <= monthly, got %v/%v/%v", daily, weekly, monthly)
	}
}

func TestAggregateDayErrorRate(t *testing.T) {
	dbConn, node := setupRollupDB(t)
	svc := NewService(Params{DB: dbConn, Log: zap.NewNop(), GenID: node})
	ctx := context.Background()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	seedEvent(t, dbConn, node, day.Add(time.Hour), "content.view", 7, "u-1", nil)
	seedEvent(t, dbConn, node, day.Add(2*time.Hour), "error", 7, "u-1", nil)
	seedEvent(t, dbConn, node, day.Add(3*time.Hour), "error.api", 7, "u-1", nil)
	seedEvent(t, dbConn, node, day.Add(4*time.Hour), "quiz.complete", 7, "u-1", datatypes.JSONMap{"score": 80.0})

	if err := svc.AggregateDay(ctx, day); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	count := loadMetric(t, dbConn, day, 7, domain.MetricErrorsCount)
	rate := loadMetric(t, dbConn, day, 7, domain.MetricErrorsRate)
	if count != 2 {
		t.Fatalf("expected 2 errors, got %v", count)
	}
	if rate != 0.5 {
		t.Fatalf("expected rate 0.5, got %v", rate)
	}
}

func TestAggregateDayAverages(t *testing.T) {
	dbConn, node := setupRollupDB(t)
	svc := NewService(Params{DB: dbConn, Log: zap.NewNop(), GenID: node})
	ctx := context.Background()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	seedEvent(t, dbConn, node, day.Add(time.Hour), "content.view", 7, "u-1", datatypes.JSONMap{"duration": 100.0})
	seedEvent(t, dbConn, node, day.Add(2*time.Hour), "content.view", 7, "u-1", datatypes.JSONMap{"duration": 50.0})
	// Views without a duration are excluded from the mean.
	seedEvent(t, dbConn, node, day.Add(3*time.Hour), "content.view", 7, "u-1", nil)
	seedEvent(t, dbConn, node, day.Add(4*time.Hour), "quiz.complete", 7, "u-1", datatypes.JSONMap{"score": 90.0})
	seedEvent(t, dbConn, node, day.Add(5*time.Hour), "quiz.complete", 7, "u-1", datatypes.JSONMap{"score": 70.0})

	if err := svc.AggregateDay(ctx, day); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if avg := loadMetric(t, dbConn, day, 7, domain.MetricContentAvgTimeSpent); avg != 75 {
		t.Fatalf("expected avg duration 75, got %v", avg)
	}
	if avg := loadMetric(t, dbConn, day, 7, domain.MetricLearningAvgQuizScore); avg != 80 {
		t.Fatalf("expected avg score 80, got %v", avg)
	}
}

func TestAggregateDayZeroEvents(t *testing.T) {
	dbConn, node := setupRollupDB(t)
	svc := NewService(Params{DB: dbConn, Log: zap.NewNop(), GenID: node})
	ctx := context.Background()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if err := svc.AggregateDay(ctx, day); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	// No tenants were seen, so only the platform pass writes rows, all
	// zero valued.
	if rows := countMetricRows(t, dbConn); rows != 11 {
		t.Fatalf("expected 11 platform rows, got %d", rows)
	}
	if views := loadMetric(t, dbConn, day, domain.PlatformTenantID, domain.MetricContentViews); views != 0 {
		t.Fatalf("expected 0 views, got %v", views)
	}
	if rate := loadMetric(t, dbConn, day, domain.PlatformTenantID, domain.MetricErrorsRate); rate != 0 {
		t.Fatalf("expected 0 rate, got %v", rate)
	}
}

func TestAggregateDayPlatformSpansTenants(t *testing.T) {
	dbConn, node := setupRollupDB(t)
	svc := NewService(Params{DB: dbConn, Log: zap.NewNop(), GenID: node})
	ctx := context.Background()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	seedEvent(t, dbConn, node, day.Add(time.Hour), "content.view", 7, "u-1", nil)
	seedEvent(t, dbConn, node, day.Add(2*time.Hour), "content.view", 8, "u-2", nil)
	// Tenantless events count toward the platform only.
	seedEvent(t, dbConn, node, day.Add(3*time.Hour), "content.view", 0, "u-3", nil)

	if err := svc.AggregateDay(ctx, day); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if views := loadMetric(t, dbConn, day, 7, domain.MetricContentViews); views != 1 {
		t.Fatalf("expected 1 tenant view, got %v", views)
	}
	if views := loadMetric(t, dbConn, day, domain.PlatformTenantID, domain.MetricContentViews); views != 3 {
		t.Fatalf("expected 3 platform views, got %v", views)
	}
	if daily := loadMetric(t, dbConn, day, domain.PlatformTenantID, domain.MetricActiveUsersDaily); daily != 3 {
		t.Fatalf("expected 3 platform active users, got %v", daily)
	}
}

func TestRebuildRange(t *testing.T) {
	dbConn, node := setupRollupDB(t)
	svc := NewService(Params{DB: dbConn, Log: zap.NewNop(), GenID: node})
	ctx := context.Background()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 2)
	for i := 0; i < 3; i++ {
		seedEvent(t, dbConn, node, from.AddDate(0, 0, i).Add(time.Hour), "content.view", 7, "u-1", nil)
	}

	if err := svc.RebuildRange(ctx, from, to); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	for i := 0; i < 3; i++ {
		day := from.AddDate(0, 0, i)
		if views := loadMetric(t, dbConn, day, 7, domain.MetricContentViews); views != 1 {
			t.Fatalf("expected 1 view on %s, got %v", day.Format("2006-01-02"), views)
		}
	}

	if err := svc.RebuildRange(ctx, to, from); err != domain.ErrInvalidTimeRange {
		t.Fatalf("expected invalid time range, got %v", err)
	}
}
