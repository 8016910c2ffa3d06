package rollup

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/brightclass/insight/internal/analytics/domain"
	"github.com/brightclass/insight/internal/clock"
)

const (
	eventContentView        = "content.view"
	eventContentComplete    = "content.complete"
	eventAssignmentComplete = "assignment.complete"
	eventQuizComplete       = "quiz.complete"
	eventError              = "error"

	propertyDuration = "duration"
	propertyScore    = "score"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock `optional:"true"`
}

// Service folds raw analytics events into analytics_daily_metrics.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p Params) *Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("analytics.rollup"),
		genID: p.GenID,
		clock: clk,
	}
}

// AggregateDay recomputes every metric for the given calendar day: one
// pass per tenant seen that day, then one platform-wide pass over all
// events. A failed tenant is logged and skipped so the remaining
// tenants still roll up. Re-running the same day overwrites in place.
func (s *Service) AggregateDay(ctx context.Context, day time.Time) error {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	tenants, err := s.distinctTenants(ctx, dayStart, dayEnd)
	if err != nil {
		return err
	}

	var jobErr error
	for _, tenantID := range tenants {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		id := tenantID
		if err := s.aggregateScope(ctx, dayStart, dayEnd, &id); err != nil {
			jobErr = errors.Join(jobErr, err)
			s.log.Warn("tenant rollup failed",
				zap.Error(err),
				zap.String("tenant_id", id.String()),
				zap.Time("metric_date", dayStart),
			)
		}
	}

	if err := s.aggregateScope(ctx, dayStart, dayEnd, nil); err != nil {
		jobErr = errors.Join(jobErr, err)
		s.log.Warn("platform rollup failed",
			zap.Error(err),
			zap.Time("metric_date", dayStart),
		)
	}

	return jobErr
}

// RebuildRange replays AggregateDay over a historical window, both
// bounds inclusive. Used for admin backfills after an outage.
func (s *Service) RebuildRange(ctx context.Context, from, to time.Time) error {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	if toDay.Before(fromDay) {
		return domain.ErrInvalidTimeRange
	}

	var jobErr error
	for day := fromDay; !day.After(toDay); day = day.AddDate(0, 0, 1) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.AggregateDay(ctx, day); err != nil {
			jobErr = errors.Join(jobErr, err)
		}
	}
	return jobErr
}

func (s *Service) distinctTenants(ctx context.Context, dayStart, dayEnd time.Time) ([]snowflake.ID, error) {
	var tenantIDs []snowflake.ID
	err := s.db.WithContext(ctx).Raw(
		`SELECT DISTINCT tenant_id
		 FROM analytics_events
		 WHERE occurred_at >= ? AND occurred_at < ? AND tenant_id IS NOT NULL`,
		dayStart,
		dayEnd,
	).Scan(&tenantIDs).Error
	if err != nil {
		return nil, err
	}
	return tenantIDs, nil
}

// aggregateScope computes all metric groups for one scope. A nil
// tenant means the platform pass, which spans every event and writes
// rows under the zero tenant sentinel.
func (s *Service) aggregateScope(ctx context.Context, dayStart, dayEnd time.Time, tenantID *snowflake.ID) error {
	daily, err := s.countDistinctUsers(ctx, dayStart, dayEnd, tenantID)
	if err != nil {
		return err
	}
	weekly, err := s.countDistinctUsers(ctx, dayEnd.AddDate(0, 0, -7), dayEnd, tenantID)
	if err != nil {
		return err
	}
	monthly, err := s.countDistinctUsers(ctx, dayEnd.AddDate(0, 0, -30), dayEnd, tenantID)
	if err != nil {
		return err
	}

	views, err := s.countEvents(ctx, dayStart, dayEnd, tenantID, eventContentView)
	if err != nil {
		return err
	}
	completions, err := s.countEvents(ctx, dayStart, dayEnd, tenantID, eventContentComplete)
	if err != nil {
		return err
	}
	avgDuration, err := s.averageProperty(ctx, dayStart, dayEnd, tenantID, eventContentView, propertyDuration)
	if err != nil {
		return err
	}

	assignments, err := s.countEvents(ctx, dayStart, dayEnd, tenantID, eventAssignmentComplete)
	if err != nil {
		return err
	}
	quizzes, err := s.countEvents(ctx, dayStart, dayEnd, tenantID, eventQuizComplete)
	if err != nil {
		return err
	}
	avgScore, err := s.averageProperty(ctx, dayStart, dayEnd, tenantID, eventQuizComplete, propertyScore)
	if err != nil {
		return err
	}

	errCount, err := s.countErrors(ctx, dayStart, dayEnd, tenantID)
	if err != nil {
		return err
	}
	total, err := s.countAll(ctx, dayStart, dayEnd, tenantID)
	if err != nil {
		return err
	}
	errRate := 0.0
	if total > 0 {
		errRate = float64(errCount) / float64(total)
	}

	values := []struct {
		name  string
		value float64
	}{
		{domain.MetricActiveUsersDaily, float64(daily)},
		{domain.MetricActiveUsersWeekly, float64(weekly)},
		{domain.MetricActiveUsersMonthly, float64(monthly)},
		{domain.MetricContentViews, float64(views)},
		{domain.MetricContentCompletions, float64(completions)},
		{domain.MetricContentAvgTimeSpent, avgDuration},
		{domain.MetricLearningAssignmentsCompleted, float64(assignments)},
		{domain.MetricLearningQuizzesCompleted, float64(quizzes)},
		{domain.MetricLearningAvgQuizScore, avgScore},
		{domain.MetricErrorsCount, float64(errCount)},
		{domain.MetricErrorsRate, errRate},
	}

	scope := domain.PlatformTenantID
	if tenantID != nil {
		scope = *tenantID
	}
	for _, metric := range values {
		if err := s.upsertMetric(ctx, dayStart, scope, metric.name, metric.value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) upsertMetric(ctx context.Context, day time.Time, tenantID snowflake.ID, name string, value float64) error {
	now := s.clock.Now()
	dimensions := datatypes.JSONMap{"dimension_key": domain.DefaultDimensionKey}

	return s.db.WithContext(ctx).Exec(
		`INSERT INTO analytics_daily_metrics
		 (id, metric_date, tenant_id, metric_name, dimension_key, metric_value, dimensions, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (metric_date, tenant_id, metric_name, dimension_key)
		 DO UPDATE SET metric_value = EXCLUDED.metric_value,
		               dimensions = EXCLUDED.dimensions,
		               updated_at = EXCLUDED.updated_at`,
		s.genID.Generate(),
		day,
		tenantID,
		name,
		domain.DefaultDimensionKey,
		value,
		dimensions,
		now,
		now,
	).Error
}

func (s *Service) countDistinctUsers(ctx context.Context, start, end time.Time, tenantID *snowflake.ID) (int64, error) {
	query := `SELECT COUNT(DISTINCT user_id)
		 FROM analytics_events
		 WHERE occurred_at >= ? AND occurred_at < ? AND user_id IS NOT NULL`
	args := []any{start, end}
	query, args = scopeToTenant(query, args, tenantID)

	var count int64
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Service) countEvents(ctx context.Context, start, end time.Time, tenantID *snowflake.ID, eventType string) (int64, error) {
	query := `SELECT COUNT(1)
		 FROM analytics_events
		 WHERE occurred_at >= ? AND occurred_at < ? AND event_type = ?`
	args := []any{start, end, eventType}
	query, args = scopeToTenant(query, args, tenantID)

	var count int64
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Service) countErrors(ctx context.Context, start, end time.Time, tenantID *snowflake.ID) (int64, error) {
	query := `SELECT COUNT(1)
		 FROM analytics_events
		 WHERE occurred_at >= ? AND occurred_at < ?
		   AND (event_type = ? OR event_type LIKE ?)`
	args := []any{start, end, eventError, eventError + ".%"}
	query, args = scopeToTenant(query, args, tenantID)

	var count int64
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Service) countAll(ctx context.Context, start, end time.Time, tenantID *snowflake.ID) (int64, error) {
	query := `SELECT COUNT(1)
		 FROM analytics_events
		 WHERE occurred_at >= ? AND occurred_at < ?`
	args := []any{start, end}
	query, args = scopeToTenant(query, args, tenantID)

	var count int64
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

type propertyRow struct {
	Properties datatypes.JSONMap `gorm:"column:properties"`
}

// averageProperty means a numeric event property in Go. JSON numeric
// extraction syntax differs per dialect, so the rows are scanned and
// folded here instead.
func (s *Service) averageProperty(ctx context.Context, start, end time.Time, tenantID *snowflake.ID, eventType, property string) (float64, error) {
	query := `SELECT properties
		 FROM analytics_events
		 WHERE occurred_at >= ? AND occurred_at < ? AND event_type = ?`
	args := []any{start, end, eventType}
	query, args = scopeToTenant(query, args, tenantID)

	var rows []propertyRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return 0, err
	}

	var sum float64
	var n int64
	for _, row := range rows {
		if value, ok := numericProperty(row.Properties, property); ok {
			sum += value
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func scopeToTenant(query string, args []any, tenantID *snowflake.ID) (string, []any) {
	if tenantID == nil {
		return query, args
	}
	return query + " AND tenant_id = ?", append(args, *tenantID)
}

func numericProperty(payload datatypes.JSONMap, key string) (float64, bool) {
	value, ok := payload[key]
	if !ok {
		return 0, false
	}
	switch typed := value.(type) {
	case float64:
		return typed, true
	case int64:
		return float64(typed), true
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
