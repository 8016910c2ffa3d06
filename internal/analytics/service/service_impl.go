package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/brightclass/insight/internal/analytics/domain"
	"github.com/brightclass/insight/internal/cache"
	"github.com/brightclass/insight/internal/clock"
)

const (
	analyticsWindowDays = 30
	topContentLimit     = 5
	recentLimit         = 5

	propertyContentID = "content_id"
	propertyScore     = "score"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Cache *cache.MetricsCache
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	cache *cache.MetricsCache
	clock clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("analytics.service"),
		cache: p.Cache,
		clock: clk,
	}
}

func (s *Service) DashboardMetrics(ctx context.Context, req domain.DashboardRequest) (domain.DashboardResponse, error) {
	end := req.End
	if end.IsZero() {
		end = s.clock.Now()
	}
	start := req.Start
	if start.IsZero() {
		start = end.AddDate(0, 0, -analyticsWindowDays)
	}
	if end.Before(start) {
		return domain.DashboardResponse{}, domain.ErrInvalidTimeRange
	}

	groups, err := resolveGroups(req.Metrics)
	if err != nil {
		return domain.DashboardResponse{}, err
	}

	tenantKey := "all"
	if req.TenantID != nil {
		tenantKey = req.TenantID.String()
	}
	key := cache.Key("dashboard", tenantKey,
		start.Format("2006-01-02"), end.Format("2006-01-02"),
		strings.Join(sortedKeys(groups), ","))
	if cached, ok := s.cache.GetDashboard(key); ok {
		return cached, nil
	}

	rows, err := s.loadMetricRows(ctx, start, end, req.TenantID)
	if err != nil {
		return domain.DashboardResponse{}, err
	}

	resp := domain.DashboardResponse{
		TimeRange: domain.TimeRange{
			Start: start.UTC().Format("2006-01-02"),
			End:   end.UTC().Format("2006-01-02"),
		},
		Tenants: map[string]domain.MetricsBranch{},
	}

	branches := map[snowflake.ID]*domain.MetricsBranch{}
	for _, row := range rows {
		branch, ok := branches[row.TenantID]
		if !ok {
			branch = &domain.MetricsBranch{}
			branches[row.TenantID] = branch
		}
		appendLeaf(branch, groups, row)
	}

	for tenantID, branch := range branches {
		if tenantID == domain.PlatformTenantID {
			resp.Platform = *branch
			continue
		}
		resp.Tenants[tenantID.String()] = *branch
	}

	s.cache.SetDashboard(key, resp)
	return resp, nil
}

func (s *Service) TenantAnalytics(ctx context.Context, tenantID snowflake.ID) (domain.TenantAnalyticsResponse, error) {
	if tenantID == 0 {
		return domain.TenantAnalyticsResponse{}, domain.ErrInvalidTenant
	}

	key := cache.Key("tenant", tenantID.String())
	if cached, ok := s.cache.GetTenant(key); ok {
		return cached, nil
	}

	end := s.clock.Now()
	start := end.AddDate(0, 0, -analyticsWindowDays)

	resp := domain.TenantAnalyticsResponse{TenantID: tenantID.String()}

	rows, err := s.loadMetricRows(ctx, start, end, &tenantID)
	if err != nil {
		return domain.TenantAnalyticsResponse{}, err
	}
	for _, row := range rows {
		if row.TenantID == tenantID && row.MetricName == domain.MetricActiveUsersDaily {
			resp.DailyActiveUsers = append(resp.DailyActiveUsers, domain.SeriesPoint{
				Date:  row.MetricDate.UTC().Format("2006-01-02"),
				Value: row.MetricValue,
			})
		}
	}

	events, err := s.loadEventRows(ctx, start, end, &tenantID, "")
	if err != nil {
		return domain.TenantAnalyticsResponse{}, err
	}

	type contentCounts struct {
		views       float64
		completions float64
	}
	content := map[string]*contentCounts{}
	var quizSum float64
	var quizCount int64

	for _, event := range events {
		switch event.EventType {
		case "content.view", "content.complete":
			contentID, ok := stringProperty(event.Properties, propertyContentID)
			if !ok {
				contentID = "unknown"
			}
			counts, ok := content[contentID]
			if !ok {
				counts = &contentCounts{}
				content[contentID] = counts
			}
			if event.EventType == "content.view" {
				counts.views++
				resp.Summary.TotalViews++
			} else {
				counts.completions++
				resp.Summary.TotalCompletions++
			}
		case "quiz.complete":
			if score, ok := numericProperty(event.Properties, propertyScore); ok {
				quizSum += score
				quizCount++
			}
		}
	}

	if resp.Summary.TotalViews > 0 {
		resp.Summary.CompletionRate = resp.Summary.TotalCompletions / resp.Summary.TotalViews
	}
	if quizCount > 0 {
		resp.Summary.AvgQuizScore = quizSum / float64(quizCount)
	}

	for contentID, counts := range content {
		resp.TopContent = append(resp.TopContent, domain.ContentStat{
			ContentID:   contentID,
			Views:       counts.views,
			Completions: counts.completions,
		})
	}
	sort.Slice(resp.TopContent, func(i, j int) bool {
		if resp.TopContent[i].Views != resp.TopContent[j].Views {
			return resp.TopContent[i].Views > resp.TopContent[j].Views
		}
		return resp.TopContent[i].ContentID < resp.TopContent[j].ContentID
	})
	if len(resp.TopContent) > topContentLimit {
		resp.TopContent = resp.TopContent[:topContentLimit]
	}

	s.cache.SetTenant(key, resp)
	return resp, nil
}

func (s *Service) UserAnalytics(ctx context.Context, userID string) (domain.UserAnalyticsResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.UserAnalyticsResponse{}, domain.ErrInvalidUser
	}

	key := cache.Key("user", userID)
	if cached, ok := s.cache.GetUser(key); ok {
		return cached, nil
	}

	end := s.clock.Now()
	start := end.AddDate(0, 0, -analyticsWindowDays)

	events, err := s.loadEventRows(ctx, start, end, nil, userID)
	if err != nil {
		return domain.UserAnalyticsResponse{}, err
	}

	resp := domain.UserAnalyticsResponse{UserID: userID}

	activity := map[string]float64{}
	viewed := map[string]struct{}{}
	completed := map[string]struct{}{}
	var quizSum float64
	var quizCount int64

	for _, event := range events {
		day := event.OccurredAt.UTC().Format("2006-01-02")
		activity[day]++
		resp.Summary.TotalEvents++

		switch event.EventType {
		case "content.view":
			if contentID, ok := stringProperty(event.Properties, propertyContentID); ok {
				if _, seen := viewed[contentID]; !seen && len(resp.RecentContent) < recentLimit {
					resp.RecentContent = append(resp.RecentContent, contentID)
				}
				viewed[contentID] = struct{}{}
			}
		case "content.complete":
			if contentID, ok := stringProperty(event.Properties, propertyContentID); ok {
				completed[contentID] = struct{}{}
			}
		case "quiz.complete":
			if score, ok := numericProperty(event.Properties, propertyScore); ok {
				quizSum += score
				quizCount++
				if len(resp.RecentQuizScores) < recentLimit {
					resp.RecentQuizScores = append(resp.RecentQuizScores, domain.QuizScore{
						Date:  day,
						Score: score,
					})
				}
			}
		}
	}

	for day, count := range activity {
		resp.DailyActivity = append(resp.DailyActivity, domain.SeriesPoint{Date: day, Value: count})
	}
	sort.Slice(resp.DailyActivity, func(i, j int) bool {
		return resp.DailyActivity[i].Date < resp.DailyActivity[j].Date
	})

	resp.Summary.ActiveDays = len(activity)
	resp.Summary.ContentViewed = len(viewed)
	resp.Summary.ContentComplete = len(completed)
	if quizCount > 0 {
		resp.Summary.AvgQuizScore = quizSum / float64(quizCount)
	}

	s.cache.SetUser(key, resp)
	return resp, nil
}

type metricRow struct {
	MetricDate  time.Time    `gorm:"column:metric_date"`
	TenantID    snowflake.ID `gorm:"column:tenant_id"`
	MetricName  string       `gorm:"column:metric_name"`
	MetricValue float64      `gorm:"column:metric_value"`
}

func (s *Service) loadMetricRows(ctx context.Context, start, end time.Time, tenantID *snowflake.ID) ([]metricRow, error) {
	query := `SELECT metric_date, tenant_id, metric_name, metric_value
		 FROM analytics_daily_metrics
		 WHERE metric_date >= ? AND metric_date <= ?`
	args := []any{start.UTC(), end.UTC()}
	if tenantID != nil {
		query += " AND tenant_id IN (?, ?)"
		args = append(args, domain.PlatformTenantID, *tenantID)
	}
	query += " ORDER BY metric_date ASC"

	var rows []metricRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type eventRow struct {
	OccurredAt time.Time         `gorm:"column:occurred_at"`
	EventType  string            `gorm:"column:event_type"`
	Properties datatypes.JSONMap `gorm:"column:properties"`
}

func (s *Service) loadEventRows(ctx context.Context, start, end time.Time, tenantID *snowflake.ID, userID string) ([]eventRow, error) {
	query := `SELECT occurred_at, event_type, properties
		 FROM analytics_events
		 WHERE occurred_at >= ? AND occurred_at < ?`
	args := []any{start.UTC(), end.UTC()}
	if tenantID != nil {
		query += " AND tenant_id = ?"
		args = append(args, *tenantID)
	}
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY occurred_at DESC"

	var rows []eventRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func resolveGroups(metrics []string) (map[string]bool, error) {
	groups := map[string]bool{}
	if len(metrics) == 0 {
		return map[string]bool{
			domain.GroupActiveUsers: true,
			domain.GroupContent:     true,
			domain.GroupLearning:    true,
			domain.GroupErrors:      true,
		}, nil
	}
	for _, metric := range metrics {
		name := strings.ToLower(strings.TrimSpace(metric))
		switch name {
		case domain.GroupActiveUsers, domain.GroupContent, domain.GroupLearning, domain.GroupErrors:
			groups[name] = true
		default:
			return nil, domain.ErrInvalidMetricGroup
		}
	}
	return groups, nil
}

func sortedKeys(groups map[string]bool) []string {
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func appendLeaf(branch *domain.MetricsBranch, groups map[string]bool, row metricRow) {
	point := domain.SeriesPoint{
		Date:  row.MetricDate.UTC().Format("2006-01-02"),
		Value: row.MetricValue,
	}

	switch row.MetricName {
	case domain.MetricActiveUsersDaily:
		if groups[domain.GroupActiveUsers] {
			branch.ActiveUsers.Daily = append(branch.ActiveUsers.Daily, point)
		}
	case domain.MetricActiveUsersWeekly:
		if groups[domain.GroupActiveUsers] {
			branch.ActiveUsers.Weekly = append(branch.ActiveUsers.Weekly, point)
		}
	case domain.MetricActiveUsersMonthly:
		if groups[domain.GroupActiveUsers] {
			branch.ActiveUsers.Monthly = append(branch.ActiveUsers.Monthly, point)
		}
	case domain.MetricContentViews:
		if groups[domain.GroupContent] {
			branch.Content.Views = append(branch.Content.Views, point)
		}
	case domain.MetricContentCompletions:
		if groups[domain.GroupContent] {
			branch.Content.Completions = append(branch.Content.Completions, point)
		}
	case domain.MetricContentAvgTimeSpent:
		if groups[domain.GroupContent] {
			branch.Content.AvgTimeSpent = append(branch.Content.AvgTimeSpent, point)
		}
	case domain.MetricLearningAssignmentsCompleted:
		if groups[domain.GroupLearning] {
			branch.Learning.AssignmentsCompleted = append(branch.Learning.AssignmentsCompleted, point)
		}
	case domain.MetricLearningQuizzesCompleted:
		if groups[domain.GroupLearning] {
			branch.Learning.QuizzesCompleted = append(branch.Learning.QuizzesCompleted, point)
		}
	case domain.MetricLearningAvgQuizScore:
		if groups[domain.GroupLearning] {
			branch.Learning.AvgQuizScore = append(branch.Learning.AvgQuizScore, point)
		}
	case domain.MetricErrorsCount:
		if groups[domain.GroupErrors] {
			branch.Errors.Count = append(branch.Errors.Count, point)
		}
	case domain.MetricErrorsRate:
		if groups[domain.GroupErrors] {
			branch.Errors.Rate = append(branch.Errors.Rate, point)
		}
	}
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
	default:
		return 0, false
	}
}

func stringProperty(payload datatypes.JSONMap, key string) (string, bool) {
	value, ok := payload[key]
	if !ok {
		return "", false
	}
	typed, ok := value.(string)
	if !ok {
		return "", false
	}
	typed = strings.TrimSpace(typed)
	if typed == "" {
		return "", false
	}
	return typed, true
}
