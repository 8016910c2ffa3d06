package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// SeriesPoint is one dated value in a chronological series.
type SeriesPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// TimeRange echoes the resolved query window.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ActiveUsersBlock groups the distinct-user windows.
type ActiveUsersBlock struct {
	Daily   []SeriesPoint `json:"daily"`
	Weekly  []SeriesPoint `json:"weekly"`
	Monthly []SeriesPoint `json:"monthly"`
}

// ContentBlock groups content engagement series.
type ContentBlock struct {
	Views        []SeriesPoint `json:"views"`
	Completions  []SeriesPoint `json:"completions"`
	AvgTimeSpent []SeriesPoint `json:"avgTimeSpent"`
}

// LearningBlock groups learning progress series.
type LearningBlock struct {
	AssignmentsCompleted []SeriesPoint `json:"assignmentsCompleted"`
	QuizzesCompleted     []SeriesPoint `json:"quizzesCompleted"`
	AvgQuizScore         []SeriesPoint `json:"avgQuizScore"`
}

// ErrorsBlock groups error series.
type ErrorsBlock struct {
	Count []SeriesPoint `json:"count"`
	Rate  []SeriesPoint `json:"rate"`
}

// MetricsBranch is the full metric tree for one scope.
type MetricsBranch struct {
	ActiveUsers ActiveUsersBlock `json:"activeUsers"`
	Content     ContentBlock     `json:"content"`
	Learning    LearningBlock    `json:"learning"`
	Errors      ErrorsBlock      `json:"errors"`
}

// Metric group selectors accepted by DashboardRequest.Metrics.
const (
	GroupActiveUsers = "active_users"
	GroupContent     = "content"
	GroupLearning    = "learning"
	GroupErrors      = "errors"
)

// DashboardRequest selects the dashboard window and scope.
type DashboardRequest struct {
	TenantID *snowflake.ID
	Start    time.Time
	End      time.Time
	Metrics  []string
}

// DashboardResponse is the nested dashboard payload.
type DashboardResponse struct {
	TimeRange TimeRange                `json:"timeRange"`
	Platform  MetricsBranch            `json:"platform"`
	Tenants   map[string]MetricsBranch `json:"tenants"`
}

// ContentStat summarizes engagement for one piece of content.
type ContentStat struct {
	ContentID   string  `json:"content_id"`
	Views       float64 `json:"views"`
	Completions float64 `json:"completions"`
}

// TenantAnalyticsResponse is the per-tenant drill-down.
type TenantAnalyticsResponse struct {
	TenantID         string        `json:"tenant_id"`
	DailyActiveUsers []SeriesPoint `json:"dailyActiveUsers"`
	TopContent       []ContentStat `json:"topContent"`
	Summary          TenantSummary `json:"summary"`
}

// TenantSummary aggregates the trailing window for one tenant.
type TenantSummary struct {
	TotalViews       float64 `json:"totalViews"`
	TotalCompletions float64 `json:"totalCompletions"`
	CompletionRate   float64 `json:"completionRate"`
	AvgQuizScore     float64 `json:"avgQuizScore"`
}

// QuizScore is one recent quiz result.
type QuizScore struct {
	Date  string  `json:"date"`
	Score float64 `json:"score"`
}

// UserAnalyticsResponse is the per-user drill-down.
type UserAnalyticsResponse struct {
	UserID           string        `json:"user_id"`
	DailyActivity    []SeriesPoint `json:"dailyActivity"`
	RecentContent    []string      `json:"recentContent"`
	RecentQuizScores []QuizScore   `json:"recentQuizScores"`
	Summary          UserSummary   `json:"summary"`
}

// UserSummary aggregates the trailing window for one user.
type UserSummary struct {
	TotalEvents     float64 `json:"totalEvents"`
	ActiveDays      int     `json:"activeDays"`
	AvgQuizScore    float64 `json:"avgQuizScore"`
	ContentViewed   int     `json:"contentViewed"`
	ContentComplete int     `json:"contentComplete"`
}

// Service answers dashboard and drill-down queries from the daily rollup.
type Service interface {
	DashboardMetrics(ctx context.Context, req DashboardRequest) (DashboardResponse, error)
	TenantAnalytics(ctx context.Context, tenantID snowflake.ID) (TenantAnalyticsResponse, error)
	UserAnalytics(ctx context.Context, userID string) (UserAnalyticsResponse, error)
}

var (
	ErrInvalidTimeRange   = errors.New("invalid_time_range")
	ErrInvalidTenant      = errors.New("invalid_tenant")
	ErrInvalidUser        = errors.New("invalid_user")
	ErrInvalidMetricGroup = errors.New("invalid_metric_group")
)
