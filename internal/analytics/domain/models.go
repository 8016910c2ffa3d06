package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PlatformTenantID marks platform-wide rows in analytics_daily_metrics.
const PlatformTenantID snowflake.ID = 0

// DefaultDimensionKey is used when a metric carries no dimension split.
const DefaultDimensionKey = "none"

// Metric names written by the daily rollup.
const (
	MetricActiveUsersDaily   = "active_users.daily"
	MetricActiveUsersWeekly  = "active_users.weekly"
	MetricActiveUsersMonthly = "active_users.monthly"

	MetricContentViews        = "content.views"
	MetricContentCompletions  = "content.completions"
	MetricContentAvgTimeSpent = "content.avg_time_spent"

	MetricLearningAssignmentsCompleted = "learning.assignments_completed"
	MetricLearningQuizzesCompleted     = "learning.quizzes_completed"
	MetricLearningAvgQuizScore         = "learning.avg_quiz_score"

	MetricErrorsCount = "errors.count"
	MetricErrorsRate  = "errors.rate"
)

// DailyMetric is one aggregated value for one day, tenant and metric.
// TenantID zero means platform-wide. DimensionKey mirrors the
// dimension_key entry inside Dimensions so the upsert target stays
// portable across dialects.
type DailyMetric struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	MetricDate   time.Time         `gorm:"column:metric_date;not null;uniqueIndex:ux_daily_metrics_day_tenant_name_dim,priority:1" json:"metric_date"`
	TenantID     snowflake.ID      `gorm:"column:tenant_id;not null;default:0;uniqueIndex:ux_daily_metrics_day_tenant_name_dim,priority:2" json:"tenant_id"`
	MetricName   string            `gorm:"column:metric_name;type:text;not null;uniqueIndex:ux_daily_metrics_day_tenant_name_dim,priority:3" json:"metric_name"`
	DimensionKey string            `gorm:"column:dimension_key;type:text;not null;default:none;uniqueIndex:ux_daily_metrics_day_tenant_name_dim,priority:4" json:"dimension_key"`
	MetricValue  float64           `gorm:"column:metric_value;not null" json:"metric_value"`
	Dimensions   datatypes.JSONMap `gorm:"type:jsonb" json:"dimensions,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (DailyMetric) TableName() string { return "analytics_daily_metrics" }
