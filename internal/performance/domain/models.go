package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Sample is one point-in-time reading of process health. CPU and
// memory usage are normalized to the 0..1 range.
type Sample struct {
	ID                  snowflake.ID      `gorm:"primaryKey" json:"id"`
	OccurredAt          time.Time         `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	HostID              string            `gorm:"column:host_id;type:text;not null" json:"host_id"`
	CPUUsage            float64           `gorm:"column:cpu_usage;not null" json:"cpu_usage"`
	MemoryUsage         float64           `gorm:"column:memory_usage;not null" json:"memory_usage"`
	ActiveConnections   int64             `gorm:"column:active_connections;not null" json:"active_connections"`
	RequestCount        int64             `gorm:"column:request_count;not null" json:"request_count"`
	AverageResponseTime float64           `gorm:"column:average_response_time;not null" json:"average_response_time"`
	ErrorCount          int64             `gorm:"column:error_count;not null" json:"error_count"`
	Details             datatypes.JSONMap `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Sample) TableName() string { return "analytics_performance_log" }
