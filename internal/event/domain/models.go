package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Event is one append-only analytics event.
type Event struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	OccurredAt time.Time         `gorm:"column:occurred_at;not null;index:idx_analytics_events_occurred_at" json:"occurred_at"`
	EventType  string            `gorm:"column:event_type;type:text;not null;index:idx_analytics_events_event_type" json:"event_type"`
	TenantID   *snowflake.ID     `gorm:"column:tenant_id;index:idx_analytics_events_tenant_id" json:"tenant_id,omitempty"`
	UserID     *string           `gorm:"column:user_id;type:text;index:idx_analytics_events_user_id" json:"user_id,omitempty"`
	SessionID  *string           `gorm:"column:session_id;type:text" json:"session_id,omitempty"`
	Properties datatypes.JSONMap `gorm:"type:jsonb" json:"properties,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Event) TableName() string { return "analytics_events" }
