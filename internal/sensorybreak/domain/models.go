package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Effectiveness is user feedback about one completed break. Stored for
// later analysis; the recommendation ranking never reads it back.
type Effectiveness struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID      string       `gorm:"column:user_id;type:text;not null;index" json:"user_id"`
	ActivityID  string       `gorm:"column:activity_id;type:text;not null;index" json:"activity_id"`
	Rating      int          `gorm:"column:rating;not null" json:"rating"`
	Notes       string       `gorm:"column:notes;type:text" json:"notes,omitempty"`
	CompletedAt time.Time    `gorm:"column:completed_at;not null" json:"completed_at"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Effectiveness) TableName() string { return "break_effectiveness" }
