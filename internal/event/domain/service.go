package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/brightclass/insight/pkg/db/pagination"
)

// RecordRequest carries one event into the store.
type RecordRequest struct {
	EventType  string         `json:"event_type"`
	TenantID   *int64         `json:"tenant_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	SessionID  string         `json:"session_id,omitempty"`
	OccurredAt *time.Time     `json:"occurred_at,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// QueryRequest filters stored events.
type QueryRequest struct {
	Start           *time.Time
	End             *time.Time
	TenantID        *snowflake.ID
	EventTypePrefix string
	UserID          string
	Pagination      pagination.Pagination
}

// QueryResponse is a cursor page of events.
type QueryResponse struct {
	Events   []*Event             `json:"events"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

type Service interface {
	// Record persists one event, subject to per-type sampling. Storage
	// failures are logged and swallowed; only validation fails the call.
	Record(ctx context.Context, req RecordRequest) error
	Query(ctx context.Context, req QueryRequest) (QueryResponse, error)
	// PurgeOlderThan removes events older than the given number of days
	// and reports the number of rows deleted.
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
	// DistinctTenants lists tenant ids with at least one event on the
	// given UTC day.
	DistinctTenants(ctx context.Context, day time.Time) ([]snowflake.ID, error)
}

var (
	ErrInvalidEventType = errors.New("invalid_event_type")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidRetention = errors.New("invalid_retention")
)
