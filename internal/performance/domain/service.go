package domain

import (
	"context"
	"errors"
	"time"
)

// SeriesRequest selects a window of samples bucketed by interval.
type SeriesRequest struct {
	Start  time.Time
	End    time.Time
	Bucket time.Duration
}

// SeriesPoint is one bucketed aggregate in the series.
type SeriesPoint struct {
	BucketStart     time.Time `json:"bucket_start"`
	AvgCPUUsage     float64   `json:"avgCpuUsage"`
	AvgMemoryUsage  float64   `json:"avgMemoryUsage"`
	RequestCount    int64     `json:"requestCount"`
	ErrorCount      int64     `json:"errorCount"`
	AvgResponseTime float64   `json:"avgResponseTime"`
	SampleCount     int64     `json:"sampleCount"`
}

// Summary aggregates the whole requested window.
type Summary struct {
	AvgCPUUsage    float64 `json:"avgCpuUsage"`
	PeakCPUUsage   float64 `json:"peakCpuUsage"`
	AvgMemoryUsage float64 `json:"avgMemoryUsage"`
	TotalRequests  int64   `json:"totalRequests"`
	TotalErrors    int64   `json:"totalErrors"`
}

// SeriesResponse carries the bucketed points plus the window summary.
type SeriesResponse struct {
	Points  []SeriesPoint `json:"points"`
	Summary Summary       `json:"summary"`
}

// Service records and reads performance samples.
type Service interface {
	RecordSample(ctx context.Context, sample *Sample) error
	Series(ctx context.Context, req SeriesRequest) (SeriesResponse, error)
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
}

var (
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidBucket    = errors.New("invalid_bucket")
	ErrInvalidRetention = errors.New("invalid_retention")
)
