package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/brightclass/insight/internal/cache"
	"github.com/brightclass/insight/internal/config"
	perfdomain "github.com/brightclass/insight/internal/performance/domain"
	"github.com/brightclass/insight/pkg/db"
	"github.com/brightclass/insight/pkg/repository"
)

func setupPerformanceService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&perfdomain.Sample{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.ProvideStore[perfdomain.Sample](dbConn),
	}).(*Service)

	return svc, dbConn
}

func recordSampleAt(t *testing.T, svc *Service, at time.Time, cpu float64, requests, errors int64) {
	t.Helper()
	require.NoError(t, svc.RecordSample(context.Background(), &perfdomain.Sample{
		OccurredAt:          at,
		HostID:              "host-1",
		CPUUsage:            cpu,
		MemoryUsage:         0.5,
		RequestCount:        requests,
		ErrorCount:          errors,
		AverageResponseTime: 12,
	}))
}

func TestSeriesBucketsAndSummarizes(t *testing.T) {
	svc, _ := setupPerformanceService(t)

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	// Two samples in the first five minute bucket, one in the third.
	recordSampleAt(t, svc, start.Add(1*time.Minute), 0.2, 100, 5)
	recordSampleAt(t, svc, start.Add(3*time.Minute), 0.4, 200, 5)
	recordSampleAt(t, svc, start.Add(11*time.Minute), 0.8, 50, 0)

	resp, err := svc.Series(context.Background(), perfdomain.SeriesRequest{
		Start:  start,
		End:    start.Add(15 * time.Minute),
		Bucket: 5 * time.Minute,
	})
	require.NoError(t, err)
	require.Len(t, resp.Points, 2)

	first := resp.Points[0]
	require.Equal(t, start, first.BucketStart)
	require.InDelta(t, 0.3, first.AvgCPUUsage, 1e-9)
	require.EqualValues(t, 300, first.RequestCount)
	require.EqualValues(t, 10, first.ErrorCount)
	require.EqualValues(t, 2, first.SampleCount)

	second := resp.Points[1]
	require.Equal(t, start.Add(10*time.Minute), second.BucketStart)
	require.InDelta(t, 0.8, second.AvgCPUUsage, 1e-9)

	require.InDelta(t, 0.8, resp.Summary.PeakCPUUsage, 1e-9)
	require.InDelta(t, (0.2+0.4+0.8)/3, resp.Summary.AvgCPUUsage, 1e-9)
	require.EqualValues(t, 350, resp.Summary.TotalRequests)
	require.EqualValues(t, 10, resp.Summary.TotalErrors)
}

func TestSeriesRejectsBadInput(t *testing.T) {
	svc, _ := setupPerformanceService(t)

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := svc.Series(context.Background(), perfdomain.SeriesRequest{
		Start: start,
		End:   start.Add(-time.Hour),
	})
	require.ErrorIs(t, err, perfdomain.ErrInvalidTimeRange)

	_, err = svc.Series(context.Background(), perfdomain.SeriesRequest{
		Start:  start,
		End:    start.Add(time.Hour),
		Bucket: time.Second,
	})
	require.ErrorIs(t, err, perfdomain.ErrInvalidBucket)
}

func TestSeriesEmptyWindow(t *testing.T) {
	svc, _ := setupPerformanceService(t)

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	resp, err := svc.Series(context.Background(), perfdomain.SeriesRequest{
		Start: start,
		End:   start.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Empty(t, resp.Points)
	require.Zero(t, resp.Summary.TotalRequests)
}

func TestSeriesServedFromCache(t *testing.T) {
	svc, _ := setupPerformanceService(t)
	svc.cache = cache.NewMetricsCache(config.Config{
		CacheTTL: config.CacheTTLConfig{System: time.Minute},
	})

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	recordSampleAt(t, svc, start.Add(time.Minute), 0.2, 100, 0)

	req := perfdomain.SeriesRequest{Start: start, End: start.Add(time.Hour)}
	first, err := svc.Series(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, first.Points, 1)

	// A later write is invisible until the system TTL expires.
	recordSampleAt(t, svc, start.Add(2*time.Minute), 0.9, 100, 0)
	second, err := svc.Series(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestPurgeOlderThanRemovesStaleSamples(t *testing.T) {
	svc, dbConn := setupPerformanceService(t)

	recordSampleAt(t, svc, time.Now().UTC().AddDate(0, 0, -40), 0.1, 1, 0)
	recordSampleAt(t, svc, time.Now().UTC().AddDate(0, 0, -1), 0.1, 1, 0)

	removed, err := svc.PurgeOlderThan(context.Background(), 30)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var count int64
	require.NoError(t, dbConn.Model(&perfdomain.Sample{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	_, err = svc.PurgeOlderThan(context.Background(), -1)
	require.ErrorIs(t, err, perfdomain.ErrInvalidRetention)
}
