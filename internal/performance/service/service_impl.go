package service

import (
	"context"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/brightclass/insight/internal/cache"
	"github.com/brightclass/insight/internal/clock"
	perfdomain "github.com/brightclass/insight/internal/performance/domain"
	"github.com/brightclass/insight/pkg/db/option"
	"github.com/brightclass/insight/pkg/repository"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  repository.Repository[perfdomain.Sample]
	Cache *cache.MetricsCache `optional:"true"`
	Clock clock.Clock         `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  repository.Repository[perfdomain.Sample]
	cache *cache.MetricsCache
	clock clock.Clock
}

func New(p Params) perfdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("performance.service"),
		genID: p.GenID,
		repo:  p.Repo,
		cache: p.Cache,
		clock: clk,
	}
}

func (s *Service) RecordSample(ctx context.Context, sample *perfdomain.Sample) error {
	if sample.ID == 0 {
		sample.ID = s.genID.Generate()
	}
	if sample.OccurredAt.IsZero() {
		sample.OccurredAt = s.clock.Now()
	}
	if sample.CreatedAt.IsZero() {
		sample.CreatedAt = s.clock.Now()
	}
	return s.repo.Create(ctx, sample)
}

func (s *Service) Series(ctx context.Context, req perfdomain.SeriesRequest) (perfdomain.SeriesResponse, error) {
	if req.Start.IsZero() || req.End.IsZero() || !req.End.After(req.Start) {
		return perfdomain.SeriesResponse{}, perfdomain.ErrInvalidTimeRange
	}
	bucket := req.Bucket
	if bucket <= 0 {
		bucket = 5 * time.Minute
	}
	if bucket < time.Minute {
		return perfdomain.SeriesResponse{}, perfdomain.ErrInvalidBucket
	}

	key := cache.Key("system",
		strconv.FormatInt(req.Start.UTC().Unix(), 10),
		strconv.FormatInt(req.End.UTC().Unix(), 10),
		bucket.String())
	if s.cache != nil {
		if cached, ok := s.cache.GetSystem(key); ok {
			return cached, nil
		}
	}

	rows, err := s.repo.Find(ctx, &perfdomain.Sample{},
		option.WithWhere("occurred_at >= ?", req.Start.UTC()),
		option.WithWhere("occurred_at < ?", req.End.UTC()),
		option.WithOrder("occurred_at ASC"),
	)
	if err != nil {
		return perfdomain.SeriesResponse{}, err
	}

	resp := bucketSamples(rows, req.Start.UTC(), bucket)
	if s.cache != nil {
		s.cache.SetSystem(key, resp)
	}
	return resp, nil
}

// bucketSamples folds ordered samples into fixed-width buckets and
// accumulates the window summary in the same pass.
func bucketSamples(rows []*perfdomain.Sample, start time.Time, bucket time.Duration) perfdomain.SeriesResponse {
	var (
		points  []perfdomain.SeriesPoint
		current *perfdomain.SeriesPoint
		summary perfdomain.Summary
		samples int64
	)

	flush := func() {
		if current == nil {
			return
		}
		if current.SampleCount > 0 {
			n := float64(current.SampleCount)
			current.AvgCPUUsage /= n
			current.AvgMemoryUsage /= n
			current.AvgResponseTime /= n
		}
		points = append(points, *current)
		current = nil
	}

	for _, row := range rows {
		bucketStart := start.Add(row.OccurredAt.Sub(start).Truncate(bucket))
		if current == nil || !current.BucketStart.Equal(bucketStart) {
			flush()
			current = &perfdomain.SeriesPoint{BucketStart: bucketStart}
		}
		current.AvgCPUUsage += row.CPUUsage
		current.AvgMemoryUsage += row.MemoryUsage
		current.AvgResponseTime += row.AverageResponseTime
		current.RequestCount += row.RequestCount
		current.ErrorCount += row.ErrorCount
		current.SampleCount++

		summary.AvgCPUUsage += row.CPUUsage
		summary.AvgMemoryUsage += row.MemoryUsage
		if row.CPUUsage > summary.PeakCPUUsage {
			summary.PeakCPUUsage = row.CPUUsage
		}
		summary.TotalRequests += row.RequestCount
		summary.TotalErrors += row.ErrorCount
		samples++
	}
	flush()

	if samples > 0 {
		summary.AvgCPUUsage /= float64(samples)
		summary.AvgMemoryUsage /= float64(samples)
	}
	return perfdomain.SeriesResponse{Points: points, Summary: summary}
}

func (s *Service) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, perfdomain.ErrInvalidRetention
	}

	cutoff := s.clock.Now().AddDate(0, 0, -days)
	result := s.db.WithContext(ctx).
		Where("occurred_at < ?", cutoff).
		Delete(&perfdomain.Sample{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
