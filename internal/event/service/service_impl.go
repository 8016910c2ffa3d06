package service

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/brightclass/insight/internal/clock"
	"github.com/brightclass/insight/internal/config"
	eventdomain "github.com/brightclass/insight/internal/event/domain"
	obsmetrics "github.com/brightclass/insight/internal/observability/metrics"
	"github.com/brightclass/insight/pkg/db/option"
	"github.com/brightclass/insight/pkg/db/pagination"
	"github.com/brightclass/insight/pkg/repository"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      repository.Repository[eventdomain.Event]
	Overrides *config.OverridesHolder
	Metrics   *obsmetrics.Metrics `optional:"true"`
	Clock     clock.Clock         `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      repository.Repository[eventdomain.Event]
	overrides *config.OverridesHolder
	metrics   *obsmetrics.Metrics
	clock     clock.Clock
	randFloat func() float64
}

func New(p Params) eventdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("event.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		overrides: p.Overrides,
		metrics:   p.Metrics,
		clock:     clk,
		randFloat: rand.Float64,
	}
}

func (s *Service) Record(ctx context.Context, req eventdomain.RecordRequest) error {
	eventType := strings.TrimSpace(req.EventType)
	if eventType == "" {
		return eventdomain.ErrInvalidEventType
	}

	rate := s.overrides.Get().Sampling.RateFor(eventType)
	if rate < 1 && s.randFloat() >= rate {
		s.metrics.RecordEventSampledOut(ctx, eventType)
		return nil
	}

	occurredAt := s.clock.Now()
	if req.OccurredAt != nil && !req.OccurredAt.IsZero() {
		occurredAt = req.OccurredAt.UTC()
	}

	event := eventdomain.Event{
		ID:         s.genID.Generate(),
		OccurredAt: occurredAt,
		EventType:  eventType,
		Properties: toJSONMap(req.Properties),
		CreatedAt:  s.clock.Now(),
	}
	if req.TenantID != nil && *req.TenantID != 0 {
		tenantID := snowflake.ID(*req.TenantID)
		event.TenantID = &tenantID
	}
	if userID := strings.TrimSpace(req.UserID); userID != "" {
		event.UserID = &userID
	}
	if sessionID := strings.TrimSpace(req.SessionID); sessionID != "" {
		event.SessionID = &sessionID
	}

	if err := s.repo.Create(ctx, &event); err != nil {
		// Event loss is acceptable; ingest must never fail the caller.
		s.log.Warn("event insert failed",
			zap.Error(err),
			zap.String("event_type", eventType),
		)
		return nil
	}

	s.metrics.RecordEvent(ctx, eventType)
	return nil
}

func (s *Service) Query(ctx context.Context, req eventdomain.QueryRequest) (eventdomain.QueryResponse, error) {
	if req.Start != nil && req.End != nil && req.End.Before(*req.Start) {
		return eventdomain.QueryResponse{}, eventdomain.ErrInvalidTimeRange
	}

	limit := req.Pagination.PageSize
	if limit <= 0 {
		limit = 10
	}
	if limit > 250 {
		limit = 250
	}

	opts := []option.QueryOption{
		option.WithOrder("occurred_at DESC, id DESC"),
		option.WithLimit(limit + 1),
	}
	if req.Start != nil {
		opts = append(opts, option.WithWhere("occurred_at >= ?", req.Start.UTC()))
	}
	if req.End != nil {
		opts = append(opts, option.WithWhere("occurred_at < ?", req.End.UTC()))
	}
	if req.TenantID != nil {
		opts = append(opts, option.WithWhere("tenant_id = ?", *req.TenantID))
	}
	if prefix := strings.TrimSpace(req.EventTypePrefix); prefix != "" {
		opts = append(opts, option.WithWhere("event_type LIKE ?", prefix+"%"))
	}
	if userID := strings.TrimSpace(req.UserID); userID != "" {
		opts = append(opts, option.WithWhere("user_id = ?", userID))
	}

	if token := strings.TrimSpace(req.Pagination.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return eventdomain.QueryResponse{}, err
		}
		lastID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return eventdomain.QueryResponse{}, err
		}
		opts = append(opts, option.WithWhere("id < ?", lastID))
	}

	rows, err := s.repo.Find(ctx, &eventdomain.Event{}, opts...)
	if err != nil {
		return eventdomain.QueryResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, int32(limit), func(e *eventdomain.Event) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        e.ID.String(),
			CreatedAt: e.OccurredAt.UTC().Format(time.RFC3339Nano),
		})
		return token
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}

	return eventdomain.QueryResponse{Events: rows, PageInfo: pageInfo}, nil
}

func (s *Service) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, eventdomain.ErrInvalidRetention
	}

	cutoff := s.clock.Now().AddDate(0, 0, -days)
	result := s.db.WithContext(ctx).
		Where("occurred_at < ?", cutoff).
		Delete(&eventdomain.Event{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (s *Service) DistinctTenants(ctx context.Context, day time.Time) ([]snowflake.ID, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var tenantIDs []snowflake.ID
	err := s.db.WithContext(ctx).
		Model(&eventdomain.Event{}).
		Distinct("tenant_id").
		Where("occurred_at >= ? AND occurred_at < ?", dayStart, dayEnd).
		Where("tenant_id IS NOT NULL").
		Pluck("tenant_id", &tenantIDs).Error
	if err != nil {
		return nil, err
	}
	return tenantIDs, nil
}

func toJSONMap(properties map[string]any) datatypes.JSONMap {
	if len(properties) == 0 {
		return datatypes.JSONMap{}
	}
	out := make(datatypes.JSONMap, len(properties))
	for k, v := range properties {
		out[k] = v
	}
	return out
}
