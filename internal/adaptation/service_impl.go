package adaptation

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/brightclass/insight/internal/adaptation/domain"
	"github.com/brightclass/insight/internal/cloudmetrics"
	obsmetrics "github.com/brightclass/insight/internal/observability/metrics"
	"github.com/brightclass/insight/internal/tenantcontext"
	"github.com/brightclass/insight/pkg/retry"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Client  *EngineClient
	Metrics *obsmetrics.Metrics `optional:"true"`
	Policy  retry.Policy        `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	client  *EngineClient
	metrics *obsmetrics.Metrics
	policy  retry.Policy
}

func New(p Params) domain.Service {
	policy := p.Policy
	if policy.Attempts == 0 {
		policy = retry.DefaultPolicy()
	}
	return &Service{
		log:     p.Log.Named("adaptation.service"),
		client:  p.Client,
		metrics: p.Metrics,
		policy:  policy,
	}
}

// Adapt calls the AI engine with retries and falls back to the
// deterministic templates when the engine stays unavailable. Permanent
// rejections are surfaced to the caller instead of masked.
func (s *Service) Adapt(ctx context.Context, req domain.AdaptRequest) (domain.AdaptResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return domain.AdaptResponse{}, domain.ErrInvalidContent
	}
	difference := strings.ToLower(strings.TrimSpace(req.LearningDifference))

	var html string
	err := s.policy.Do(ctx, func(ctx context.Context) error {
		var callErr error
		html, callErr = s.client.Transform(ctx, req)
		return callErr
	}, IsTransient)

	if err == nil {
		s.metrics.RecordAdaptation(ctx, difference, false)
		return domain.AdaptResponse{HTML: html, Fallback: false}, nil
	}
	if errors.Is(err, domain.ErrEngineRejected) {
		return domain.AdaptResponse{}, err
	}

	cloudmetrics.RecordEngineError(tenantLabel(ctx), "transform")
	s.log.Warn("ai engine unavailable, using fallback",
		zap.Error(err),
		zap.String("learning_difference", difference),
	)

	rendered, renderErr := renderFallback(req)
	if renderErr != nil {
		return domain.AdaptResponse{}, renderErr
	}

	s.metrics.RecordAdaptation(ctx, difference, true)
	return domain.AdaptResponse{HTML: rendered, Fallback: true}, nil
}

func tenantLabel(ctx context.Context) string {
	tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
	if !ok {
		return ""
	}
	return tenantID.String()
}
