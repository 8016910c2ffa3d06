package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/brightclass/insight/internal/adaptation"
	adaptationdomain "github.com/brightclass/insight/internal/adaptation/domain"
	"github.com/brightclass/insight/internal/analytics"
	analyticsdomain "github.com/brightclass/insight/internal/analytics/domain"
	"github.com/brightclass/insight/internal/analytics/report"
	"github.com/brightclass/insight/internal/apikey"
	apikeydomain "github.com/brightclass/insight/internal/apikey/domain"
	"github.com/brightclass/insight/internal/cache"
	"github.com/brightclass/insight/internal/cloudmetrics"
	"github.com/brightclass/insight/internal/config"
	"github.com/brightclass/insight/internal/event"
	eventdomain "github.com/brightclass/insight/internal/event/domain"
	"github.com/brightclass/insight/internal/observability"
	obsmiddleware "github.com/brightclass/insight/internal/observability/logger"
	obsmetrics "github.com/brightclass/insight/internal/observability/metrics"
	obstracing "github.com/brightclass/insight/internal/observability/tracing"
	perfdomain "github.com/brightclass/insight/internal/performance/domain"
	"github.com/brightclass/insight/internal/ratelimit"
	"github.com/brightclass/insight/internal/sensorybreak"
	breakdomain "github.com/brightclass/insight/internal/sensorybreak/domain"
)

var Module = fx.Module("http.server",
	cloudmetrics.Module,
	fx.Provide(registerGin),
	apikey.Module,
	cache.Module,
	event.Module,
	analytics.Module,
	sensorybreak.Module,
	adaptation.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	genID  *snowflake.Node

	apiKeySvc    apikeydomain.Service
	eventSvc     eventdomain.Service
	analyticsSvc analyticsdomain.Service
	perfSvc      perfdomain.Service
	breakSvc     breakdomain.Service
	adaptSvc     adaptationdomain.Service
	reports      *report.Generator

	obsMetrics   *obsmetrics.Metrics
	eventLimiter *ratelimit.EventIngestLimiter
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	DB    *gorm.DB
	GenID *snowflake.Node

	APIKeySvc    apikeydomain.Service
	EventSvc     eventdomain.Service
	AnalyticsSvc analyticsdomain.Service
	PerfSvc      perfdomain.Service
	BreakSvc     breakdomain.Service
	AdaptSvc     adaptationdomain.Service
	Reports      *report.Generator

	ObsMetrics   *obsmetrics.Metrics           `optional:"true"`
	EventLimiter *ratelimit.EventIngestLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		apiKeySvc:    p.APIKeySvc,
		eventSvc:     p.EventSvc,
		analyticsSvc: p.AnalyticsSvc,
		perfSvc:      p.PerfSvc,
		breakSvc:     p.BreakSvc,
		adaptSvc:     p.AdaptSvc,
		reports:      p.Reports,
		obsMetrics:   p.ObsMetrics,
		eventLimiter: p.EventLimiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Events --------
	v1.POST("/events", s.APIKeyRequired(apikeydomain.ScopeEventsWrite), s.EventIngestRateLimit(), s.RecordEvent)
	v1.GET("/events", s.APIKeyRequired(apikeydomain.ScopeAnalyticsRead), s.ListEvents)

	// -------- Analytics --------
	v1.GET("/analytics/dashboard", s.APIKeyRequired(apikeydomain.ScopeAnalyticsRead), s.GetDashboard)
	v1.GET("/analytics/dashboard/export", s.APIKeyRequired(apikeydomain.ScopeAnalyticsRead), s.ExportDashboard)
	v1.GET("/analytics/tenants/:id", s.APIKeyRequired(apikeydomain.ScopeAnalyticsRead), s.GetTenantAnalytics)
	v1.GET("/analytics/users/:id", s.APIKeyRequired(apikeydomain.ScopeAnalyticsRead), s.GetUserAnalytics)
	v1.GET("/analytics/performance", s.APIKeyRequired(apikeydomain.ScopeAnalyticsRead), s.GetPerformanceSeries)

	// -------- Sensory breaks --------
	v1.POST("/breaks/recommendations", s.APIKeyRequired(apikeydomain.ScopeAnalyticsRead), s.RecommendBreak)
	v1.POST("/breaks/schedule", s.APIKeyRequired(apikeydomain.ScopeAnalyticsRead), s.ScheduleBreaks)
	v1.POST("/breaks/schedule/adjust", s.APIKeyRequired(apikeydomain.ScopeAnalyticsRead), s.AdjustBreakSchedule)
	v1.POST("/breaks/effectiveness", s.APIKeyRequired(apikeydomain.ScopeEventsWrite), s.TrackBreakEffectiveness)

	// -------- Content adaptation --------
	v1.POST("/adaptations", s.APIKeyRequired(apikeydomain.ScopeAnalyticsRead), s.AdaptContent)

	// -------- API keys --------
	v1.GET("/api-keys/scopes", s.APIKeyRequired(apikeydomain.ScopeKeysManage), s.ListAPIKeyScopes)
	v1.GET("/api-keys", s.APIKeyRequired(apikeydomain.ScopeKeysManage), s.ListAPIKeys)
	v1.POST("/api-keys", s.APIKeyRequired(apikeydomain.ScopeKeysManage), s.CreateAPIKey)
	v1.POST("/api-keys/:key_id/rotate", s.APIKeyRequired(apikeydomain.ScopeKeysManage), s.RotateAPIKey)
	v1.POST("/api-keys/:key_id/revoke", s.APIKeyRequired(apikeydomain.ScopeKeysManage), s.RevokeAPIKey)
}
