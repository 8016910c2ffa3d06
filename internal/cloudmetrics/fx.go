package cloudmetrics

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/brightclass/insight/internal/config"
)

const pushInterval = 30 * time.Minute

var Module = fx.Module("cloud.metrics",
	fx.Provide(NewPusher),
	fx.Provide(func(cfg config.Config, pusher Pusher, logger *zap.Logger) *CloudMetrics {
		if pusher == nil {
			return nil
		}
		return New(nil, pusher, cfg.InstanceID, cfg.AppVersion, cfg.Cloud.TenantID, logger)
	}),
	fx.Invoke(runPushWorker),
)

func runPushWorker(lc fx.Lifecycle, c *CloudMetrics, logger *zap.Logger, db *gorm.DB) {
	if c == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	setRecorder(c)

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("starting cloud metrics background worker")
			go func() {
				ticker := time.NewTicker(pushInterval)
				defer ticker.Stop()

				pushOnce(ctx, c, db, logger)
				for {
					select {
					case <-ticker.C:
						pushOnce(ctx, c, db, logger)
					case <-ctx.Done():
						logger.Info("stopping cloud metrics background worker")
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			if closer, ok := c.pusher.(interface{ Close() error }); ok {
				return closer.Close()
			}
			return nil
		},
	})
}

func pushOnce(ctx context.Context, c *CloudMetrics, db *gorm.DB, logger *zap.Logger) {
	updateSystemMetrics(c)
	updateTenantCount(ctx, c, db)
	if err := c.Push(ctx); err != nil {
		logger.Warn("cloud metrics push failed", zap.Error(err))
	}
}

func updateSystemMetrics(c *CloudMetrics) {
	if c == nil {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	c.SetMemoryUsage(m.Sys)
}

func updateTenantCount(ctx context.Context, c *CloudMetrics, db *gorm.DB) {
	if c == nil || db == nil {
		return
	}
	var count int64
	err := db.WithContext(ctx).
		Table("analytics_events").
		Distinct("tenant_id").
		Count(&count).Error
	if err != nil {
		return
	}
	c.SetTenantsTotal(count)
}
