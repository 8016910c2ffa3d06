package scheduler

import (
	"context"

	"go.uber.org/fx"

	"github.com/brightclass/insight/internal/config"
	"github.com/brightclass/insight/internal/performance/sampler"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(provideRetention),
	fx.Provide(provideSnapshotRunner),
	fx.Provide(New),
	fx.Invoke(StartScheduler),
)

func provideRetention(cfg config.Config) config.RetentionConfig {
	return cfg.Retention
}

func provideSnapshotRunner(worker *sampler.Worker) SnapshotRunner {
	return worker
}

func StartScheduler(lc fx.Lifecycle, sched *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go sched.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
