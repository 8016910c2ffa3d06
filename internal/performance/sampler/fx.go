package sampler

import (
	"context"

	"go.uber.org/fx"

	"github.com/brightclass/insight/internal/config"
)

// WorkerModule provides the sampler without starting it; the scheduler
// drives RunOnce from its snapshot job.
var WorkerModule = fx.Module("performance.sampler",
	fx.Provide(provideConfig),
	fx.Provide(NewWorker),
)

// Module starts the sampler on its own ticker, for processes that do
// not run a scheduler loop.
var Module = fx.Module("performance.sampler.run",
	WorkerModule,
	fx.Invoke(runWorker),
)

func provideConfig(cfg config.Config) Config {
	c := DefaultConfig()
	c.Interval = cfg.Jobs.SnapshotInterval
	c.HostID = cfg.InstanceID
	return c
}

func runWorker(lc fx.Lifecycle, worker *Worker) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go worker.RunForever(ctx)

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
