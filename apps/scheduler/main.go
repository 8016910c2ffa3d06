package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/brightclass/insight/internal/analytics"
	"github.com/brightclass/insight/internal/cache"
	"github.com/brightclass/insight/internal/clock"
	"github.com/brightclass/insight/internal/cloudmetrics"
	"github.com/brightclass/insight/internal/config"
	"github.com/brightclass/insight/internal/event"
	"github.com/brightclass/insight/internal/observability"
	"github.com/brightclass/insight/internal/performance"
	"github.com/brightclass/insight/internal/performance/sampler"
	"github.com/brightclass/insight/internal/ratelimit"
	"github.com/brightclass/insight/internal/scheduler"
	"github.com/brightclass/insight/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services the jobs run against.
		event.Module,
		cache.Module,
		analytics.Module,
		performance.Module,
		sampler.WorkerModule,
		ratelimit.Module,

		// No server module; metrics are scraped from the sidecar port.
		scheduler.Module,
		fx.Invoke(cloudmetrics.RegisterInstrumentation),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
