package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/brightclass/insight/internal/clock"
	"github.com/brightclass/insight/internal/config"
	"github.com/brightclass/insight/internal/migration"
	"github.com/brightclass/insight/internal/observability"
	"github.com/brightclass/insight/internal/performance"
	"github.com/brightclass/insight/internal/performance/sampler"
	"github.com/brightclass/insight/internal/scheduler"
	"github.com/brightclass/insight/internal/server"
	"github.com/brightclass/insight/pkg/db"
)

// Standalone binary: HTTP API and job scheduler in one process, backed
// by sqlite unless DB_TYPE says otherwise.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		performance.Module,
		sampler.WorkerModule,

		server.Module,
		scheduler.Module,
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
