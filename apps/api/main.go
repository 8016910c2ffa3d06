package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/brightclass/insight/internal/clock"
	"github.com/brightclass/insight/internal/config"
	"github.com/brightclass/insight/internal/migration"
	"github.com/brightclass/insight/internal/observability"
	"github.com/brightclass/insight/internal/performance"
	"github.com/brightclass/insight/internal/server"
	"github.com/brightclass/insight/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// The API binary samples its own host. The scheduler binary
		// mounts the bare worker and drives snapshots from its job loop.
		performance.Module,
		performance.SamplerModule,

		server.Module,
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
