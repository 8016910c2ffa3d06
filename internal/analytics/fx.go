package analytics

import (
	"go.uber.org/fx"

	"github.com/brightclass/insight/internal/analytics/report"
	"github.com/brightclass/insight/internal/analytics/rollup"
	"github.com/brightclass/insight/internal/analytics/service"
)

var Module = fx.Module("analytics",
	fx.Provide(rollup.NewService),
	fx.Provide(service.New),
	fx.Provide(report.NewGenerator),
)
