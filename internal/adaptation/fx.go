package adaptation

import (
	"go.uber.org/fx"
)

var Module = fx.Module("adaptation",
	fx.Provide(NewEngineClient),
	fx.Provide(New),
)
