package apikey

import (
	"go.uber.org/fx"

	"github.com/brightclass/insight/internal/apikey/repository"
	"github.com/brightclass/insight/internal/apikey/service"
)

var Module = fx.Module("apikey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
