package sensorybreak

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	breakdomain "github.com/brightclass/insight/internal/sensorybreak/domain"
	"github.com/brightclass/insight/internal/sensorybreak/service"
	"github.com/brightclass/insight/pkg/repository"
)

var Module = fx.Module("sensorybreak",
	fx.Provide(func(db *gorm.DB) repository.Repository[breakdomain.Effectiveness] {
		return repository.ProvideStore[breakdomain.Effectiveness](db)
	}),
	fx.Provide(service.New),
)
