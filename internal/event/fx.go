package event

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	eventdomain "github.com/brightclass/insight/internal/event/domain"
	"github.com/brightclass/insight/internal/event/service"
	"github.com/brightclass/insight/pkg/repository"
)

var Module = fx.Module("event",
	fx.Provide(func(db *gorm.DB) repository.Repository[eventdomain.Event] {
		return repository.ProvideStore[eventdomain.Event](db)
	}),
	fx.Provide(service.New),
)
