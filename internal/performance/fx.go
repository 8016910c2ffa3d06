package performance

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	perfdomain "github.com/brightclass/insight/internal/performance/domain"
	"github.com/brightclass/insight/internal/performance/sampler"
	"github.com/brightclass/insight/internal/performance/service"
	"github.com/brightclass/insight/pkg/repository"
)

var Module = fx.Module("performance",
	fx.Provide(func(db *gorm.DB) repository.Repository[perfdomain.Sample] {
		return repository.ProvideStore[perfdomain.Sample](db)
	}),
	fx.Provide(sampler.NewCollector),
	fx.Provide(service.New),
)

// SamplerModule starts the sampler on its own ticker, for the API
// binary. The scheduler binary mounts sampler.WorkerModule instead and
// drives snapshots from its job loop.
var SamplerModule = sampler.Module
