package migration

import (
	"strings"

	"go.uber.org/fx"
	"gorm.io/gorm"

	analyticsdomain "github.com/brightclass/insight/internal/analytics/domain"
	apikeydomain "github.com/brightclass/insight/internal/apikey/domain"
	"github.com/brightclass/insight/internal/config"
	eventdomain "github.com/brightclass/insight/internal/event/domain"
	perfdomain "github.com/brightclass/insight/internal/performance/domain"
	breakdomain "github.com/brightclass/insight/internal/sensorybreak/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned SQL only runs against postgres; sqlite deployments
		// fall back to AutoMigrate.
		if !strings.EqualFold(cfg.DBType, "postgres") {
			return conn.AutoMigrate(
				&eventdomain.Event{},
				&analyticsdomain.DailyMetric{},
				&perfdomain.Sample{},
				&apikeydomain.APIKey{},
				&breakdomain.Effectiveness{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
