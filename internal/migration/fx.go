package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	bookingdomain "github.com/smallbiznis/bookline/internal/booking/domain"
	capacitydomain "github.com/smallbiznis/bookline/internal/capacity/domain"
	"github.com/smallbiznis/bookline/internal/config"
	proposaldomain "github.com/smallbiznis/bookline/internal/proposal/domain"
	"github.com/smallbiznis/bookline/internal/seed"
	tenantdomain "github.com/smallbiznis/bookline/internal/tenant/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql (dev setups) build the schema from the models
			if err := conn.AutoMigrate(
				&capacitydomain.Slot{},
				&bookingdomain.Job{},
				&bookingdomain.IdempotencyRecord{},
				&proposaldomain.Proposal{},
				&tenantdomain.PhoneBinding{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedDemoTenant {
			return seed.EnsureDemoTenant(conn)
		}
		return nil
	}),
)
