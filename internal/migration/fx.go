package migration

import (
	"context"

	"github.com/smallbiznis/gymcore/internal/config"
	"github.com/smallbiznis/gymcore/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, seeder *seed.Seeder, log *zap.Logger) error {
		log = log.Named("migration")

		if conn.Dialector.Name() == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := ApplySchema(conn); err != nil {
				return err
			}
		}
		log.Info("schema ready", zap.String("dialect", conn.Dialector.Name()))

		return seeder.EnsurePlatformAdmin(context.Background(), cfg.Bootstrap)
	}),
)
