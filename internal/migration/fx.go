package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/seawell/laguna/internal/config"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// The embedded migrations use postgres types (TIMESTAMPTZ, JSONB)
		// and the postgres migrate driver. Other backends manage schema out
		// of band (tests build their own).
		if cfg.DBType != "postgres" {
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		return RunMigrations(sqlDB)
	}),
)
