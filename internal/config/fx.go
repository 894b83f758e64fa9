package config

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/seawell/laguna/pkg/db"
)

var Module = fx.Module("config",
	fx.Provide(
		Load,
		func(cfg Config) db.Config {
			return cfg.DB()
		},
		func(cfg Config, log *zap.Logger) (*StoreWatcher, error) {
			return NewStoreWatcher(cfg.StorePath, log)
		},
	),
)
