package gatewayconfig

import (
	"go.uber.org/fx"

	"github.com/seawell/laguna/internal/config"
	"github.com/seawell/laguna/internal/gatewayconfig/crypto"
	"github.com/seawell/laguna/internal/gatewayconfig/repository"
	"github.com/seawell/laguna/internal/gatewayconfig/service"
)

var Module = fx.Module("gatewayconfig",
	fx.Provide(func(cfg config.Config) *crypto.Cipher {
		return crypto.NewCipher(cfg.GatewayConfigSecret)
	}),
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
