package cart

import (
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	cartdomain "github.com/seawell/laguna/internal/cart/domain"
	"github.com/seawell/laguna/internal/cart/repository"
	"github.com/seawell/laguna/internal/cart/service"
	"github.com/seawell/laguna/internal/config"
)

var Module = fx.Module("cart.service",
	fx.Provide(
		func(cfg config.Config, client *redis.Client) cartdomain.Store {
			return repository.NewRedisStore(client, time.Duration(cfg.CartTTLHours)*time.Hour)
		},
		service.NewService,
	),
)
