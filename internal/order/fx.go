package order

import (
	"go.uber.org/fx"

	"github.com/seawell/laguna/internal/order/repository"
	"github.com/seawell/laguna/internal/order/service"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
