package notification

import (
	"go.uber.org/fx"

	"github.com/seawell/laguna/internal/notification/repository"
	"github.com/seawell/laguna/internal/notification/service"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
