package catalog

import (
	"go.uber.org/fx"

	"github.com/seawell/laguna/internal/catalog/repository"
	"github.com/seawell/laguna/internal/catalog/service"
)

var Module = fx.Module("catalog.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
