package category

import (
	"go.uber.org/fx"

	"github.com/seawell/laguna/internal/category/repository"
	"github.com/seawell/laguna/internal/category/service"
)

var Module = fx.Module("category.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
