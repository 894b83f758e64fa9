package review

import (
	"go.uber.org/fx"

	"github.com/seawell/laguna/internal/review/repository"
	"github.com/seawell/laguna/internal/review/service"
)

var Module = fx.Module("review.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
