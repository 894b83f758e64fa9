package audit

import (
	"go.uber.org/fx"

	"github.com/seawell/laguna/internal/audit/repository"
	"github.com/seawell/laguna/internal/audit/service"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
