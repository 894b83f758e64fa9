package providers

import (
	"go.uber.org/fx"

	"github.com/seawell/laguna/internal/providers/email"
	"github.com/seawell/laguna/internal/providers/pdf"
	"github.com/seawell/laguna/internal/providers/redis"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
	redis.Module,
)
