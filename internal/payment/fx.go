package payment

import (
	"go.uber.org/fx"

	"github.com/seawell/laguna/internal/payment/adapters"
	"github.com/seawell/laguna/internal/payment/adapters/stripe"
	"github.com/seawell/laguna/internal/payment/repository"
	paymentservice "github.com/seawell/laguna/internal/payment/service"
	"github.com/seawell/laguna/internal/payment/webhook"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			stripe.NewFactory(),
		)
	}),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
)
