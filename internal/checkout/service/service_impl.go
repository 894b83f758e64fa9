package service

import (
	"context"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	stripeapi "github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cartdomain "github.com/seawell/laguna/internal/cart/domain"
	"github.com/seawell/laguna/internal/checkout/domain"
	"github.com/seawell/laguna/internal/config"
	gatewaydomain "github.com/seawell/laguna/internal/gatewayconfig/domain"
	"github.com/seawell/laguna/internal/observability/metrics"
	"github.com/seawell/laguna/internal/ratelimit"
)

const (
	keyCheckoutIdem = "checkout:idem:"
	idemClaimTTL    = 24 * time.Hour
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	CartSvc    cartdomain.Service
	GatewaySvc gatewaydomain.Service
	Redis      *redis.Client
	ObsMetrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	cfg        config.Config
	cartSvc    cartdomain.Service
	gatewaySvc gatewaydomain.Service
	locker     *ratelimit.Locker
	metrics    *metrics.Metrics

	// newAPI is swapped in tests to avoid real gateway calls.
	newAPI func(apiKey string) stripeAPI
}

type stripeAPI interface {
	NewCheckoutSession(params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
}

type liveAPI struct {
	api *client.API
}

func (l *liveAPI) NewCheckoutSession(params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	return l.api.CheckoutSessions.New(params)
}

func NewService(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("checkout.service"),
		cfg:        p.Cfg,
		cartSvc:    p.CartSvc,
		gatewaySvc: p.GatewaySvc,
		locker:     ratelimit.NewLocker(p.Redis),
		metrics:    p.ObsMetrics,
		newAPI: func(apiKey string) stripeAPI {
			sc := &client.API{}
			sc.Init(apiKey, nil)
			return &liveAPI{api: sc}
		},
	}
}

func (s *Service) CreateSession(ctx context.Context, req domain.CreateSessionRequest) (*domain.CreateSessionResponse, error) {
	view, err := s.cartSvc.Get(ctx, req.CartToken)
	if err != nil {
		return nil, err
	}
	if len(view.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	if key := strings.TrimSpace(req.IdempotencyKey); key != "" && s.locker != nil {
		_, claimed, err := s.locker.TryLock(ctx, keyCheckoutIdem+key, idemClaimTTL)
		if err != nil {
			s.log.Warn("idempotency claim failed, proceeding", zap.Error(err))
		} else if !claimed {
			return nil, domain.ErrDuplicateRequest
		}
	}

	gatewayCfg, err := s.gatewaySvc.ActiveConfig(ctx, "stripe")
	if err != nil {
		return nil, domain.ErrGatewayUnavailable
	}
	apiKey, _ := gatewayCfg["secret_key"].(string)
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, domain.ErrGatewayUnavailable
	}

	params := &stripeapi.CheckoutSessionParams{
		Mode:       stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		SuccessURL: stripeapi.String(s.cfg.CheckoutSuccessURL),
		CancelURL:  stripeapi.String(s.cfg.CheckoutCancelURL),
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.IdempotencyKey = stripeapi.String(key)
	}

	if userRef := strings.TrimSpace(req.UserRef); userRef != "" {
		params.ClientReferenceID = stripeapi.String(userRef)
	} else if email := strings.TrimSpace(req.CustomerEmail); email != "" {
		params.CustomerEmail = stripeapi.String(strings.ToLower(email))
	}

	for _, item := range view.Items {
		params.LineItems = append(params.LineItems, &stripeapi.CheckoutSessionLineItemParams{
			Quantity: stripeapi.Int64(int64(item.Quantity)),
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripeapi.String(view.Currency),
				UnitAmount: stripeapi.Int64(item.UnitAmount),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripeapi.String(item.Name),
					Metadata: map[string]string{
						"product_id": item.ProductID,
					},
				},
			},
		})
	}

	session, err := s.newAPI(apiKey).NewCheckoutSession(params)
	if err != nil {
		s.log.Error("checkout session create failed", zap.Error(err))
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordCheckoutSession(ctx, "stripe")
	}
	s.log.Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.Int("line_items", len(view.Items)),
	)

	return &domain.CreateSessionResponse{
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}
