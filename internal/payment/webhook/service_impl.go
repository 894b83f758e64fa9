package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	gatewaydomain "github.com/seawell/laguna/internal/gatewayconfig/domain"
	"github.com/seawell/laguna/internal/payment/adapters"
	paymentdomain "github.com/seawell/laguna/internal/payment/domain"
	paymentservice "github.com/seawell/laguna/internal/payment/service"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	PaymentSvc *paymentservice.Service
	GatewaySvc gatewaydomain.Service
	Adapters   *adapters.Registry
}

type Service struct {
	log        *zap.Logger
	paymentSvc *paymentservice.Service
	gatewaySvc gatewaydomain.Service
	adapters   *adapters.Registry
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		log:        p.Log.Named("payment.webhook"),
		paymentSvc: p.PaymentSvc,
		gatewaySvc: p.GatewaySvc,
		adapters:   p.Adapters,
	}
}

// IngestWebhook authenticates a raw delivery and hands the parsed event to
// the processor. No unverified payload reaches any later stage.
func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	if s.adapters == nil || !s.adapters.ProviderExists(provider) {
		return paymentdomain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}

	cfg, err := s.gatewaySvc.ActiveConfig(ctx, provider)
	if err != nil {
		if errors.Is(err, gatewaydomain.ErrConfigNotFound) {
			return paymentdomain.ErrProviderNotFound
		}
		return err
	}

	adapter, err := s.adapters.NewAdapter(provider, paymentdomain.AdapterConfig{
		Provider: provider,
		Config:   cfg,
	})
	if err != nil {
		return err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		return err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			return s.recordUnhandledEvent(ctx, provider, payload)
		}
		return err
	}
	event.Provider = provider
	if event.RawPayload == nil {
		event.RawPayload = payload
	}

	return s.paymentSvc.ProcessEvent(ctx, event, adapter, payload)
}

// recordUnhandledEvent treats an event type no adapter handles as fatal for
// the invocation, mirroring the missing-identity case: the ledger row is
// written with an error outcome so the redelivery is acknowledged instead of
// retried forever.
func (s *Service) recordUnhandledEvent(ctx context.Context, provider string, payload []byte) error {
	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil || strings.TrimSpace(envelope.ID) == "" {
		return paymentdomain.ErrEventIgnored
	}

	s.log.Warn("unhandled event type",
		zap.String("provider", provider),
		zap.String("provider_event_id", envelope.ID),
		zap.String("event_type", envelope.Type),
	)

	if err := s.paymentSvc.RecordIgnoredEvent(ctx, provider, envelope.ID, envelope.Type, payload); err != nil {
		return err
	}
	return paymentdomain.ErrEventIgnored
}
