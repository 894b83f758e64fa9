package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	auditdomain "github.com/seawell/laguna/internal/audit/domain"
	"github.com/seawell/laguna/internal/clock"
	notificationservice "github.com/seawell/laguna/internal/notification/service"
	obsmetrics "github.com/seawell/laguna/internal/observability/metrics"
	orderservice "github.com/seawell/laguna/internal/order/service"
	paymentdomain "github.com/seawell/laguna/internal/payment/domain"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clk        clock.Clock
	GenID      *snowflake.Node
	Repo       paymentdomain.Repository
	OrderSvc   *orderservice.Service
	NotifySvc  *notificationservice.Service
	AuditSvc   auditdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clk        clock.Clock
	genID      *snowflake.Node
	repo       paymentdomain.Repository
	orderSvc   *orderservice.Service
	notifySvc  *notificationservice.Service
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	clk := p.Clk
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		clk:        clk,
		genID:      p.GenID,
		repo:       p.Repo,
		orderSvc:   p.OrderSvc,
		notifySvc:  p.NotifySvc,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

// ProcessEvent runs a verified checkout event through the ledger claim,
// order materialization and notification dispatch. The ledger row is always
// marked processed with an outcome, even when the handler fails, so a
// permanently failing event cannot keep the gateway retrying forever.
func (s *Service) ProcessEvent(ctx context.Context, event *paymentdomain.CheckoutEvent, adapter paymentdomain.PaymentAdapter, payload []byte) error {
	if event == nil {
		return paymentdomain.ErrInvalidEvent
	}
	event.Provider = strings.ToLower(strings.TrimSpace(event.Provider))
	if event.Provider == "" {
		return paymentdomain.ErrInvalidProvider
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}
	if err := validateEvent(event); err != nil {
		return err
	}

	now := s.clk.Now().UTC()
	received := paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		SessionID:       event.SessionID,
		Payload:         datatypes.JSON(payload),
		CreatedAt:       now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			return paymentdomain.ErrEventAlreadyProcessed
		}
	}

	procErr := s.handle(ctx, event, adapter)

	outcome := paymentdomain.OutcomeSuccess
	if procErr != nil {
		outcome = paymentdomain.OutcomeError
		s.audit(ctx, "webhook.failed", "checkout_session", event.SessionID, map[string]any{
			"provider":          event.Provider,
			"provider_event_id": event.ProviderEventID,
			"error":             procErr.Error(),
		})
	}
	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, s.clk.Now().UTC(), outcome); err != nil {
		s.log.Error("failed to mark event processed",
			zap.String("provider", event.Provider),
			zap.String("provider_event_id", event.ProviderEventID),
			zap.Error(err),
		)
		if procErr == nil {
			procErr = err
		}
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, event.Provider, event.Type, outcome)
	}

	return procErr
}

// RecordIgnoredEvent writes the error-outcome ledger row for an event type
// no adapter handles. The row blocks redelivery the same way a
// missing-identity failure does, so the gateway stops retrying a type this
// system will never process. A redelivery returns ErrEventAlreadyProcessed.
func (s *Service) RecordIgnoredEvent(ctx context.Context, provider, providerEventID, eventType string, payload []byte) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	providerEventID = strings.TrimSpace(providerEventID)
	if provider == "" || providerEventID == "" {
		return paymentdomain.ErrInvalidEvent
	}

	now := s.clk.Now().UTC()
	record := paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        provider,
		ProviderEventID: providerEventID,
		EventType:       eventType,
		Payload:         datatypes.JSON(payload),
		CreatedAt:       now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &record)
	if err != nil {
		return err
	}
	if !inserted {
		stored, err := s.repo.FindEvent(ctx, s.db, provider, providerEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			return paymentdomain.ErrEventAlreadyProcessed
		}
		record.ID = stored.ID
	}

	if err := s.repo.MarkProcessed(ctx, s.db, record.ID, now, paymentdomain.OutcomeError); err != nil {
		return err
	}
	if s.obsMetrics != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, provider, eventType, paymentdomain.OutcomeError)
	}
	return nil
}

func (s *Service) handle(ctx context.Context, event *paymentdomain.CheckoutEvent, adapter paymentdomain.PaymentAdapter) error {
	if event.UserRef == "" && event.CustomerEmail == "" {
		s.log.Warn("checkout session has no customer identity",
			zap.String("session_id", event.SessionID),
		)
		return paymentdomain.ErrMissingCustomer
	}

	if len(event.Lines) == 0 {
		if adapter == nil {
			return paymentdomain.ErrInvalidEvent
		}
		lines, err := adapter.ListLineItems(ctx, event.SessionID)
		if err != nil {
			return err
		}
		event.Lines = lines
	}

	created, err := s.orderSvc.Materialize(ctx, event)
	if err != nil {
		return err
	}
	if skipped := len(event.Lines) - created; skipped > 0 {
		s.audit(ctx, "order.item_skipped", "checkout_session", event.SessionID, map[string]any{
			"provider":       event.Provider,
			"line_items":     len(event.Lines),
			"orders_created": created,
			"skipped":        skipped,
		})
	}

	if err := s.notifySvc.NotifySessionPaid(ctx, event); err != nil {
		return err
	}

	s.writeAuditLog(ctx, event, created)
	return nil
}

func validateEvent(event *paymentdomain.CheckoutEvent) error {
	event.ProviderEventID = strings.TrimSpace(event.ProviderEventID)
	if event.ProviderEventID == "" {
		return paymentdomain.ErrInvalidEvent
	}
	event.Type = strings.TrimSpace(event.Type)
	if event.Type != paymentdomain.EventTypeCheckoutCompleted {
		return paymentdomain.ErrInvalidEvent
	}
	event.SessionID = strings.TrimSpace(event.SessionID)
	if event.SessionID == "" {
		return paymentdomain.ErrInvalidEvent
	}
	if event.OccurredAt.IsZero() {
		return paymentdomain.ErrInvalidEvent
	}
	event.Currency = strings.ToLower(strings.TrimSpace(event.Currency))
	return nil
}

func (s *Service) writeAuditLog(ctx context.Context, event *paymentdomain.CheckoutEvent, ordersCreated int) {
	s.audit(ctx, "order.created", "checkout_session", event.SessionID, map[string]any{
		"provider":          event.Provider,
		"provider_event_id": event.ProviderEventID,
		"line_items":        len(event.Lines),
		"orders_created":    ordersCreated,
		"amount_total":      event.AmountTotal,
		"currency":          event.Currency,
		"occurred_at":       event.OccurredAt.UTC().Format(time.RFC3339),
	})
}

func (s *Service) audit(ctx context.Context, action, entityType, entityID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.AuditLog(ctx, "gateway", action, entityType, entityID, metadata); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}
