package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seawell/laguna/internal/clock"
	"github.com/seawell/laguna/internal/config"
	"github.com/seawell/laguna/internal/notification/domain"
	obsmetrics "github.com/seawell/laguna/internal/observability/metrics"
	orderservice "github.com/seawell/laguna/internal/order/service"
	paymentdomain "github.com/seawell/laguna/internal/payment/domain"
	"github.com/seawell/laguna/internal/providers/email"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Cfg        config.Config
	Clk        clock.Clock
	GenID      *snowflake.Node
	Repo       domain.Repository
	OrderSvc   *orderservice.Service
	Email      email.Provider
	Store      *config.StoreWatcher
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        config.Config
	clk        clock.Clock
	genID      *snowflake.Node
	repo       domain.Repository
	orderSvc   *orderservice.Service
	email      email.Provider
	store      *config.StoreWatcher
	obsMetrics *obsmetrics.Metrics

	sleep func(time.Duration)
}

func NewService(p Params) *Service {
	clk := p.Clk
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("notification.service"),
		cfg:        p.Cfg,
		clk:        clk,
		genID:      p.GenID,
		repo:       p.Repo,
		orderSvc:   p.OrderSvc,
		email:      p.Email,
		store:      p.Store,
		obsMetrics: p.ObsMetrics,
		sleep:      time.Sleep,
	}
}

// NotifySessionPaid dispatches the customer confirmation and the operator
// alert for a paid session, at most once. The completeness gate requires
// one persisted order per line item in the event before anything is sent;
// the claim row then serializes concurrent dispatch attempts. Send failures
// are logged but never returned, so a transient mail outage cannot push the
// event back into the gateway's retry loop.
func (s *Service) NotifySessionPaid(ctx context.Context, event *paymentdomain.CheckoutEvent) error {
	if event == nil {
		return paymentdomain.ErrInvalidEvent
	}
	lineCount := int64(len(event.Lines))
	if lineCount == 0 {
		return nil
	}

	orderCount, err := s.orderSvc.CountBySession(ctx, event.SessionID)
	if err != nil {
		return err
	}
	if orderCount != lineCount {
		s.log.Info("notification gate not met",
			zap.String("session_id", event.SessionID),
			zap.Int64("orders", orderCount),
			zap.Int64("line_items", lineCount),
		)
		return nil
	}

	claim := &domain.Claim{
		ID:        s.genID.Generate(),
		SessionID: event.SessionID,
		Purpose:   domain.PurposePaidSessionEmails,
		CreatedAt: s.clk.Now().UTC(),
	}
	claimed, err := s.repo.InsertClaim(ctx, s.db, claim)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	store := s.store.Current()
	data := s.buildTemplateData(event, store)

	s.sendCustomerEmail(ctx, event, store, data)

	// The mail relay rate-limits bursts from the same sender.
	delay := time.Duration(store.NotificationDelaySeconds) * time.Second
	if delay > 0 {
		s.sleep(delay)
	}

	s.sendOperatorEmail(ctx, event, store, data)

	if err := s.repo.MarkSent(ctx, s.db, claim.ID, s.clk.Now().UTC()); err != nil {
		s.log.Error("failed to record send attempt on claim",
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
	}

	return nil
}

type templateLine struct {
	Name     string
	Quantity int64
	Amount   string
}

func (s *Service) buildTemplateData(event *paymentdomain.CheckoutEvent, store config.StoreConfig) map[string]interface{} {
	currency := event.Currency
	if currency == "" {
		currency = store.Currency
	}

	lines := make([]templateLine, 0, len(event.Lines))
	var total int64
	for _, line := range event.Lines {
		lines = append(lines, templateLine{
			Name:     line.Name,
			Quantity: line.Quantity,
			Amount:   FormatAmount(line.Amount, currency),
		})
		total += line.Amount
	}
	if event.AmountTotal > 0 {
		total = event.AmountTotal
	}

	customerName := event.CustomerName
	if customerName == "" {
		customerName = "guest"
	}

	return map[string]interface{}{
		"store_name":     store.StoreName,
		"session_id":     event.SessionID,
		"customer_name":  customerName,
		"customer_email": event.CustomerEmail,
		"lines":          lines,
		"total":          FormatAmount(total, currency),
		"receipt_url":    fmt.Sprintf("%s/api/orders/%s/receipt", s.cfg.PublicBaseURL, event.SessionID),
	}
}

func (s *Service) sendCustomerEmail(ctx context.Context, event *paymentdomain.CheckoutEvent, store config.StoreConfig, data map[string]interface{}) {
	to := strings.TrimSpace(event.CustomerEmail)
	if to == "" {
		s.log.Warn("no customer email on paid session", zap.String("session_id", event.SessionID))
		return
	}

	payload := cloneData(data)
	payload["subject"] = fmt.Sprintf("Your %s booking is confirmed", store.StoreName)

	if err := s.email.SendTemplate(ctx, []string{to}, "customer_receipt", payload); err != nil {
		s.log.Error("customer email send failed",
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
		s.recordEmail(ctx, "customer", "error")
		return
	}
	s.recordEmail(ctx, "customer", "sent")
}

func (s *Service) sendOperatorEmail(ctx context.Context, event *paymentdomain.CheckoutEvent, store config.StoreConfig, data map[string]interface{}) {
	recipients := store.OperatorRecipients
	if len(recipients) == 0 {
		s.log.Warn("no operator recipients configured", zap.String("session_id", event.SessionID))
		return
	}

	payload := cloneData(data)
	payload["subject"] = fmt.Sprintf("New paid order %s", event.SessionID)

	if err := s.email.SendTemplate(ctx, recipients, "operator_alert", payload); err != nil {
		s.log.Error("operator email send failed",
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
		s.recordEmail(ctx, "operator", "error")
		return
	}
	s.recordEmail(ctx, "operator", "sent")
}

func (s *Service) recordEmail(ctx context.Context, purpose string, outcome string) {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordEmailSent(ctx, purpose, outcome)
	}
}

func cloneData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	return out
}

var currencySymbols = map[string]string{
	"usd": "$",
	"eur": "€",
	"gbp": "£",
}

var zeroDecimalCurrencies = map[string]struct{}{
	"jpy": {},
	"krw": {},
	"vnd": {},
}

// FormatAmount renders a minor-unit amount as a display string, e.g.
// 10000 usd -> "$100.00".
func FormatAmount(amount int64, currency string) string {
	currency = strings.ToLower(strings.TrimSpace(currency))

	if _, ok := zeroDecimalCurrencies[currency]; ok {
		if symbol, ok := currencySymbols[currency]; ok {
			return fmt.Sprintf("%s%d", symbol, amount)
		}
		return fmt.Sprintf("%d %s", amount, strings.ToUpper(currency))
	}

	major := amount / 100
	minor := amount % 100
	if minor < 0 {
		minor = -minor
	}
	if symbol, ok := currencySymbols[currency]; ok {
		return fmt.Sprintf("%s%d.%02d", symbol, major, minor)
	}
	if currency == "" {
		return fmt.Sprintf("%d.%02d", major, minor)
	}
	return fmt.Sprintf("%d.%02d %s", major, minor, strings.ToUpper(currency))
}
