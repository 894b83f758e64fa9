package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seawell/laguna/internal/clock"
	obsmetrics "github.com/seawell/laguna/internal/observability/metrics"
	"github.com/seawell/laguna/internal/order/domain"
	paymentdomain "github.com/seawell/laguna/internal/payment/domain"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clk        clock.Clock
	GenID      *snowflake.Node
	Repo       domain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clk        clock.Clock
	genID      *snowflake.Node
	repo       domain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	clk := p.Clk
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("order.service"),
		clk:        clk,
		genID:      p.GenID,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

// Materialize converts each resolvable line item of a verified checkout
// event into a persisted order. Items are handled sequentially in the order
// received. An item whose product cannot be resolved is skipped and logged;
// it never fails the whole event.
func (s *Service) Materialize(ctx context.Context, event *paymentdomain.CheckoutEvent) (int, error) {
	if event == nil {
		return 0, paymentdomain.ErrInvalidEvent
	}

	created := 0
	for _, line := range event.Lines {
		productID, ok := resolveProductID(line.ProductID)
		if !ok {
			s.log.Warn("skipping unresolvable line item",
				zap.String("session_id", event.SessionID),
				zap.String("item_name", line.Name),
			)
			continue
		}

		order := &domain.Order{
			ID:            s.genID.Generate(),
			SessionID:     event.SessionID,
			Provider:      event.Provider,
			ProductID:     productID,
			ProductName:   line.Name,
			Quantity:      line.Quantity,
			UnitAmount:    line.UnitAmount,
			TotalAmount:   line.Amount,
			Currency:      event.Currency,
			UserRef:       event.UserRef,
			CustomerEmail: event.CustomerEmail,
			CustomerName:  event.CustomerName,
			Status:        domain.StatusPaid,
			CreatedAt:     s.clk.Now().UTC(),
		}

		inserted, err := s.repo.Insert(ctx, s.db, order)
		if err != nil {
			return created, err
		}
		if inserted {
			created++
			if s.obsMetrics != nil {
				s.obsMetrics.RecordOrderCreated(ctx, event.Provider)
			}
		}
	}

	return created, nil
}

// CountBySession reports how many orders exist for a checkout session.
func (s *Service) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	return s.repo.CountBySession(ctx, s.db, sessionID)
}

// ListBySession returns the session's orders in creation order.
func (s *Service) ListBySession(ctx context.Context, sessionID string) ([]*domain.Order, error) {
	return s.repo.ListBySession(ctx, s.db, sessionID)
}

// ListByEmail returns a customer's most recent orders.
func (s *Service) ListByEmail(ctx context.Context, email string, limit int) ([]*domain.Order, error) {
	return s.repo.ListByEmail(ctx, s.db, strings.ToLower(strings.TrimSpace(email)), limit)
}

// FindByID loads a single order.
func (s *Service) FindByID(ctx context.Context, id snowflake.ID) (*domain.Order, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

func resolveProductID(raw string) (snowflake.ID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
