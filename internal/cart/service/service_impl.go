package service

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/seawell/laguna/internal/cart/domain"
	catalogdomain "github.com/seawell/laguna/internal/catalog/domain"
	"github.com/seawell/laguna/internal/config"
)

const maxLineQuantity = 20

type Params struct {
	fx.In

	Log        *zap.Logger
	Store      domain.Store
	CatalogSvc catalogdomain.Service
	StoreCfg   *config.StoreWatcher
}

type Service struct {
	log        *zap.Logger
	store      domain.Store
	catalogSvc catalogdomain.Service
	storeCfg   *config.StoreWatcher
}

func NewService(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("cart.service"),
		store:      p.Store,
		catalogSvc: p.CatalogSvc,
		storeCfg:   p.StoreCfg,
	}
}

func (s *Service) Get(ctx context.Context, token string) (*domain.View, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.emptyView(""), nil
	}

	cart, err := s.store.Load(ctx, token)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return s.emptyView(token), nil
	}
	return s.resolve(ctx, cart)
}

func (s *Service) AddItem(ctx context.Context, token string, req domain.AddItemRequest) (*domain.View, error) {
	if req.Quantity < 1 || req.Quantity > maxLineQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.catalogSvc.Get(ctx, strings.TrimSpace(req.ProductID))
	if err != nil || !product.Active {
		return nil, domain.ErrInvalidProduct
	}

	cart, err := s.loadOrCreate(ctx, token)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == product.ID {
			cart.Items[i].Quantity += req.Quantity
			if cart.Items[i].Quantity > maxLineQuantity {
				cart.Items[i].Quantity = maxLineQuantity
			}
			found = true
			break
		}
	}
	if !found {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: product.ID,
			Quantity:  req.Quantity,
		})
	}

	cart.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.resolve(ctx, cart)
}

func (s *Service) UpdateItem(ctx context.Context, token, productID string, quantity int) (*domain.View, error) {
	if quantity < 0 || quantity > maxLineQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrItemNotFound
	}

	cart, err := s.store.Load(ctx, token)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, domain.ErrItemNotFound
	}

	productID = strings.TrimSpace(productID)
	idx := -1
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, domain.ErrItemNotFound
	}

	if quantity == 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	} else {
		cart.Items[idx].Quantity = quantity
	}

	cart.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.resolve(ctx, cart)
}

func (s *Service) Clear(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return s.store.Delete(ctx, token)
}

func (s *Service) loadOrCreate(ctx context.Context, token string) (*domain.Cart, error) {
	token = strings.TrimSpace(token)
	if token != "" {
		cart, err := s.store.Load(ctx, token)
		if err != nil {
			return nil, err
		}
		if cart != nil {
			return cart, nil
		}
	}
	return &domain.Cart{
		Token: ulid.Make().String(),
		Items: []domain.CartItem{},
	}, nil
}

// resolve maps stored product ids through the catalog. Lines whose
// product has since been archived or deleted are dropped from the view.
func (s *Service) resolve(ctx context.Context, cart *domain.Cart) (*domain.View, error) {
	view := s.emptyView(cart.Token)

	for _, item := range cart.Items {
		product, err := s.catalogSvc.Get(ctx, item.ProductID)
		if err != nil {
			s.log.Debug("dropping stale cart line", zap.String("product_id", item.ProductID))
			continue
		}
		if !product.Active {
			continue
		}

		amount := product.PriceAmount * int64(item.Quantity)
		view.Items = append(view.Items, domain.ViewItem{
			ProductID:  product.ID,
			Name:       product.Name,
			Slug:       product.Slug,
			Quantity:   item.Quantity,
			UnitAmount: product.PriceAmount,
			Amount:     amount,
		})
		view.TotalAmount += amount
		if view.Currency == "" {
			view.Currency = product.Currency
		}
	}
	return view, nil
}

func (s *Service) emptyView(token string) *domain.View {
	return &domain.View{
		Token:    token,
		Items:    []domain.ViewItem{},
		Currency: s.storeCfg.Current().Currency,
	}
}
