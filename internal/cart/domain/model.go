package domain

import (
	"context"
	"errors"
	"time"
)

// Cart is the stored shape: product ids and quantities only. Prices and
// names are resolved from the catalog when the cart is read.
type Cart struct {
	Token     string     `json:"token"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type View struct {
	Token       string     `json:"token"`
	Items       []ViewItem `json:"items"`
	TotalAmount int64      `json:"total_amount"`
	Currency    string     `json:"currency"`
}

type ViewItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Quantity   int    `json:"quantity"`
	UnitAmount int64  `json:"unit_amount"`
	Amount     int64  `json:"amount"`
}

type AddItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type Service interface {
	// Get resolves the cart for token against the catalog. An empty or
	// unknown token yields an empty view.
	Get(ctx context.Context, token string) (*View, error)
	// AddItem adds quantity of a product, issuing a new token when the
	// incoming one is empty. Returns the updated view.
	AddItem(ctx context.Context, token string, req AddItemRequest) (*View, error)
	// UpdateItem sets a line's quantity; zero removes the line.
	UpdateItem(ctx context.Context, token, productID string, quantity int) (*View, error)
	Clear(ctx context.Context, token string) error
}

type Store interface {
	Load(ctx context.Context, token string) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, token string) error
}

var (
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidProduct  = errors.New("invalid_product")
	ErrCartUnavailable = errors.New("cart_unavailable")
	ErrItemNotFound    = errors.New("item_not_found")
)
