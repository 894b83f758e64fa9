package domain

import (
	"context"
	"errors"
)

type CreateSessionRequest struct {
	CartToken      string `json:"cart_token"`
	UserRef        string `json:"user_ref"`
	CustomerEmail  string `json:"customer_email"`
	IdempotencyKey string `json:"-"`
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type Service interface {
	// CreateSession builds a gateway checkout session from the cart.
	// Prices come from the catalog, never from the client.
	CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResponse, error)
}

var (
	ErrEmptyCart          = errors.New("empty_cart")
	ErrDuplicateRequest   = errors.New("duplicate_request")
	ErrGatewayUnavailable = errors.New("gateway_unavailable")
)
