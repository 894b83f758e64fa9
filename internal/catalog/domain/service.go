package domain

import (
	"context"
	"errors"
	"time"

	"github.com/seawell/laguna/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Get(ctx context.Context, id string) (*Response, error)
	GetBySlug(ctx context.Context, slug string) (*Response, error)
}

type ListRequest struct {
	pagination.Pagination
	CategorySlug string
	Name         string
	Active       *bool
	SortBy       string
	OrderBy      string
}

type ListResponse struct {
	pagination.PageInfo
	Products []Response `json:"products"`
}

type CreateRequest struct {
	CategoryID      string `json:"category_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	PriceAmount     int64  `json:"price_amount"`
	Currency        string `json:"currency"`
	DurationMinutes int    `json:"duration_minutes"`
	ImageURL        string `json:"image_url"`
	Active          *bool  `json:"active"`
}

type UpdateRequest struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	PriceAmount     *int64  `json:"price_amount"`
	Currency        *string `json:"currency"`
	DurationMinutes *int    `json:"duration_minutes"`
	ImageURL        *string `json:"image_url"`
	Active          *bool   `json:"active"`
}

type Response struct {
	ID              string    `json:"id"`
	CategoryID      string    `json:"category_id,omitempty"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	Description     string    `json:"description,omitempty"`
	PriceAmount     int64     `json:"price_amount"`
	Currency        string    `json:"currency"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	ImageURL        string    `json:"image_url,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidCategory = errors.New("invalid_category")
	ErrInvalidSort     = errors.New("invalid_sort")
	ErrNotFound        = errors.New("not_found")
	ErrSlugTaken       = errors.New("slug_taken")
)
