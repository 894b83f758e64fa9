package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Review struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email"`
	Rating      int       `json:"rating"`
	Body        string    `json:"body"`
	Approved    bool      `json:"approved"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}

type SubmitRequest struct {
	ProductID   string `json:"product_id"`
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
	Rating      int    `json:"rating"`
	Body        string `json:"body"`
}

type Response struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	AuthorName string    `json:"author_name"`
	Rating     int       `json:"rating"`
	Body       string    `json:"body,omitempty"`
	Approved   bool      `json:"approved"`
	CreatedAt  time.Time `json:"created_at"`
}

type ListFilter struct {
	ProductID    int64
	ApprovedOnly bool
}

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*Response, error)
	Approve(ctx context.Context, id string) (*Response, error)
	Delete(ctx context.Context, id string) error
	ListByProduct(ctx context.Context, productID string, approvedOnly bool) ([]Response, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, review *Review) error
	Update(ctx context.Context, db *gorm.DB, review *Review) error
	Delete(ctx context.Context, db *gorm.DB, id int64) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Review, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Review, error)
}

var (
	ErrInvalidRating  = errors.New("invalid_rating")
	ErrInvalidAuthor  = errors.New("invalid_author")
	ErrInvalidProduct = errors.New("invalid_product")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("not_found")
	ErrRateLimited    = errors.New("rate_limited")
)
