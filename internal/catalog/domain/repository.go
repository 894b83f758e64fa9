package domain

import (
	"context"

	"gorm.io/gorm"
)

type ListFilter struct {
	CategoryID int64
	Name       string
	Active     *bool

	// SortColumn must come from the service allowlist; it is interpolated
	// into the query.
	SortColumn string
	SortDesc   bool

	Cursor *Cursor
	Limit  int
}

// Cursor marks the last row of the previous page. Value holds that row's
// sort-column value when a non-default sort is in effect.
type Cursor struct {
	ID    int64
	Value any
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	Update(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Product, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Product, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Product, error)
}
