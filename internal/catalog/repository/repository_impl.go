package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/seawell/laguna/internal/catalog/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (
			id, category_id, name, slug, description, price_amount, currency,
			duration_minutes, image_url, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		nullableID(product.CategoryID),
		product.Name,
		product.Slug,
		product.Description,
		product.PriceAmount,
		product.Currency,
		product.DurationMinutes,
		product.ImageURL,
		product.Active,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products
		 SET name = ?, description = ?, price_amount = ?, currency = ?,
		     duration_minutes = ?, image_url = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		product.Name,
		product.Description,
		product.PriceAmount,
		product.Currency,
		product.DurationMinutes,
		product.ImageURL,
		product.Active,
		product.UpdatedAt,
		product.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Product, error) {
	var item domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, COALESCE(category_id, 0) AS category_id, name, slug, description,
			price_amount, currency, duration_minutes, image_url, active,
			created_at, updated_at
		 FROM products
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Product, error) {
	var item domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, COALESCE(category_id, 0) AS category_id, name, slug, description,
			price_amount, currency, duration_minutes, image_url, active,
			created_at, updated_at
		 FROM products
		 WHERE slug = ?
		 LIMIT 1`,
		slug,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Product, error) {
	var items []*domain.Product
	stmt := db.WithContext(ctx).Model(&domain.Product{})

	if filter.CategoryID != 0 {
		stmt = stmt.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	if filter.SortColumn == "" {
		if filter.Cursor != nil {
			stmt = stmt.Where("id > ?", filter.Cursor.ID)
		}
		stmt = stmt.Order("id asc")
	} else {
		cmp, dir := ">", "asc"
		if filter.SortDesc {
			cmp, dir = "<", "desc"
		}
		// Keyset over (sort column, id); id breaks ties so the page
		// boundary row is never repeated.
		if filter.Cursor != nil {
			stmt = stmt.Where(
				fmt.Sprintf("(%s %s ?) OR (%s = ? AND id > ?)",
					filter.SortColumn, cmp, filter.SortColumn),
				filter.Cursor.Value, filter.Cursor.Value, filter.Cursor.ID,
			)
		}
		stmt = stmt.Order(fmt.Sprintf("%s %s, id asc", filter.SortColumn, dir))
	}

	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
