package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/seawell/laguna/internal/category/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO categories (id, name, slug, description, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		category.ID,
		category.Name,
		category.Slug,
		category.Description,
		category.Position,
		category.CreatedAt,
		category.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return db.WithContext(ctx).Exec(
		`UPDATE categories
		 SET name = ?, description = ?, position = ?, updated_at = ?
		 WHERE id = ?`,
		category.Name,
		category.Description,
		category.Position,
		category.UpdatedAt,
		category.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM categories WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Category, error) {
	var item domain.Category
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, description, position, created_at, updated_at
		 FROM categories
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

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Category, error) {
	var item domain.Category
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, description, position, created_at, updated_at
		 FROM categories
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

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Category, error) {
	var items []*domain.Category
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, description, position, created_at, updated_at
		 FROM categories
		 ORDER BY position ASC, name ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
