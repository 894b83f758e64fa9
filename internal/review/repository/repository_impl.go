package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/seawell/laguna/internal/review/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, review *domain.Review) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO reviews (id, product_id, author_name, author_email, rating, body, approved, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		review.ID,
		review.ProductID,
		review.AuthorName,
		review.AuthorEmail,
		review.Rating,
		review.Body,
		review.Approved,
		review.CreatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, review *domain.Review) error {
	return db.WithContext(ctx).Exec(
		`UPDATE reviews SET approved = ? WHERE id = ?`,
		review.Approved,
		review.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM reviews WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Review, error) {
	var item domain.Review
	err := db.WithContext(ctx).Raw(
		`SELECT id, product_id, author_name, author_email, rating, body, approved, created_at
		 FROM reviews
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

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Review, error) {
	var items []*domain.Review
	stmt := db.WithContext(ctx).Model(&domain.Review{})

	if filter.ProductID != 0 {
		stmt = stmt.Where("product_id = ?", filter.ProductID)
	}
	if filter.ApprovedOnly {
		stmt = stmt.Where("approved = ?", true)
	}

	if err := stmt.Order("created_at desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
