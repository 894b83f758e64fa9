package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/seawell/laguna/internal/order/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO orders (
			id, session_id, provider, product_id, product_name, quantity,
			unit_amount, total_amount, currency, user_ref, customer_email,
			customer_name, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, product_id) DO NOTHING`,
		order.ID,
		order.SessionID,
		order.Provider,
		order.ProductID,
		order.ProductName,
		order.Quantity,
		order.UnitAmount,
		order.TotalAmount,
		order.Currency,
		order.UserRef,
		order.CustomerEmail,
		order.CustomerName,
		order.Status,
		order.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) CountBySession(ctx context.Context, db *gorm.DB, sessionID string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM orders WHERE session_id = ?`,
		sessionID,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) ListBySession(ctx context.Context, db *gorm.DB, sessionID string) ([]*domain.Order, error) {
	var items []*domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, session_id, provider, product_id, product_name, quantity,
			unit_amount, total_amount, currency, user_ref, customer_email,
			customer_name, status, created_at
		 FROM orders
		 WHERE session_id = ?
		 ORDER BY created_at ASC, id ASC`,
		sessionID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListByEmail(ctx context.Context, db *gorm.DB, email string, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = 50
	}

	var items []*domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, session_id, provider, product_id, product_name, quantity,
			unit_amount, total_amount, currency, user_ref, customer_email,
			customer_name, status, created_at
		 FROM orders
		 WHERE customer_email = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		email,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var item domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, session_id, provider, product_id, product_name, quantity,
			unit_amount, total_amount, currency, user_ref, customer_email,
			customer_name, status, created_at
		 FROM orders
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
