package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/seawell/laguna/internal/gatewayconfig/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, cfg *domain.GatewayConfig) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_gateway_configs (
			id, provider, encrypted_config, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider) DO UPDATE
		SET encrypted_config = EXCLUDED.encrypted_config,
		    active = EXCLUDED.active,
		    updated_at = EXCLUDED.updated_at`,
		cfg.ID,
		cfg.Provider,
		cfg.EncryptedConfig,
		cfg.Active,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	).Error
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, provider string, active bool, updatedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payment_gateway_configs
		 SET active = ?, updated_at = ?
		 WHERE provider = ?`,
		active,
		updatedAt,
		provider,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByProvider(ctx context.Context, db *gorm.DB, provider string) (*domain.GatewayConfig, error) {
	var item domain.GatewayConfig
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider, encrypted_config, active, created_at, updated_at
		 FROM payment_gateway_configs
		 WHERE provider = ?
		 LIMIT 1`,
		provider,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.GatewayConfig, error) {
	var items []*domain.GatewayConfig
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider, encrypted_config, active, created_at, updated_at
		 FROM payment_gateway_configs
		 ORDER BY provider ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
