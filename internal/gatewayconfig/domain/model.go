package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GatewayConfig stores a payment provider's credentials encrypted at rest.
type GatewayConfig struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null"`
	EncryptedConfig datatypes.JSON `json:"-" gorm:"type:text;not null"`
	Active          bool           `json:"active" gorm:"not null"`
	CreatedAt       time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"not null"`
}

func (GatewayConfig) TableName() string { return "payment_gateway_configs" }

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, cfg *GatewayConfig) error
	SetActive(ctx context.Context, db *gorm.DB, provider string, active bool, updatedAt time.Time) (bool, error)
	FindByProvider(ctx context.Context, db *gorm.DB, provider string) (*GatewayConfig, error)
	List(ctx context.Context, db *gorm.DB) ([]*GatewayConfig, error)
}

// Service manages encrypted provider configurations.
type Service interface {
	Save(ctx context.Context, provider string, config map[string]any) error
	ActiveConfig(ctx context.Context, provider string) (map[string]any, error)
	SetActive(ctx context.Context, provider string, active bool) error
	List(ctx context.Context) ([]*GatewayConfig, error)
}

var (
	ErrEncryptionKeyMissing = errors.New("encryption_key_missing")
	ErrConfigNotFound       = errors.New("gateway_config_not_found")
	ErrInvalidConfig        = errors.New("invalid_gateway_config")
)
