package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seawell/laguna/internal/gatewayconfig/crypto"
	"github.com/seawell/laguna/internal/gatewayconfig/domain"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	Cipher *crypto.Cipher
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	repo   domain.Repository
	cipher *crypto.Cipher
}

func NewService(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("gatewayconfig.service"),
		genID:  p.GenID,
		repo:   p.Repo,
		cipher: p.Cipher,
	}
}

func (s *Service) Save(ctx context.Context, provider string, config map[string]any) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return domain.ErrInvalidConfig
	}

	encrypted, err := s.cipher.Encrypt(config)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return s.repo.Upsert(ctx, s.db, &domain.GatewayConfig{
		ID:              s.genID.Generate(),
		Provider:        provider,
		EncryptedConfig: encrypted,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

func (s *Service) ActiveConfig(ctx context.Context, provider string) (map[string]any, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))

	row, err := s.repo.FindByProvider(ctx, s.db, provider)
	if err != nil {
		return nil, err
	}
	if row == nil || !row.Active {
		return nil, domain.ErrConfigNotFound
	}

	return s.cipher.Decrypt(row.EncryptedConfig)
}

func (s *Service) SetActive(ctx context.Context, provider string, active bool) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	updated, err := s.repo.SetActive(ctx, s.db, provider, active, time.Now().UTC())
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrConfigNotFound
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]*domain.GatewayConfig, error) {
	return s.repo.List(ctx, s.db)
}
