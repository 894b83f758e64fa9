package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/seawell/laguna/internal/cart/domain"
)

const keyCart = "cart:%s"

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) domain.Store {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &redisStore{client: client, ttl: ttl}
}

func (s *redisStore) Load(ctx context.Context, token string) (*domain.Cart, error) {
	if s.client == nil {
		return nil, domain.ErrCartUnavailable
	}

	raw, err := s.client.Get(ctx, fmt.Sprintf(keyCart, token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cart domain.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *redisStore) Save(ctx context.Context, cart *domain.Cart) error {
	if s.client == nil {
		return domain.ErrCartUnavailable
	}

	raw, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, fmt.Sprintf(keyCart, cart.Token), raw, s.ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, token string) error {
	if s.client == nil {
		return domain.ErrCartUnavailable
	}
	return s.client.Del(ctx, fmt.Sprintf(keyCart, token)).Err()
}
