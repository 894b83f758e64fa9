package redis

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/seawell/laguna/internal/config"
)

// New builds the shared Redis client. Callers that can run without Redis
// (rate limiting, carts) must tolerate a nil client.
func New(cfg config.Config, log *zap.Logger) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		log.Warn("redis addr not configured, redis-backed features disabled")
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
}

var Module = fx.Module("providers.redis",
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, client *redis.Client) {
		if client == nil {
			return
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
	}),
)
