package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/seawell/laguna/internal/config"
	"github.com/seawell/laguna/internal/observability/metrics"
)

const keyReviewIP = "review:submit:ip:%s"

// ReviewLimiter throttles review submissions per client IP. Limits come
// from the store config and are re-read on every call so file reloads
// take effect without a restart.
type ReviewLimiter struct {
	bucket  *TokenBucket
	store   *config.StoreWatcher
	log     *zap.Logger
	metrics *metrics.Metrics
}

type ReviewLimiterParams struct {
	fx.In

	Client     *redis.Client
	Store      *config.StoreWatcher
	Log        *zap.Logger
	ObsMetrics *metrics.Metrics `optional:"true"`
}

func NewReviewLimiter(p ReviewLimiterParams) *ReviewLimiter {
	return &ReviewLimiter{
		bucket:  NewTokenBucket(p.Client),
		store:   p.Store,
		log:     p.Log.Named("ratelimit.review"),
		metrics: p.ObsMetrics,
	}
}

// Allow reports whether the given client IP may submit another review.
// When Redis is unavailable the limiter fails open.
func (l *ReviewLimiter) Allow(ctx context.Context, clientIP string) bool {
	if l == nil || l.bucket == nil {
		return true
	}

	store := l.store.Current()
	limit := store.ReviewRateLimit
	window := store.ReviewRateWindow
	if limit <= 0 || window <= 0 {
		return true
	}

	clientIP = strings.TrimSpace(clientIP)
	if clientIP == "" {
		return true
	}

	rate := float64(limit) / float64(window)
	allowed, err := l.bucket.Allow(ctx, fmt.Sprintf(keyReviewIP, clientIP), rate, limit)
	if err != nil {
		l.log.Warn("rate limit check failed, allowing request", zap.Error(err))
		return true
	}

	if !allowed && l.metrics != nil {
		l.metrics.RecordRateLimitDenied(ctx, "reviews", "ip_rate_exceeded")
	}
	return allowed
}

var Module = fx.Module("ratelimit",
	fx.Provide(
		NewReviewLimiter,
	),
)
