package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// releaseOwnedKeyScript deletes the key only when it still holds the
// caller's token, so an expired claim picked up by another request is
// never released from under it.
const releaseOwnedKeyScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker hands out short-lived single-owner claims in redis. Checkout uses
// it to pin an idempotency key for the duration of a session creation.
type Locker struct {
	client  *redis.Client
	release *redis.Script
}

// NewLocker returns nil when no redis client is configured; callers treat a
// nil Locker as "claims disabled".
func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client:  client,
		release: redis.NewScript(releaseOwnedKeyScript),
	}
}

// TryLock attempts to claim key for ttl. It reports whether the claim was
// won and returns the owner token needed to release it early.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	switch {
	case l == nil || l.client == nil:
		return "", false, errors.New("lock client not configured")
	case key == "":
		return "", false, errors.New("lock key is empty")
	case ttl <= 0:
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	claimed, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, claimed, nil
}

// Release drops the claim if token still owns it. Releasing a claim that
// already expired is not an error.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.release.Run(ctx, l.client, []string{key}, token).Err()
}
