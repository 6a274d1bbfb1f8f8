package limiters

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrDispatchRateLimited        = errors.New("code dispatch rate limited")
	ErrDispatchLimiterUnavailable = errors.New("code dispatch limiter unavailable")
)

// DispatchConfig bounds how many codes a single address may request per window.
type DispatchConfig struct {
	MaxPerWindow int
	Window       time.Duration
	Prefix       string
}

// DispatchLimiter counts send and resend requests per email address in a
// Redis fixed window, so several processes serving the same audience share
// one budget.
type DispatchLimiter struct {
	redis  redis.UniversalClient
	config DispatchConfig
}

func NewDispatchLimiter(redisClient redis.UniversalClient, cfg DispatchConfig) *DispatchLimiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "ppd"
	}
	return &DispatchLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Check counts one dispatch for email. It returns ErrDispatchRateLimited once
// the window budget is spent and wraps ErrDispatchLimiterUnavailable on Redis
// failures.
func (l *DispatchLimiter) Check(ctx context.Context, email string) error {
	if l == nil || l.redis == nil || l.config.MaxPerWindow <= 0 {
		return nil
	}

	key := l.key(email)
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchLimiterUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrDispatchLimiterUnavailable, err)
		}
	}

	if count > int64(l.config.MaxPerWindow) {
		return ErrDispatchRateLimited
	}

	return nil
}

// RetryAfter reports how long until the window for email resets.
func (l *DispatchLimiter) RetryAfter(ctx context.Context, email string) (time.Duration, error) {
	if l == nil || l.redis == nil {
		return 0, nil
	}
	ttl, err := l.redis.TTL(ctx, l.key(email)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDispatchLimiterUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// addresses are hashed so the key space never holds raw emails
func (l *DispatchLimiter) key(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return l.config.Prefix + ":" + hex.EncodeToString(sum[:16])
}
