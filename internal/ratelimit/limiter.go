package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-platform/internal/persistence"
)

// Limiter is a fixed-window rate limiter backed by Redis. It guards the
// anonymous endpoints (guest ticket tracking and embed ticket creation).
// When Redis is unreachable the limiter denies: the endpoints it protects
// must fail closed, not open.
type Limiter struct {
	redis  *persistence.Redis
	prefix string
	limit  int
	window time.Duration
	logger *zap.Logger
}

// NewLimiter builds a limiter allowing `limit` requests per window per key.
func NewLimiter(redis *persistence.Redis, prefix string, limit int, window time.Duration, logger *zap.Logger) *Limiter {
	return &Limiter{
		redis:  redis,
		prefix: prefix,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

// Allow reports whether the caller identified by key may proceed.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	if l.redis == nil || l.redis.Client == nil {
		return false
	}

	bucket := time.Now().Unix() / int64(l.window.Seconds())
	redisKey := fmt.Sprintf("ratelimit:%s:%s:%d", l.prefix, key, bucket)

	count, err := l.redis.Client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.logger.Warn("rate limiter unavailable, denying", zap.Error(err))
		return false
	}
	if count == 1 {
		if err := l.redis.Client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			l.logger.Warn("rate limiter expire failed", zap.Error(err))
		}
	}
	return count <= int64(l.limit)
}
