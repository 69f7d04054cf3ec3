package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aiimpactmedia/casting/pkg/response"
)

type RateLimiter struct {
	redis  redis.UniversalClient
	logger *zap.Logger
}

// NewRateLimiter creates a limiter. A nil client disables limiting.
func NewRateLimiter(redisClient redis.UniversalClient, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{redis: redisClient, logger: logger}
}

// Limit creates a fixed window rate limiting middleware keyed by client IP
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rl.redis == nil || maxRequests <= 0 {
			return c.Next()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, c.IP())
		ctx := c.UserContext()

		var incr *redis.IntCmd
		var ttlCmd *redis.DurationCmd
		_, err := rl.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			ttlCmd = pipe.TTL(ctx, key)
			return nil
		})
		if err != nil {
			// Redis down: allow the request
			rl.logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			return c.Next()
		}
		count := incr.Val()
		ttl := ttlCmd.Val()

		// First hit, or a window whose expiry was never set
		if ttl < 0 {
			if err := rl.redis.Expire(ctx, key, window).Err(); err != nil {
				rl.logger.Warn("rate limiter expire failed", zap.String("key", key), zap.Error(err))
			}
			ttl = window
		}

		if count > int64(maxRequests) {
			c.Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			return response.RateLimited(c)
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))

		return c.Next()
	}
}

// SubmitLimit limits pipeline runs per hour
func (rl *RateLimiter) SubmitLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("submit", maxPerHour, time.Hour)
}

// FeedbackLimit limits AI feedback requests per minute
func (rl *RateLimiter) FeedbackLimit(maxPerMin int) fiber.Handler {
	return rl.Limit("feedback", maxPerMin, time.Minute)
}

// SponsorLimit limits sponsor inquiries per hour
func (rl *RateLimiter) SponsorLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("sponsor", maxPerHour, time.Hour)
}
