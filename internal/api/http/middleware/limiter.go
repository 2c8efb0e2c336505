package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	fiberredis "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"

	"github.com/Alijeyrad/simward_backend/config"
)

const (
	defaultLimitMax        = 120
	defaultLimitExpiration = 60 * time.Second
)

// NewLimiterWithRedis is a sliding-window limiter keyed by client IP whose
// counters live in Redis, so every instance shares them.
func NewLimiterWithRedis(rdb *redis.Client, cfg config.RateLimitConfig) fiber.Handler {
	max, exp := cfg.Max, time.Duration(cfg.ExpirationSeconds)*time.Second
	if max <= 0 {
		max = defaultLimitMax
	}
	if exp <= 0 {
		exp = defaultLimitExpiration
	}

	return limiter.New(limiter.Config{
		Storage:           fiberredis.NewFromConnection(rdb),
		Max:               max,
		Expiration:        exp,
		LimiterMiddleware: limiter.SlidingWindow{},
		// Stripe retries webhooks on its own schedule.
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/billing/webhook"
		},
	})
}
