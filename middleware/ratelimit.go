package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RateLimiter is a redis fixed-window limiter keyed by actor (or IP for
// anonymous calls). Used on the purchase and gate-scan endpoints, which
// attract both bots and over-eager scanner devices.
type RateLimiter struct {
	redis     *redis.Client
	perMinute int
}

func NewRateLimiter(redisClient *redis.Client, perMinute int) *RateLimiter {
	return &RateLimiter{redis: redisClient, perMinute: perMinute}
}

func (r *RateLimiter) Limit(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if r == nil || r.redis == nil || r.perMinute <= 0 {
			return c.Next()
		}

		identity := c.IP()
		if actor, ok := GetActor(c); ok && actor.UserID != 0 {
			identity = fmt.Sprintf("user:%d", actor.UserID)
		}
		key := fmt.Sprintf("ratelimit:%s:%s", scope, identity)

		count, err := r.redis.Incr(c.Context(), key).Result()
		if err != nil {
			// redis being down must not block checkout
			log.Warnf("rate limiter unavailable: %v", err)
			return c.Next()
		}
		if count == 1 {
			r.redis.Expire(c.Context(), key, time.Minute)
		}
		if count > int64(r.perMinute) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}
		return c.Next()
	}
}
