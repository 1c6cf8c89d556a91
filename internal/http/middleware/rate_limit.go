package middleware

import (
	"strconv"
	"time"

	"github.com/ashmigelski/linkpulse/internal/app/service"
	infraprometheus "github.com/ashmigelski/linkpulse/internal/infra/prometheus"
	"github.com/gofiber/fiber/v2"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

// DefaultRateLimitConfig returns default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 20,
		Window:      time.Minute,
		KeyPrefix:   "ratelimit",
	}
}

// RateLimit creates a rate limiting middleware. The client key combines the
// caller's IP with the protected path so limits are tracked per resource.
func RateLimit(limiter *service.RateLimiter, config RateLimitConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := config.KeyPrefix + ":" + c.IP() + ":" + c.Path()

		decision := limiter.Admit(c.Context(), key, config.MaxRequests, config.Window)

		c.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.ResetAt.IsZero() {
			c.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		}

		if !decision.Allowed {
			infraprometheus.RateLimitRejected.Inc()
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Rate limit exceeded",
			})
		}

		return c.Next()
	}
}
