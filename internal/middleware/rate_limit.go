package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/wrc-program/attendance/internal/ratelimit"
)

// RateLimit rejects callers that exceed the limiter's quota for scope. The
// caller is identified by its IP as resolved by fiber (honouring the
// configured proxy header). Limiter failures let the request through.
func RateLimit(limiter ratelimit.Limiter, scope string, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.Next()
		}
		d, err := limiter.Allow(c.UserContext(), scope+":"+c.IP())
		if err != nil {
			if logger != nil {
				logger.Warn("rate limiter unavailable", slog.String("scope", scope), slog.Any("error", err))
			}
			return c.Next() // fail-open on store errors
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if d.Allowed {
			return c.Next()
		}

		retry := int(math.Ceil(d.RetryAfter.Seconds()))
		if retry < 1 {
			retry = 1
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
		return fiber.NewError(http.StatusTooManyRequests, "rate limit exceeded, try again later")
	}
}
