package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit emits one structured log line per request. Scan endpoints are
// tagged with the uid and day being checked so door activity can be traced.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)),
			slog.String("ip", c.IP()),
		}
		if requestID := RequestIDFrom(c); requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if uid := c.Query("uid"); uid != "" {
			attrs = append(attrs, slog.String("uid", uid), slog.String("day", c.Query("day")))
		}
		if err != nil {
			// The error handler has not run yet, so the status above is stale.
			var fe *fiber.Error
			if errors.As(err, &fe) {
				attrs[2] = slog.Int("status", fe.Code)
				logger.Warn("request completed", attrs...)
				return err
			}
			attrs = append(attrs, slog.Any("error", err))
			logger.Error("request completed", attrs...)
			return err
		}

		logger.Info("request completed", attrs...)
		return nil
	}
}
