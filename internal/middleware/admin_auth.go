package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/wrc-program/attendance/internal/auth"
)

const adminClaimsKey = "admin_claims"

// AdminAuth requires a valid admin bearer token.
func AdminAuth(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := svc.Authorize(strings.TrimSpace(authz[len("Bearer "):]))
		switch {
		case errors.Is(err, auth.ErrNotConfigured):
			return fiber.NewError(http.StatusServiceUnavailable, "admin access is not configured")
		case errors.Is(err, auth.ErrTokenExpired):
			return fiber.NewError(http.StatusUnauthorized, "session expired")
		case err != nil:
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		c.Locals(adminClaimsKey, claims)
		return c.Next()
	}
}
