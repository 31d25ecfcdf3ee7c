package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wrc-program/attendance/internal/checkin"
)

// RegisterCheckinRoutes wires the two scan flows. Staff scans and venue
// token checks are limited separately: many attendee phones share one
// venue address and must not exhaust the staff scanner's quota.
func RegisterCheckinRoutes(r fiber.Router, h *checkin.Handler, verifyLimiter, venueLimiter fiber.Handler) {
	r.Post("/verify", verifyLimiter, h.Verify)
	r.Post("/token-check", venueLimiter, h.TokenCheck)
}
