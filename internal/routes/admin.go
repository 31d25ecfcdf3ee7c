package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wrc-program/attendance/internal/admin"
)

// RegisterAdminRoutes wires the dashboard endpoints. r must already enforce admin auth.
func RegisterAdminRoutes(r fiber.Router, h *admin.Handler) {
	r.Get("/attendees", h.ListAttendees)
	r.Post("/attendees/mark-collected", h.MarkCollected)
	r.Get("/attendance/report", h.Report)
	r.Get("/attendance/summary", h.Summary)
	r.Get("/day-links", h.DayLinks)
}
