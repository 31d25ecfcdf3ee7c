package admin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/wrc-program/attendance/internal/attendee"
	"github.com/wrc-program/attendance/internal/program"
)

// Handler exposes the dashboard endpoints. All routes sit behind admin auth.
type Handler struct {
	service   *Service
	attendees *attendee.Service
}

func NewHandler(service *Service, attendees *attendee.Service) *Handler {
	return &Handler{service: service, attendees: attendees}
}

type attendanceFlags struct {
	Day1 bool `json:"day1"`
	Day2 bool `json:"day2"`
	Day3 bool `json:"day3"`
	Day4 bool `json:"day4"`
}

type attendeeRow struct {
	attendee.View
	Attendance attendanceFlags `json:"attendance"`
}

type markCollectedRequest struct {
	AttendeeID string `json:"attendee_id"`
	Collected  bool   `json:"collected"`
}

// ListAttendees serves GET /admin/attendees.
func (h *Handler) ListAttendees(c *fiber.Ctx) error {
	page, err := h.service.ListAttendees(c.UserContext(), ListParams{
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", DefaultPageSize),
		Search: c.Query("search"),
		Days:   program.ParseDaySet(c.Query("days")),
	})
	if err != nil {
		return err
	}
	rows := make([]attendeeRow, 0, len(page.Rows))
	for _, r := range page.Rows {
		rows = append(rows, attendeeRow{
			View: attendee.NewView(r.Attendee),
			Attendance: attendanceFlags{
				Day1: r.Attendance[0],
				Day2: r.Attendance[1],
				Day3: r.Attendance[2],
				Day4: r.Attendance[3],
			},
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":   true,
		"attendees": rows,
		"pagination": fiber.Map{
			"page":        page.Page,
			"limit":       page.Limit,
			"total":       page.Total,
			"total_pages": page.TotalPages,
		},
	})
}

// Report serves GET /admin/attendance/report.
func (h *Handler) Report(c *fiber.Ctx) error {
	raw := strings.TrimSpace(c.Query("days"))
	if raw == "" {
		return fiber.NewError(http.StatusBadRequest, ErrDaysRequired.Error())
	}
	report, err := h.service.Report(c.UserContext(), program.ParseDaySet(raw))
	if errors.Is(err, ErrDaysRequired) {
		return fiber.NewError(http.StatusBadRequest, "invalid days parameter")
	}
	if err != nil {
		return err
	}
	views := make([]attendee.View, 0, len(report.Attendees))
	for _, a := range report.Attendees {
		views = append(views, attendee.NewView(a))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":   true,
		"days":      report.Days,
		"count":     len(views),
		"attendees": views,
	})
}

// Summary serves GET /admin/attendance/summary.
func (h *Handler) Summary(c *fiber.Ctx) error {
	sum, err := h.service.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"summary": fiber.Map{
			"total_registered": sum.TotalRegistered,
			"day1_count":       sum.PerDay[0],
			"day2_count":       sum.PerDay[1],
			"day3_count":       sum.PerDay[2],
			"day4_count":       sum.PerDay[3],
		},
	})
}

// MarkCollected serves POST /admin/attendees/mark-collected.
func (h *Handler) MarkCollected(c *fiber.Ctx) error {
	var req markCollectedRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.attendees.SetVoucher(c.UserContext(), strings.TrimSpace(req.AttendeeID), req.Collected)
	switch {
	case errors.Is(err, attendee.ErrMissingID):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, attendee.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case err != nil:
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "attendee": attendee.NewView(a)})
}

// DayLinks serves GET /admin/day-links.
func (h *Handler) DayLinks(c *fiber.Ctx) error {
	links := h.service.DayLinks()
	out := make([]fiber.Map, 0, len(links))
	for _, l := range links {
		entry := fiber.Map{
			"day":       int(l.Day),
			"env_key":   l.EnvKey,
			"has_token": l.Configured,
			"token":     nil,
			"venue_url": nil,
		}
		if l.Configured {
			entry["token"] = l.Token
			entry["venue_url"] = l.VenueURL
		}
		out = append(out, entry)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "day_tokens": out})
}
