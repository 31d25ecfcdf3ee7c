package routes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/wrc-program/attendance/internal/attendance"
	"github.com/wrc-program/attendance/internal/attendee"
	"github.com/wrc-program/attendance/internal/notification"
	"github.com/wrc-program/attendance/internal/program"
	"github.com/wrc-program/attendance/internal/qrpass"
)

type attendeeRoutes struct {
	attendees *attendee.Service
	logs      attendance.Store
	schedule  *program.Schedule
	notifier  notification.Notifier
	logger    *slog.Logger
}

// RegisterAttendeeRoutes wires the public registration and self-service
// endpoints. idempotency guards registration against double submits.
func RegisterAttendeeRoutes(r fiber.Router, ids *attendee.Service, logs attendance.Store, sched *program.Schedule,
	notifier notification.Notifier, idempotency fiber.Handler, logger *slog.Logger) {
	h := &attendeeRoutes{attendees: ids, logs: logs, schedule: sched, notifier: notifier, logger: logger}
	r.Post("/register", idempotency, h.register)
	r.Get("/attendees/lookup", h.lookup)
	r.Get("/attendees/pass.pdf", h.passPDF)
}

func (h *attendeeRoutes) register(c *fiber.Ctx) error {
	var req struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.attendees.Register(c.UserContext(), attendee.RegisterInput{Name: req.Name, Phone: req.Phone})
	if errors.Is(err, attendee.ErrPassImages) {
		// The attendee is stored and the links work; only the images are missing.
		if h.logger != nil {
			h.logger.Warn("attendee.register images unavailable", slog.String("uid", a.UID), slog.Any("error", err))
		}
		err = nil
	}
	switch {
	case errors.Is(err, attendee.ErrMissingFields), errors.Is(err, attendee.ErrInvalidPhone):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, attendee.ErrPhoneTaken):
		return fiber.NewError(http.StatusConflict, err.Error())
	case err != nil:
		return err
	}

	if h.notifier != nil {
		_ = h.notifier.Send(c.UserContext(), notification.Message{
			Kind:        notification.KindRegistration,
			Destination: a.Phone,
			Body:        fmt.Sprintf("Registered as %s", a.UID),
		})
	}
	if h.logger != nil {
		h.logger.Info("attendee.register completed",
			slog.String("attendee_id", a.ID),
			slog.String("uid", a.UID),
			slog.Bool("signed_passes", a.HasSecret()),
		)
	}
	view := attendee.NewView(a)
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success":       true,
		"uid":           a.UID,
		"name":          a.Name,
		"qr_urls":       view.QRURLs,
		"qr_image_urls": view.QRImageURLs,
	})
}

func (h *attendeeRoutes) find(c *fiber.Ctx) (attendee.Attendee, error) {
	phone := c.Query("phone")
	if phone == "" {
		return attendee.Attendee{}, fiber.NewError(http.StatusBadRequest, "phone number is required")
	}
	a, err := h.attendees.Lookup(c.UserContext(), phone)
	switch {
	case errors.Is(err, attendee.ErrInvalidPhone), errors.Is(err, attendee.ErrNotFound):
		return attendee.Attendee{}, fiber.NewError(http.StatusNotFound, "no attendee found with this phone number")
	case err != nil:
		return attendee.Attendee{}, err
	}
	return a, nil
}

func (h *attendeeRoutes) lookup(c *fiber.Ctx) error {
	a, err := h.find(c)
	if err != nil {
		return err
	}
	logs, err := h.logs.ListForAttendee(c.UserContext(), a.ID)
	if err != nil {
		return err
	}

	days := fiber.Map{}
	for _, d := range program.AllDays() {
		days[fmt.Sprintf("day%d", int(d))] = nil
	}
	for _, l := range logs {
		days[fmt.Sprintf("day%d", int(l.Day))] = fiber.Map{
			"status":     l.Status,
			"scan_time":  l.ScanTime,
			"scanned_by": l.ScannedBy,
		}
	}
	view := attendee.NewView(a)
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"attendee": fiber.Map{
			"uid":           a.UID,
			"name":          a.Name,
			"qr_urls":       view.QRURLs,
			"qr_image_urls": view.QRImageURLs,
		},
		"attendance": days,
	})
}

func (h *attendeeRoutes) passPDF(c *fiber.Ctx) error {
	a, err := h.find(c)
	if err != nil {
		return err
	}
	pdf, err := qrpass.RenderPDF(a, h.schedule)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s-pass.pdf"`, a.UID))
	return c.Status(http.StatusOK).Send(pdf)
}
