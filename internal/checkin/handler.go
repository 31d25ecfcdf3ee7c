package checkin

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the scan endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type verifyRequest struct {
	ScannedBy string `json:"scanned_by"`
}

type tokenCheckRequest struct {
	Token string `json:"token"`
	Phone string `json:"phone"`
}

// Verify handles a staff scan of a signed QR code.
func (h *Handler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if len(c.Body()) > 0 {
		// The body is optional; an unreadable one is treated as empty.
		_ = c.BodyParser(&req)
	}
	res, err := h.service.VerifySigned(c.UserContext(), SignedRequest{
		UID:       c.Query("uid"),
		Day:       c.Query("day"),
		Signature: c.Query("sig"),
		ScannedBy: req.ScannedBy,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":       true,
		"message":       res.Message,
		"attendee_name": res.AttendeeName,
		"day":           int(res.Day),
		"scan_time":     res.ScanTime,
	})
}

// TokenCheck handles the venue QR code flow.
func (h *Handler) TokenCheck(c *fiber.Ctx) error {
	var req tokenCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.service.CheckStaticToken(c.UserContext(), StaticRequest{Token: req.Token, Phone: req.Phone})
	if err != nil {
		return respondError(c, err)
	}
	if res.NeedsPhone {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"success":        true,
			"requires_phone": true,
			"day":            int(res.Day),
			"message":        res.Message,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":       true,
		"day":           int(res.Day),
		"attendee_name": res.AttendeeName,
		"scan_time":     res.ScanTime,
		"message":       res.Message,
	})
}

func respondError(c *fiber.Ctx, err error) error {
	var scanned *AlreadyScannedError
	switch {
	case errors.As(err, &scanned):
		return c.Status(http.StatusConflict).JSON(fiber.Map{
			"success":         false,
			"error":           "already scanned",
			"first_scan_time": scanned.FirstScanTime.Format(time.RFC3339Nano),
			"message":         scanned.Error(),
		})
	case errors.Is(err, ErrMalformed), errors.Is(err, ErrDayNotOpen),
		errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrInvalidToken):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUnregistered):
		return fiber.NewError(http.StatusNotFound, "unregistered attendee")
	default:
		return err
	}
}
