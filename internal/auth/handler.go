package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the admin login endpoint.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type loginRequest struct {
	Code string `json:"code"`
}

// Login validates the admin code and returns a bearer token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	session, err := h.svc.Login(req.Code)
	switch {
	case errors.Is(err, ErrCodeRequired):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidCode):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case err != nil:
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":      true,
		"access_token": session.Token,
		"token_type":   "Bearer",
		"expires_at":   session.ExpiresAt.UTC(),
	})
}
