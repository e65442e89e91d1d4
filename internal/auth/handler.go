package auth

import (
    "errors"
    "net/http"

    "github.com/gofiber/fiber/v2"
)

// Handler exposes auth endpoints for login/logout/status.
type Handler struct {
    svc *Service
}

func NewHandler(svc *Service) *Handler {
    return &Handler{svc: svc}
}

type loginRequest struct {
    Identity string `json:"identity"`
    Secret   string `json:"secret"`
}

type loginResponse struct {
    Token    string `json:"token"`
    Identity string `json:"identity"`
}

// Login validates credentials and opens the session.
func (h *Handler) Login(c *fiber.Ctx) error {
    var req loginRequest
    if err := c.BodyParser(&req); err != nil {
        return fiber.NewError(http.StatusBadRequest, err.Error())
    }
    sess, err := h.svc.Login(c.UserContext(), req.Identity, req.Secret)
    if err != nil {
        if errors.Is(err, ErrInvalidCredentials) {
            return fiber.NewError(http.StatusUnauthorized, err.Error())
        }
        return fiber.NewError(http.StatusInternalServerError, err.Error())
    }
    return c.Status(http.StatusOK).JSON(loginResponse{Token: sess.Token, Identity: sess.Identity})
}

// Logout closes the session.
func (h *Handler) Logout(c *fiber.Ctx) error {
    if err := h.svc.Logout(c.UserContext()); err != nil {
        return fiber.NewError(http.StatusInternalServerError, err.Error())
    }
    return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}

// Status reports whether someone is logged in.
func (h *Handler) Status(c *fiber.Ctx) error {
    return c.Status(http.StatusOK).JSON(fiber.Map{"authenticated": h.svc.IsAuthenticated()})
}
