package routes

import (
    "github.com/gofiber/fiber/v2"

    "github.com/vendorpay/vendorpay/internal/auth"
)

// RegisterAuthRoutes wires the public authentication endpoints. Logout is
// registered on the protected group.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
    group := r.Group("/auth")
    if rateLimiter != nil {
        group.Post("/login", rateLimiter, h.Login)
    } else {
        group.Post("/login", h.Login)
    }
    group.Get("/status", h.Status)
}
