package routes

import (
    "github.com/gofiber/fiber/v2"

    "github.com/vendorpay/vendorpay/internal/payments"
)

// RegisterPaymentRoutes wires sweep, on-demand and pending-queue endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler) {
    group := r.Group("/payments")
    group.Post("/sweep", h.Sweep)
    group.Post("/on-demand", h.OnDemand)
    group.Get("/pending", h.Pending)
    group.Post("/pending/retry", h.RetryAll)
    group.Post("/pending/:vendorId/retry", h.RetryVendor)
}
