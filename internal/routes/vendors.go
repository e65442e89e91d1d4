package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vendorpay/vendorpay/internal/vendors"
)

// RegisterVendorRoutes wires the vendor directory endpoints.
func RegisterVendorRoutes(r fiber.Router, h *vendors.Handler) {
	r.Get("/vendors", h.List)
	r.Post("/vendors", h.Create)
	r.Put("/vendors/:id", h.Update)
	r.Delete("/vendors/:id", h.Delete)
}
