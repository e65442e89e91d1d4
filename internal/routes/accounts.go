package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vendorpay/vendorpay/internal/ledger"
)

// RegisterAccountRoutes wires balances and the transaction log.
func RegisterAccountRoutes(r fiber.Router, h *ledger.Handler) {
	r.Get("/accounts", h.Accounts)
	r.Post("/accounts/deposit", h.Deposit)
	r.Post("/accounts/adjust", h.Adjust)
	r.Get("/transactions", h.Transactions)
}
