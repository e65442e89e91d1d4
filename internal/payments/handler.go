package payments

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/vendorpay/vendorpay/internal/ledger"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type sweepRequest struct {
	Force bool `json:"force"`
}

type onDemandRequest struct {
	VendorID      string          `json:"vendorId"`
	Amount        decimal.Decimal `json:"amount"`
	SkipScheduled bool            `json:"skipScheduled"`
}

// Sweep runs the scheduled payment pass.
func (h *Handler) Sweep(c *fiber.Ctx) error {
	var req sweepRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	if c.QueryBool("force") {
		req.Force = true
	}
	res, err := h.service.ProcessScheduledPayments(c.UserContext(), req.Force)
	if err != nil {
		if errors.Is(err, ErrSweepInProgress) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(res)
}

// OnDemand pays a vendor an arbitrary amount.
func (h *Handler) OnDemand(c *fiber.Ctx) error {
	var req onDemandRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	p, err := h.service.ProcessOnDemandPayment(c.UserContext(), req.VendorID, req.Amount, req.SkipScheduled)
	if err != nil {
		switch {
		case errors.Is(err, ErrVendorNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrInvalidAmount), errors.Is(err, ledger.ErrUnknownAccount):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	status := http.StatusCreated
	if p.Status == StatusPending {
		status = http.StatusAccepted
	}
	return c.Status(status).JSON(p)
}

// Pending lists the queued payments.
func (h *Handler) Pending(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"pending": h.service.Pending()})
}

// RetryAll retries every queued payment the accounts can cover.
func (h *Handler) RetryAll(c *fiber.Ctx) error {
	res, err := h.service.RetryAllPending(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(res)
}

// RetryVendor retries the oldest queued payment for :vendorId.
func (h *Handler) RetryVendor(c *fiber.Ctx) error {
	ok, err := h.service.RetryPaymentForVendor(c.UserContext(), c.Params("vendorId"))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"completed": ok})
}
