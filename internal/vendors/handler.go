package vendors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vendorpay/vendorpay/internal/model"
)

// Handler exposes the vendor directory over HTTP.
type Handler struct {
	dir *Directory
}

// NewHandler constructs a vendor handler.
func NewHandler(dir *Directory) *Handler {
	return &Handler{dir: dir}
}

type vendorRequest struct {
	Name        string            `json:"name"`
	PaymentType model.PaymentType `json:"paymentType"`
	Account     model.AccountName `json:"account"`
}

// List returns every vendor in insertion order.
func (h *Handler) List(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"vendors": h.dir.List()})
}

// Create adds a vendor.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req vendorRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	vendor, err := h.dir.Add(c.UserContext(), AddInput{Name: req.Name, PaymentType: req.PaymentType, Account: req.Account})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(vendor)
}

// Update edits name, payment type and account of an existing vendor. An
// unknown id is not an error; the response reports updated=false.
func (h *Handler) Update(c *fiber.Ctx) error {
	var req vendorRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.PaymentType != "" && !req.PaymentType.Valid() {
		return fiber.NewError(http.StatusBadRequest, ErrInvalidPaymentType.Error())
	}

	id := c.Params("id")
	name := strings.TrimSpace(req.Name)
	updated, err := h.dir.Modify(c.UserContext(), id, func(v *model.Vendor) {
		if name != "" {
			v.Name = name
		}
		if req.PaymentType != "" && req.PaymentType != v.PaymentType {
			v.PaymentType = req.PaymentType
			// re-derived from the new payment type on save
			v.Schedule = ""
		}
		if req.Account != "" {
			v.Account = req.Account
		}
	})
	if err != nil {
		return toHTTPError(err)
	}
	if !updated {
		return c.Status(http.StatusOK).JSON(fiber.Map{"updated": false})
	}
	current, _ := h.dir.Get(id)
	return c.Status(http.StatusOK).JSON(fiber.Map{"updated": true, "vendor": current})
}

// Delete removes a vendor; deleting an unknown id reports deleted=false.
func (h *Handler) Delete(c *fiber.Ctx) error {
	deleted, err := h.dir.Delete(c.UserContext(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"deleted": deleted})
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrInvalidPaymentType), errors.Is(err, ErrInvalidAccount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
