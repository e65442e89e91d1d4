package ledger

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/vendorpay/vendorpay/internal/model"
)

// Handler exposes account balances and the transaction log.
type Handler struct {
	ledger *Ledger
}

// NewHandler constructs an account handler.
func NewHandler(l *Ledger) *Handler {
	return &Handler{ledger: l}
}

type depositRequest struct {
	Account model.AccountName `json:"account"`
	Amount  decimal.Decimal   `json:"amount"`
}

type adjustRequest struct {
	Account    model.AccountName `json:"account"`
	NewBalance decimal.Decimal   `json:"newBalance"`
}

// Accounts lists both accounts with their balances.
func (h *Handler) Accounts(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"accounts": h.ledger.Accounts()})
}

// Deposit credits an account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	tx, err := h.ledger.Deposit(c.UserContext(), req.Account, req.Amount)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction": tx,
		"balance":     h.ledger.Balance(req.Account),
	})
}

// Adjust sets an account balance directly.
func (h *Handler) Adjust(c *fiber.Ctx) error {
	var req adjustRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	tx, err := h.ledger.AdjustBalance(c.UserContext(), req.Account, req.NewBalance)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction": tx,
		"balance":     h.ledger.Balance(req.Account),
	})
}

// Transactions returns the log, optionally filtered by ?account=.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	account := model.AccountName(c.Query("account"))
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": h.ledger.Transactions(account)})
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownAccount):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
