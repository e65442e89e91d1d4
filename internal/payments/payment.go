package payments

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendorpay/vendorpay/internal/model"
)

var (
	// ErrVendorNotFound is returned when a payment targets an unknown vendor.
	ErrVendorNotFound = errors.New("vendor not found")
	// ErrSweepInProgress rejects a sweep that starts while another one runs.
	ErrSweepInProgress = errors.New("scheduled sweep already in progress")
	// ErrInvalidAmount rejects non-positive on-demand amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Status is the lifecycle state of a payment attempt.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
)

// Payment is a single attempt to pay a vendor from an account.
type Payment struct {
	ID       string            `json:"id"`
	VendorID string            `json:"vendorId"`
	Amount   decimal.Decimal   `json:"amount"`
	Date     time.Time         `json:"date"`
	Account  model.AccountName `json:"account"`
	Status   Status            `json:"status"`
}

// SweepResult summarises a scheduled sweep. Processed counts completed
// payments, Pending is the queue length afterwards.
type SweepResult struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Pending   int `json:"pending"`
}

// RetryResult summarises a retry of the whole pending queue.
type RetryResult struct {
	Completed int `json:"completed"`
	Remaining int `json:"remaining"`
}
