package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType is the payment cadence chosen for a vendor.
type PaymentType string

const (
	PaymentWeekly   PaymentType = "Weekly"
	PaymentBiweekly PaymentType = "Biweekly"
	PaymentOnDemand PaymentType = "On-Demand"
)

// Valid reports whether the payment type is known.
func (p PaymentType) Valid() bool {
	switch p {
	case PaymentWeekly, PaymentBiweekly, PaymentOnDemand:
		return true
	}
	return false
}

// Schedule returns the sweep schedule that corresponds to the payment type.
func (p PaymentType) Schedule() Schedule {
	switch p {
	case PaymentWeekly:
		return ScheduleWeekly
	case PaymentBiweekly:
		return ScheduleBiweekly
	default:
		return ScheduleOnDemand
	}
}

// Schedule drives whether the sweep pays a vendor automatically.
type Schedule string

const (
	ScheduleWeekly   Schedule = "weekly"
	ScheduleBiweekly Schedule = "biweekly"
	ScheduleOnDemand Schedule = "on-demand"
)

// Scheduled reports whether the sweep considers vendors on this schedule.
func (s Schedule) Scheduled() bool {
	return s == ScheduleWeekly || s == ScheduleBiweekly
}

// Vendor is a payee tracked by the directory.
type Vendor struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	PaymentType     PaymentType     `json:"paymentType"`
	Schedule        Schedule        `json:"schedule,omitempty"`
	BaseAmount      decimal.Decimal `json:"baseAmount"`
	Account         AccountName     `json:"account"`
	LastPaymentDate *time.Time      `json:"lastPaymentDate,omitempty"`
	NextPaymentDate *time.Time      `json:"nextPaymentDate,omitempty"`
	PendingPayment  bool            `json:"pendingPayment,omitempty"`
}
