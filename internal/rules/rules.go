package rules

import (
	"github.com/shopspring/decimal"

	"github.com/vendorpay/vendorpay/internal/model"
)

// Policy holds the payment rules applied to vendors. Weekly vendors are paid
// BaseAmount, biweekly vendors twice that, on-demand vendors whatever the
// caller asks for.
type Policy struct {
	BaseAmount decimal.Decimal

	// Identifier ranges used only to classify legacy records that were stored
	// without an explicit schedule.
	WeeklyMin, WeeklyMax     int
	BiweeklyMin, BiweeklyMax int
}

// Rule is the outcome of applying a Policy to a vendor.
type Rule struct {
	Schedule       model.Schedule
	Amount         decimal.Decimal
	DefaultAccount model.AccountName
}

// Default returns the stock policy: base amount 100, ids 1-5 weekly, 6-10 biweekly.
func Default() Policy {
	return Policy{
		BaseAmount:  decimal.NewFromInt(100),
		WeeklyMin:   1,
		WeeklyMax:   5,
		BiweeklyMin: 6,
		BiweeklyMax: 10,
	}
}

// ForSchedule returns the rule for an explicit schedule.
func (p Policy) ForSchedule(s model.Schedule) Rule {
	switch s {
	case model.ScheduleWeekly:
		return Rule{Schedule: s, Amount: p.BaseAmount, DefaultAccount: DefaultAccount(s)}
	case model.ScheduleBiweekly:
		return Rule{Schedule: s, Amount: p.BaseAmount.Mul(decimal.NewFromInt(2)), DefaultAccount: DefaultAccount(s)}
	default:
		return Rule{Schedule: model.ScheduleOnDemand, Amount: decimal.Zero, DefaultAccount: DefaultAccount(model.ScheduleOnDemand)}
	}
}

// ForPaymentType returns the rule for a vendor's chosen payment type.
func (p Policy) ForPaymentType(t model.PaymentType) Rule {
	return p.ForSchedule(t.Schedule())
}

// ForIdentifier classifies a vendor by the numeric prefix of its identifier.
// Identifiers without a numeric prefix are on-demand.
func (p Policy) ForIdentifier(id string) Rule {
	n, ok := leadingInt(id)
	switch {
	case ok && n >= p.WeeklyMin && n <= p.WeeklyMax:
		return p.ForSchedule(model.ScheduleWeekly)
	case ok && n >= p.BiweeklyMin && n <= p.BiweeklyMax:
		return p.ForSchedule(model.ScheduleBiweekly)
	default:
		return p.ForSchedule(model.ScheduleOnDemand)
	}
}

// DefaultAccount is advisory: scheduled vendors draw from Account 1,
// on-demand vendors from Account 2.
func DefaultAccount(s model.Schedule) model.AccountName {
	if s.Scheduled() {
		return model.Account1
	}
	return model.Account2
}

func leadingInt(s string) (int, bool) {
	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		// large time-derived ids saturate well outside any range
		if n < 1<<40 {
			n = n*10 + int(r-'0')
		}
		digits++
	}
	return n, digits > 0
}
