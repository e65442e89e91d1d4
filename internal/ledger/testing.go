package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/vendorpay/vendorpay/internal/model"
)

// SeedBalance is a test helper that sets a balance without logging or persisting.
func SeedBalance(l *Ledger, account model.AccountName, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = amount
}
