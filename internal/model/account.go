package model

// AccountName identifies one of the fixed funding accounts.
type AccountName string

const (
	Account1 AccountName = "Account 1"
	Account2 AccountName = "Account 2"
)

// FixedAccounts lists the accounts every ledger starts with, in display order.
var FixedAccounts = []AccountName{Account1, Account2}

// Valid reports whether the name is one of the fixed accounts.
func (a AccountName) Valid() bool {
	return a == Account1 || a == Account2
}
