package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendorpay/vendorpay/internal/model"
	"github.com/vendorpay/vendorpay/internal/store"
)

var (
	// ErrInsufficientFunds occurs when the account balance cannot cover a payment.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnknownAccount is returned for account names the ledger does not hold.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrInvalidAmount rejects non-positive payments and deposits.
	ErrInvalidAmount = errors.New("amount must be positive")
)

const (
	unknownVendorName = "Unknown Vendor"
	systemVendorName  = "System"
)

// Kind classifies a transaction log entry.
type Kind string

const (
	KindPayment    Kind = "payment"
	KindDeposit    Kind = "deposit"
	KindAdjustment Kind = "adjustment"
)

// Account is a named balance.
type Account struct {
	Name    model.AccountName `json:"name"`
	Balance decimal.Decimal   `json:"balance"`
}

// Transaction is an immutable log entry. Amount is the signed delta applied
// to the account balance.
type Transaction struct {
	ID         string            `json:"id"`
	Account    model.AccountName `json:"account"`
	Amount     decimal.Decimal   `json:"amount"`
	Date       time.Time         `json:"date"`
	VendorID   string            `json:"vendorId,omitempty"`
	VendorName string            `json:"vendorName"`
	Kind       Kind              `json:"type"`
}

// VendorNames resolves the display name recorded on payment transactions.
type VendorNames interface {
	VendorName(id string) (string, bool)
}

// Ledger holds the two fixed account balances and the append-only log.
type Ledger struct {
	mu       sync.RWMutex
	store    store.Store
	names    VendorNames
	now      func() time.Time
	balances map[model.AccountName]decimal.Decimal
	txs      []Transaction
}

// New creates a ledger whose fixed accounts start at opening. Call Load to
// replace them with persisted state.
func New(st store.Store, names VendorNames, opening decimal.Decimal, clock func() time.Time) *Ledger {
	if clock == nil {
		clock = time.Now
	}
	balances := make(map[model.AccountName]decimal.Decimal, len(model.FixedAccounts))
	for _, name := range model.FixedAccounts {
		balances[name] = opening
	}
	return &Ledger{store: st, names: names, now: clock, balances: balances}
}

// Load reads balances and the transaction log from the store. Missing keys
// keep the opening state.
func (l *Ledger) Load(ctx context.Context) error {
	var accounts map[string]Account
	foundAccounts, err := store.LoadJSON(ctx, l.store, store.KeyAccounts, &accounts)
	if err != nil {
		return err
	}
	var txs []Transaction
	if _, err := store.LoadJSON(ctx, l.store, store.KeyTransactions, &txs); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if foundAccounts {
		for key, acct := range accounts {
			name := acct.Name
			if name == "" {
				name = model.AccountName(key)
			}
			l.balances[name] = acct.Balance
		}
	}
	l.txs = txs
	return nil
}

// Balance returns the current balance, zero for unknown accounts.
func (l *Ledger) Balance(account model.AccountName) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account]
}

// Accounts returns every account, fixed accounts first.
func (l *Ledger) Accounts() []Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accountsLocked()
}

// Transactions returns the log in insertion order, filtered by account when
// one is given.
func (l *Ledger) Transactions(account model.AccountName) []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Transaction, 0, len(l.txs))
	for _, tx := range l.txs {
		if account == "" || tx.Account == account {
			out = append(out, tx)
		}
	}
	return out
}

// ProcessPayment debits amount from account for vendorID. On failure the
// balance and log are untouched.
func (l *Ledger) ProcessPayment(ctx context.Context, account model.AccountName, amount decimal.Decimal, vendorID string) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	vendorName := unknownVendorName
	if l.names != nil {
		if name, ok := l.names.VendorName(vendorID); ok && name != "" {
			vendorName = name
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[account]
	if !ok {
		return Transaction{}, fmt.Errorf("%w: %q", ErrUnknownAccount, account)
	}
	if balance.LessThan(amount) {
		return Transaction{}, fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientFunds, account, balance, amount)
	}

	return l.applyLocked(ctx, Transaction{
		Account:    account,
		Amount:     amount.Neg(),
		VendorID:   vendorID,
		VendorName: vendorName,
		Kind:       KindPayment,
	}, balance.Sub(amount))
}

// Deposit credits amount to account.
func (l *Ledger) Deposit(ctx context.Context, account model.AccountName, amount decimal.Decimal) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[account]
	if !ok {
		return Transaction{}, fmt.Errorf("%w: %q", ErrUnknownAccount, account)
	}
	return l.applyLocked(ctx, Transaction{
		Account:    account,
		Amount:     amount,
		VendorName: systemVendorName,
		Kind:       KindDeposit,
	}, balance.Add(amount))
}

// AdjustBalance sets the balance of account to newBalance and records the
// signed difference. A zero difference is still logged.
func (l *Ledger) AdjustBalance(ctx context.Context, account model.AccountName, newBalance decimal.Decimal) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance, ok := l.balances[account]
	if !ok {
		return Transaction{}, fmt.Errorf("%w: %q", ErrUnknownAccount, account)
	}
	return l.applyLocked(ctx, Transaction{
		Account:    account,
		Amount:     newBalance.Sub(balance),
		VendorName: systemVendorName,
		Kind:       KindAdjustment,
	}, newBalance)
}

// applyLocked sets the new balance, appends tx and persists. A failed write
// restores the previous in-memory state.
func (l *Ledger) applyLocked(ctx context.Context, tx Transaction, newBalance decimal.Decimal) (Transaction, error) {
	tx.ID = uuid.NewString()
	tx.Date = l.now()

	previous := l.balances[tx.Account]
	l.balances[tx.Account] = newBalance
	l.txs = append(l.txs, tx)

	if err := l.persistLocked(ctx); err != nil {
		l.balances[tx.Account] = previous
		l.txs = l.txs[:len(l.txs)-1]
		return Transaction{}, fmt.Errorf("persist ledger: %w", err)
	}
	return tx, nil
}

func (l *Ledger) persistLocked(ctx context.Context) error {
	accounts := make(map[string]Account, len(l.balances))
	for _, acct := range l.accountsLocked() {
		accounts[string(acct.Name)] = acct
	}
	if err := store.SaveJSON(ctx, l.store, store.KeyAccounts, accounts); err != nil {
		return err
	}
	txs := l.txs
	if txs == nil {
		txs = []Transaction{}
	}
	return store.SaveJSON(ctx, l.store, store.KeyTransactions, txs)
}

func (l *Ledger) accountsLocked() []Account {
	out := make([]Account, 0, len(l.balances))
	for _, name := range model.FixedAccounts {
		if balance, ok := l.balances[name]; ok {
			out = append(out, Account{Name: name, Balance: balance})
		}
	}
	var extra []model.AccountName
	for name := range l.balances {
		if !name.Valid() {
			extra = append(extra, name)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, name := range extra {
		out = append(out, Account{Name: name, Balance: l.balances[name]})
	}
	return out
}
