package vendors

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vendorpay/vendorpay/internal/model"
	"github.com/vendorpay/vendorpay/internal/rules"
	"github.com/vendorpay/vendorpay/internal/store"
)

var (
	// ErrNameRequired is returned when a vendor is added without a name.
	ErrNameRequired = errors.New("vendor name is required")
	// ErrInvalidPaymentType is returned for payment types outside Weekly/Biweekly/On-Demand.
	ErrInvalidPaymentType = errors.New("invalid payment type")
	// ErrInvalidAccount is returned when the assigned account is not a fixed account.
	ErrInvalidAccount = errors.New("invalid account")
)

// Directory owns the vendor records and persists them as one ordered list.
type Directory struct {
	mu      sync.RWMutex
	store   store.Store
	rules   rules.Policy
	now     func() time.Time
	vendors []model.Vendor
	lastID  int64
}

// NewDirectory builds an empty directory. Call Load to read persisted vendors.
func NewDirectory(st store.Store, policy rules.Policy, clock func() time.Time) *Directory {
	if clock == nil {
		clock = time.Now
	}
	return &Directory{store: st, rules: policy, now: clock}
}

// AddInput captures the fields a caller chooses for a new vendor.
type AddInput struct {
	Name        string
	PaymentType model.PaymentType
	Account     model.AccountName
}

// Load replaces the in-memory list with the persisted one. Records written
// before schedules were stored get their schedule and base amount from the
// identifier range rules.
func (d *Directory) Load(ctx context.Context) error {
	var loaded []model.Vendor
	if _, err := store.LoadJSON(ctx, d.store, store.KeyVendors, &loaded); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastID = 0
	for i := range loaded {
		if loaded[i].Schedule == "" {
			rule := d.rules.ForIdentifier(loaded[i].ID)
			loaded[i].Schedule = rule.Schedule
			loaded[i].BaseAmount = rule.Amount
		}
		if n, err := strconv.ParseInt(loaded[i].ID, 10, 64); err == nil && n > d.lastID {
			d.lastID = n
		}
	}
	d.vendors = loaded
	return nil
}

// List returns a copy of all vendors in insertion order.
func (d *Directory) List() []model.Vendor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]model.Vendor, len(d.vendors))
	copy(out, d.vendors)
	return out
}

// Get looks a vendor up by identifier.
func (d *Directory) Get(id string) (model.Vendor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i := d.indexOf(id); i >= 0 {
		return d.vendors[i], true
	}
	return model.Vendor{}, false
}

// VendorName returns the display name for id.
func (d *Directory) VendorName(id string) (string, bool) {
	v, ok := d.Get(id)
	return v.Name, ok
}

// Add validates the input, assigns a fresh identifier, derives the schedule
// and base amount from the payment type and persists the directory.
func (d *Directory) Add(ctx context.Context, input AddInput) (model.Vendor, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return model.Vendor{}, ErrNameRequired
	}
	if !input.PaymentType.Valid() {
		return model.Vendor{}, fmt.Errorf("%w: %q", ErrInvalidPaymentType, input.PaymentType)
	}
	rule := d.rules.ForPaymentType(input.PaymentType)
	account := input.Account
	if account == "" {
		account = rule.DefaultAccount
	}
	if !account.Valid() {
		return model.Vendor{}, fmt.Errorf("%w: %q", ErrInvalidAccount, account)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	prevID := d.lastID
	vendor := model.Vendor{
		ID:          d.nextIDLocked(),
		Name:        name,
		PaymentType: input.PaymentType,
		Schedule:    rule.Schedule,
		BaseAmount:  rule.Amount,
		Account:     account,
	}
	d.vendors = append(d.vendors, vendor)
	if err := d.persistLocked(ctx); err != nil {
		d.vendors = d.vendors[:len(d.vendors)-1]
		d.lastID = prevID
		return model.Vendor{}, err
	}
	return vendor, nil
}

// Update replaces the record with the same identifier. It reports false and
// writes nothing when no such vendor exists.
func (d *Directory) Update(ctx context.Context, vendor model.Vendor) (bool, error) {
	return d.Modify(ctx, vendor.ID, func(v *model.Vendor) {
		*v = vendor
	})
}

// Modify applies fn to the stored record for id and persists the result, all
// under the directory lock so concurrent edits of other fields are not lost.
// Clearing Schedule re-derives schedule and base amount from the payment type.
// It reports false and writes nothing when no such vendor exists.
func (d *Directory) Modify(ctx context.Context, id string, fn func(*model.Vendor)) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexOf(id)
	if i < 0 {
		return false, nil
	}
	prev := d.vendors[i]
	vendor := prev
	fn(&vendor)
	vendor.ID = prev.ID
	if vendor.Account != "" && !vendor.Account.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidAccount, vendor.Account)
	}
	if vendor.Schedule == "" {
		rule := d.rules.ForPaymentType(vendor.PaymentType)
		vendor.Schedule = rule.Schedule
		vendor.BaseAmount = rule.Amount
	}

	d.vendors[i] = vendor
	if err := d.persistLocked(ctx); err != nil {
		d.vendors[i] = prev
		return false, err
	}
	return true, nil
}

// Delete removes the vendor with id. It reports false when nothing matched.
func (d *Directory) Delete(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexOf(id)
	if i < 0 {
		return false, nil
	}
	prev := d.vendors
	d.vendors = append(d.vendors[:i:i], d.vendors[i+1:]...)
	if err := d.persistLocked(ctx); err != nil {
		d.vendors = prev
		return false, err
	}
	return true, nil
}

func (d *Directory) indexOf(id string) int {
	for i := range d.vendors {
		if d.vendors[i].ID == id {
			return i
		}
	}
	return -1
}

// nextIDLocked derives the id from the millisecond clock, bumping past the
// last issued id so two adds in the same millisecond stay unique.
func (d *Directory) nextIDLocked() string {
	id := d.now().UnixMilli()
	if id <= d.lastID {
		id = d.lastID + 1
	}
	d.lastID = id
	return strconv.FormatInt(id, 10)
}

func (d *Directory) persistLocked(ctx context.Context) error {
	vendors := d.vendors
	if vendors == nil {
		vendors = []model.Vendor{}
	}
	return store.SaveJSON(ctx, d.store, store.KeyVendors, vendors)
}
