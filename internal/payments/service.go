package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendorpay/vendorpay/internal/ledger"
	"github.com/vendorpay/vendorpay/internal/logging"
	"github.com/vendorpay/vendorpay/internal/model"
	"github.com/vendorpay/vendorpay/internal/notification"
	"github.com/vendorpay/vendorpay/internal/rules"
)

// Ledger is the subset of the account ledger the engine moves funds with.
type Ledger interface {
	Balance(account model.AccountName) decimal.Decimal
	ProcessPayment(ctx context.Context, account model.AccountName, amount decimal.Decimal, vendorID string) (ledger.Transaction, error)
}

// Directory is the subset of the vendor directory the engine reads and updates.
type Directory interface {
	List() []model.Vendor
	Get(id string) (model.Vendor, bool)
	Modify(ctx context.Context, id string, fn func(*model.Vendor)) (bool, error)
}

// Config carries the engine's tunables.
type Config struct {
	Rules         rules.Policy
	ProcessingDay time.Weekday
	Clock         func() time.Time
	Logger        *slog.Logger
}

// Service decides which vendors are due, attempts their payments and keeps
// the pending queue.
type Service struct {
	ledger   Ledger
	vendors  Directory
	queue    *Queue
	notifier notification.Notifier

	rules         rules.Policy
	processingDay time.Weekday
	now           func() time.Time
	logger        *slog.Logger

	// mu serialises payment attempts; sweeping rejects overlapping sweeps.
	mu       sync.Mutex
	sweeping atomic.Bool
}

// NewService constructs the payment engine.
func NewService(l Ledger, dir Directory, queue *Queue, notifier notification.Notifier, cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Service{
		ledger:        l,
		vendors:       dir,
		queue:         queue,
		notifier:      notifier,
		rules:         cfg.Rules,
		processingDay: cfg.ProcessingDay,
		now:           cfg.Clock,
		logger:        cfg.Logger.With("component", "payments"),
	}
}

// ProcessScheduledPayments runs the sweep. Unless forced it only acts on the
// processing day, and then only for vendors whose next payment date is today.
func (s *Service) ProcessScheduledPayments(ctx context.Context, force bool) (SweepResult, error) {
	if !s.sweeping.CompareAndSwap(false, true) {
		return SweepResult{}, ErrSweepInProgress
	}
	defer s.sweeping.Store(false)

	today := s.now()
	if !force && today.Weekday() != s.processingDay {
		s.logger.Debug("not a processing day, sweep skipped", "weekday", today.Weekday().String())
		return SweepResult{Pending: s.queue.Len()}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		result SweepResult
		due    []Payment
	)
	for _, v := range s.vendors.List() {
		if !v.Schedule.Scheduled() {
			result.Skipped++
			continue
		}
		if !force && !dueOn(v, today) {
			result.Skipped++
			continue
		}
		due = append(due, s.newPayment(v, s.amountFor(v)))
	}

	var errs []error
	for _, p := range due {
		res, err := s.attemptLocked(ctx, p, false)
		if err != nil {
			errs = append(errs, fmt.Errorf("vendor %s: %w", p.VendorID, err))
		}
		if res.Status == StatusCompleted {
			result.Processed++
		}
	}
	result.Pending = s.queue.Len()

	s.logger.Info("sweep finished",
		"forced", force,
		"processed", result.Processed,
		"skipped", result.Skipped,
		"pending", result.Pending,
	)
	return result, errors.Join(errs...)
}

// ProcessOnDemandPayment pays amount to vendorID from its assigned account.
// For a scheduled vendor, skipScheduled advances its payment dates first so
// the next sweep does not pay it again.
func (s *Service) ProcessOnDemandPayment(ctx context.Context, vendorID string, amount decimal.Decimal, skipScheduled bool) (Payment, error) {
	if !amount.IsPositive() {
		return Payment{}, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vendors.Get(vendorID)
	if !ok {
		return Payment{}, ErrVendorNotFound
	}
	if v.Schedule.Scheduled() && skipScheduled {
		now := s.now()
		if _, err := s.vendors.Modify(ctx, v.ID, func(v *model.Vendor) {
			v.LastPaymentDate = &now
			v.NextPaymentDate = NextPaymentDate(v.Schedule, now)
		}); err != nil {
			return Payment{}, fmt.Errorf("skip scheduled payment: %w", err)
		}
	}
	return s.attemptLocked(ctx, s.newPayment(v, amount), false)
}

// ProcessPayment attempts a single payment. Insufficient funds leave it
// pending in the queue and are not reported as an error.
func (s *Service) ProcessPayment(ctx context.Context, p Payment) (Payment, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Date.IsZero() {
		p.Date = s.now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attemptLocked(ctx, p, false)
}

// RetryPaymentForVendor re-attempts the oldest queued payment for vendorID.
// It reports false without side effects when nothing is queued for the vendor.
// A payment whose funds moved reports true even if the follow-up bookkeeping
// returned an error.
func (s *Service) RetryPaymentForVendor(ctx context.Context, vendorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.queue.FirstForVendor(vendorID)
	if !ok {
		return false, nil
	}
	res, err := s.attemptLocked(ctx, p, true)
	return res.Status == StatusCompleted, err
}

// RetryAllPending re-attempts every queued payment its account can cover now.
func (s *Service) RetryAllPending(ctx context.Context) (RetryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		result RetryResult
		errs   []error
	)
	for _, p := range s.queue.List() {
		if s.ledger.Balance(p.Account).LessThan(p.Amount) {
			continue
		}
		res, err := s.attemptLocked(ctx, p, true)
		if err != nil {
			errs = append(errs, fmt.Errorf("payment %s: %w", p.ID, err))
		}
		if res.Status == StatusCompleted {
			result.Completed++
		}
	}
	result.Remaining = s.queue.Len()
	return result, errors.Join(errs...)
}

// Pending lists the queued payments.
func (s *Service) Pending() []Payment {
	return s.queue.List()
}

// NextPaymentDate returns from advanced by one cycle of schedule, or nil for
// on-demand vendors.
func NextPaymentDate(schedule model.Schedule, from time.Time) *time.Time {
	var next time.Time
	switch schedule {
	case model.ScheduleWeekly:
		next = from.AddDate(0, 0, 7)
	case model.ScheduleBiweekly:
		next = from.AddDate(0, 0, 14)
	default:
		return nil
	}
	return &next
}

// attemptLocked moves the funds for p. queued marks a retry of an entry
// already in the queue: success dequeues it, insufficient funds leave it in
// place. Otherwise an insufficient-funds outcome adds p to the queue.
//
// Once the ledger has been debited the payment is completed whatever happens
// to the bookkeeping after it; those errors are returned alongside.
func (s *Service) attemptLocked(ctx context.Context, p Payment, queued bool) (Payment, error) {
	_, err := s.ledger.ProcessPayment(ctx, p.Account, p.Amount, p.VendorID)
	switch {
	case err == nil:
		p.Status = StatusCompleted
		var errs []error
		if queued {
			if _, err := s.queue.Remove(ctx, p.ID); err != nil {
				s.logger.Error("completed payment still queued", "payment_id", p.ID, "vendor_id", p.VendorID, "error", err)
				errs = append(errs, fmt.Errorf("dequeue payment %s: %w", p.ID, err))
			}
		}
		if err := s.markPaid(ctx, p.VendorID); err != nil {
			errs = append(errs, err)
		}
		s.notify(ctx, notification.Notice{
			Kind:     notification.KindPaymentCompleted,
			VendorID: p.VendorID,
			Account:  string(p.Account),
			Amount:   p.Amount,
			Message:  fmt.Sprintf("Paid %s from %s to %s.", p.Amount, p.Account, s.vendorName(p.VendorID)),
		})
		return p, errors.Join(errs...)

	case errors.Is(err, ledger.ErrInsufficientFunds):
		p.Status = StatusPending
		kind := notification.KindRetryFailed
		if !queued {
			kind = notification.KindInsufficientFunds
			if err := s.queue.Add(ctx, p); err != nil {
				return p, fmt.Errorf("enqueue pending payment: %w", err)
			}
		}
		if err := s.markPending(ctx, p.VendorID); err != nil {
			return p, err
		}
		s.notify(ctx, notification.Notice{
			Kind:     kind,
			VendorID: p.VendorID,
			Account:  string(p.Account),
			Amount:   p.Amount,
			Message:  fmt.Sprintf("Insufficient funds in %s to pay %s. Payment moved to pending.", p.Account, s.vendorName(p.VendorID)),
		})
		return p, nil

	default:
		p.Status = StatusFailed
		return p, err
	}
}

// markPaid advances the vendor's dates. The pending flag stays set while any
// other payment for the vendor is still queued.
func (s *Service) markPaid(ctx context.Context, vendorID string) error {
	now := s.now()
	_, stillQueued := s.queue.FirstForVendor(vendorID)
	_, err := s.vendors.Modify(ctx, vendorID, func(v *model.Vendor) {
		v.LastPaymentDate = &now
		v.NextPaymentDate = NextPaymentDate(v.Schedule, now)
		v.PendingPayment = stillQueued
	})
	if err != nil {
		return fmt.Errorf("update vendor %s: %w", vendorID, err)
	}
	return nil
}

func (s *Service) markPending(ctx context.Context, vendorID string) error {
	v, ok := s.vendors.Get(vendorID)
	if !ok || v.PendingPayment {
		return nil
	}
	_, err := s.vendors.Modify(ctx, vendorID, func(v *model.Vendor) {
		v.PendingPayment = true
	})
	if err != nil {
		return fmt.Errorf("update vendor %s: %w", vendorID, err)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, n notification.Notice) {
	if s.notifier == nil {
		return
	}
	n.At = s.now()
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("notify failed", "kind", n.Kind, "error", err)
	}
}

func (s *Service) vendorName(id string) string {
	if v, ok := s.vendors.Get(id); ok {
		return v.Name
	}
	return id
}

func (s *Service) newPayment(v model.Vendor, amount decimal.Decimal) Payment {
	return Payment{
		ID:       uuid.NewString(),
		VendorID: v.ID,
		Amount:   amount,
		Date:     s.now(),
		Account:  v.Account,
		Status:   StatusPending,
	}
}

func (s *Service) amountFor(v model.Vendor) decimal.Decimal {
	if v.BaseAmount.IsPositive() {
		return v.BaseAmount
	}
	return s.rules.ForSchedule(v.Schedule).Amount
}

// dueOn compares calendar days in the clock's location.
func dueOn(v model.Vendor, day time.Time) bool {
	if v.NextPaymentDate == nil {
		return false
	}
	next := v.NextPaymentDate.In(day.Location())
	y1, m1, d1 := next.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
