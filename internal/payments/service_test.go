package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorpay/vendorpay/internal/ledger"
	"github.com/vendorpay/vendorpay/internal/model"
	"github.com/vendorpay/vendorpay/internal/notification"
	"github.com/vendorpay/vendorpay/internal/rules"
	"github.com/vendorpay/vendorpay/internal/store"
	"github.com/vendorpay/vendorpay/internal/vendors"
)

// friday is a processing day; the tests run the clock at noon UTC.
var friday = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type fixture struct {
	st      store.Store
	dir     *vendors.Directory
	ledger  *ledger.Ledger
	queue   *Queue
	inbox   *notification.Inbox
	service *Service
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// flakyStore fails writes to selected keys.
type flakyStore struct {
	store.Store
	mu      sync.Mutex
	failing map[string]bool
}

var errWriteFailed = errors.New("write failed")

func newFlakyStore() *flakyStore {
	return &flakyStore{Store: store.NewMemory(), failing: map[string]bool{}}
}

func (s *flakyStore) failOn(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.failing[k] = true
	}
}

func (s *flakyStore) heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = map[string]bool{}
}

func (s *flakyStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	fail := s.failing[key]
	s.mu.Unlock()
	if fail {
		return errWriteFailed
	}
	return s.Store.Set(ctx, key, value)
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	return newFixtureOn(t, now, store.NewMemory())
}

func newFixtureOn(t *testing.T, now time.Time, st store.Store) *fixture {
	t.Helper()
	clock := func() time.Time { return now }
	dir := vendors.NewDirectory(st, rules.Default(), clock)
	led := ledger.New(st, dir, d(200_000), clock)
	queue := NewQueue(st)
	inbox := notification.NewInbox(10)
	svc := NewService(led, dir, queue, inbox, Config{
		Rules:         rules.Default(),
		ProcessingDay: time.Friday,
		Clock:         clock,
	})
	return &fixture{st: st, dir: dir, ledger: led, queue: queue, inbox: inbox, service: svc}
}

// seedVendors writes raw vendor records and loads them through the directory.
func (f *fixture) seedVendors(t *testing.T, raw string) {
	t.Helper()
	require.NoError(t, f.st.Set(context.Background(), store.KeyVendors, raw))
	require.NoError(t, f.dir.Load(context.Background()))
}

func TestForcedSweepPaysLegacyWeeklyVendor(t *testing.T) {
	f := newFixture(t, friday.AddDate(0, 0, 1)) // Saturday; force ignores the day
	f.seedVendors(t, `[{"id":"1","name":"Acme","paymentType":"Weekly","account":"Account 1"}]`)

	res, err := f.service.ProcessScheduledPayments(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, SweepResult{Processed: 1, Skipped: 0, Pending: 0}, res)
	assert.True(t, f.ledger.Balance(model.Account1).Equal(d(199_900)))

	v, ok := f.dir.Get("1")
	require.True(t, ok)
	require.NotNil(t, v.NextPaymentDate)
	assert.True(t, v.NextPaymentDate.Equal(friday.AddDate(0, 0, 8)))
	assert.False(t, v.PendingPayment)

	txs := f.ledger.Transactions(model.Account1)
	require.Len(t, txs, 1)
	assert.Equal(t, "Acme", txs[0].VendorName)
}

func TestSweepTwoDueVendors(t *testing.T) {
	f := newFixture(t, friday)
	today := friday.Format(time.RFC3339)
	f.seedVendors(t, `[
		{"id":"2","name":"Weekly","paymentType":"Weekly","account":"Account 1","nextPaymentDate":"`+today+`"},
		{"id":"7","name":"Biweekly","paymentType":"Biweekly","account":"Account 1","nextPaymentDate":"`+today+`"}
	]`)

	res, err := f.service.ProcessScheduledPayments(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 0, res.Skipped)
	assert.True(t, f.ledger.Balance(model.Account1).Equal(d(199_700)))
}

func TestSweepSkipsOnDemandAndNotDue(t *testing.T) {
	f := newFixture(t, friday)
	tomorrow := friday.AddDate(0, 0, 1).Format(time.RFC3339)
	f.seedVendors(t, `[
		{"id":"3","name":"Later","paymentType":"Weekly","account":"Account 1","nextPaymentDate":"`+tomorrow+`"},
		{"id":"4","name":"Never paid","paymentType":"Weekly","account":"Account 1"},
		{"id":"1718000000000","name":"Ad hoc","paymentType":"On-Demand","account":"Account 2"}
	]`)

	res, err := f.service.ProcessScheduledPayments(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Processed: 0, Skipped: 3, Pending: 0}, res)
	assert.Empty(t, f.ledger.Transactions(""))
}

func TestSweepOutsideProcessingDayIsNoop(t *testing.T) {
	f := newFixture(t, friday.AddDate(0, 0, -2))
	f.seedVendors(t, `[{"id":"1","name":"Acme","paymentType":"Weekly","account":"Account 1"}]`)
	require.NoError(t, f.queue.Add(context.Background(), Payment{ID: "p1", VendorID: "1", Amount: d(1), Account: model.Account1}))

	res, err := f.service.ProcessScheduledPayments(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Pending: 1}, res)
	assert.Empty(t, f.ledger.Transactions(""))
}

func TestSweepRejectsReentry(t *testing.T) {
	f := newFixture(t, friday)
	f.service.sweeping.Store(true)

	_, err := f.service.ProcessScheduledPayments(context.Background(), true)
	assert.ErrorIs(t, err, ErrSweepInProgress)
}

func TestSweepInsufficientFundsQueuesPayment(t *testing.T) {
	f := newFixture(t, friday)
	f.seedVendors(t, `[{"id":"7","name":"Biweekly","paymentType":"Biweekly","account":"Account 1"}]`)
	ledger.SeedBalance(f.ledger, model.Account1, d(150))

	res, err := f.service.ProcessScheduledPayments(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Processed: 0, Skipped: 0, Pending: 1}, res)

	v, _ := f.dir.Get("7")
	assert.True(t, v.PendingPayment)
}

func TestOnDemandInsufficientFunds(t *testing.T) {
	f := newFixture(t, friday)
	ctx := context.Background()
	v, err := f.dir.Add(ctx, vendors.AddInput{Name: "Globex", PaymentType: model.PaymentOnDemand})
	require.NoError(t, err)
	ledger.SeedBalance(f.ledger, model.Account2, d(50))
	before := f.queue.Len()

	p, err := f.service.ProcessOnDemandPayment(ctx, v.ID, d(100), false)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, p.Status)
	assert.True(t, f.ledger.Balance(model.Account2).Equal(d(50)))
	assert.Equal(t, before+1, f.queue.Len())

	notices := f.inbox.Recent()
	require.NotEmpty(t, notices)
	assert.Equal(t, notification.KindInsufficientFunds, notices[0].Kind)
	assert.Contains(t, notices[0].Message, "Globex")

	// the queue survives a reload
	reloaded := NewQueue(f.st)
	require.NoError(t, reloaded.Load(ctx))
	require.Equal(t, 1, reloaded.Len())
	assert.Equal(t, p.ID, reloaded.List()[0].ID)
	assert.True(t, reloaded.List()[0].Amount.Equal(d(100)))
}

func TestOnDemandValidation(t *testing.T) {
	f := newFixture(t, friday)
	ctx := context.Background()

	_, err := f.service.ProcessOnDemandPayment(ctx, "missing", d(10), false)
	assert.ErrorIs(t, err, ErrVendorNotFound)

	_, err = f.service.ProcessOnDemandPayment(ctx, "missing", decimal.Zero, false)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestOnDemandSkipScheduledAdvancesDates(t *testing.T) {
	f := newFixture(t, friday)
	ctx := context.Background()
	v, err := f.dir.Add(ctx, vendors.AddInput{Name: "Weekly Co", PaymentType: model.PaymentWeekly})
	require.NoError(t, err)

	p, err := f.service.ProcessOnDemandPayment(ctx, v.ID, d(40), true)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, p.Status)
	assert.True(t, f.ledger.Balance(model.Account1).Equal(d(199_960)))

	got, _ := f.dir.Get(v.ID)
	require.NotNil(t, got.NextPaymentDate)
	assert.True(t, got.NextPaymentDate.Equal(friday.AddDate(0, 0, 7)))
}

func TestRetryWithoutPendingEntry(t *testing.T) {
	f := newFixture(t, friday)
	ctx := context.Background()
	v, err := f.dir.Add(ctx, vendors.AddInput{Name: "Globex", PaymentType: model.PaymentOnDemand})
	require.NoError(t, err)

	ok, err := f.service.RetryPaymentForVendor(ctx, v.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, f.ledger.Transactions(""))
	assert.Zero(t, f.queue.Len())
	assert.Empty(t, f.inbox.Recent())
}

func TestRetryPaymentForVendor(t *testing.T) {
	f := newFixture(t, friday)
	ctx := context.Background()
	v, err := f.dir.Add(ctx, vendors.AddInput{Name: "Globex", PaymentType: model.PaymentOnDemand})
	require.NoError(t, err)
	ledger.SeedBalance(f.ledger, model.Account2, d(50))

	_, err = f.service.ProcessOnDemandPayment(ctx, v.ID, d(100), false)
	require.NoError(t, err)

	// still short: the entry stays and is not duplicated
	ok, err := f.service.RetryPaymentForVendor(ctx, v.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, f.queue.Len())

	_, err = f.ledger.Deposit(ctx, model.Account2, d(100))
	require.NoError(t, err)

	ok, err = f.service.RetryPaymentForVendor(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, f.queue.Len())
	assert.True(t, f.ledger.Balance(model.Account2).Equal(d(50)))

	got, _ := f.dir.Get(v.ID)
	assert.False(t, got.PendingPayment)
}

func TestRetryAllPendingLeavesUncovered(t *testing.T) {
	f := newFixture(t, friday)
	ctx := context.Background()
	a, _ := f.dir.Add(ctx, vendors.AddInput{Name: "A", PaymentType: model.PaymentOnDemand, Account: model.Account1})
	b, _ := f.dir.Add(ctx, vendors.AddInput{Name: "B", PaymentType: model.PaymentOnDemand, Account: model.Account2})
	ledger.SeedBalance(f.ledger, model.Account1, d(0))
	ledger.SeedBalance(f.ledger, model.Account2, d(0))

	_, err := f.service.ProcessOnDemandPayment(ctx, a.ID, d(30), false)
	require.NoError(t, err)
	_, err = f.service.ProcessOnDemandPayment(ctx, b.ID, d(30), false)
	require.NoError(t, err)
	require.Equal(t, 2, f.queue.Len())

	ledger.SeedBalance(f.ledger, model.Account1, d(100))

	res, err := f.service.RetryAllPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, RetryResult{Completed: 1, Remaining: 1}, res)

	left := f.service.Pending()
	require.Len(t, left, 1)
	assert.Equal(t, b.ID, left[0].VendorID)
}

func TestRetryCompletesWhenVendorWriteFails(t *testing.T) {
	st := newFlakyStore()
	f := newFixtureOn(t, friday, st)
	ctx := context.Background()
	f.seedVendors(t, `[{"id":"1","name":"Acme","paymentType":"Weekly","account":"Account 1","pendingPayment":true}]`)
	ledger.SeedBalance(f.ledger, model.Account1, d(1_000))
	require.NoError(t, f.queue.Add(ctx, Payment{ID: "p1", VendorID: "1", Amount: d(100), Account: model.Account1}))

	st.failOn(store.KeyVendors)
	ok, err := f.service.RetryPaymentForVendor(ctx, "1")
	assert.True(t, ok)
	assert.ErrorIs(t, err, errWriteFailed)
	assert.True(t, f.ledger.Balance(model.Account1).Equal(d(900)))
	assert.Zero(t, f.queue.Len(), "a debited payment leaves the queue")

	st.heal()
	ok, err = f.service.RetryPaymentForVendor(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, f.ledger.Balance(model.Account1).Equal(d(900)))
	assert.Len(t, f.ledger.Transactions(""), 1)

	// the failed write left the record as it was
	v, _ := f.dir.Get("1")
	assert.Nil(t, v.LastPaymentDate)
}

func TestRetryAllCompletesWhenVendorWriteFails(t *testing.T) {
	st := newFlakyStore()
	f := newFixtureOn(t, friday, st)
	ctx := context.Background()
	f.seedVendors(t, `[
		{"id":"1","name":"A","paymentType":"On-Demand","account":"Account 1"},
		{"id":"2","name":"B","paymentType":"On-Demand","account":"Account 1"}
	]`)
	ledger.SeedBalance(f.ledger, model.Account1, d(1_000))
	require.NoError(t, f.queue.Add(ctx, Payment{ID: "p1", VendorID: "1", Amount: d(100), Account: model.Account1}))
	require.NoError(t, f.queue.Add(ctx, Payment{ID: "p2", VendorID: "2", Amount: d(100), Account: model.Account1}))

	st.failOn(store.KeyVendors)
	res, err := f.service.RetryAllPending(ctx)
	assert.ErrorIs(t, err, errWriteFailed)
	assert.Equal(t, RetryResult{Completed: 2, Remaining: 0}, res)
	assert.True(t, f.ledger.Balance(model.Account1).Equal(d(800)))

	st.heal()
	res, err = f.service.RetryAllPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, RetryResult{}, res)
	assert.True(t, f.ledger.Balance(model.Account1).Equal(d(800)))
}

func TestSweepJoinsVendorErrors(t *testing.T) {
	st := newFlakyStore()
	f := newFixtureOn(t, friday, st)
	f.seedVendors(t, `[
		{"id":"1","name":"A","paymentType":"Weekly","account":"Account 1"},
		{"id":"2","name":"B","paymentType":"Weekly","account":"Account 1"}
	]`)

	st.failOn(store.KeyVendors)
	res, err := f.service.ProcessScheduledPayments(context.Background(), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, errWriteFailed)
	assert.ErrorContains(t, err, "vendor 1")
	assert.ErrorContains(t, err, "vendor 2")
	assert.Equal(t, 2, res.Processed)
	assert.True(t, f.ledger.Balance(model.Account1).Equal(d(199_800)))

	for _, v := range f.dir.List() {
		assert.Nil(t, v.NextPaymentDate, v.ID)
	}
}

func TestFailedQueueWriteRestoresQueue(t *testing.T) {
	st := newFlakyStore()
	f := newFixtureOn(t, friday, st)
	ctx := context.Background()
	require.NoError(t, f.queue.Add(ctx, Payment{ID: "p1", VendorID: "1", Amount: d(10), Account: model.Account1}))
	require.NoError(t, f.queue.Add(ctx, Payment{ID: "p2", VendorID: "2", Amount: d(10), Account: model.Account1}))

	st.failOn(store.KeyPendingPayments)
	removed, err := f.queue.Remove(ctx, "p1")
	assert.ErrorIs(t, err, errWriteFailed)
	assert.False(t, removed)
	require.Equal(t, 2, f.queue.Len())
	assert.Equal(t, "p1", f.queue.List()[0].ID)

	err = f.queue.Add(ctx, Payment{ID: "p3", VendorID: "3", Amount: d(10), Account: model.Account1})
	assert.ErrorIs(t, err, errWriteFailed)
	assert.Equal(t, 2, f.queue.Len())

	st.heal()
	reloaded := NewQueue(st)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, 2, reloaded.Len())
}

func TestPendingFlagHeldWhileVendorStillQueued(t *testing.T) {
	f := newFixture(t, friday)
	ctx := context.Background()
	f.seedVendors(t, `[{"id":"1","name":"Acme","paymentType":"On-Demand","account":"Account 2"}]`)
	ledger.SeedBalance(f.ledger, model.Account2, d(0))

	_, err := f.service.ProcessOnDemandPayment(ctx, "1", d(100), false)
	require.NoError(t, err)
	_, err = f.service.ProcessOnDemandPayment(ctx, "1", d(100), false)
	require.NoError(t, err)
	require.Equal(t, 2, f.queue.Len())

	ledger.SeedBalance(f.ledger, model.Account2, d(150))
	ok, err := f.service.RetryPaymentForVendor(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	v, _ := f.dir.Get("1")
	assert.True(t, v.PendingPayment, "second payment is still queued")

	ledger.SeedBalance(f.ledger, model.Account2, d(150))
	ok, err = f.service.RetryPaymentForVendor(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	v, _ = f.dir.Get("1")
	assert.False(t, v.PendingPayment)
	assert.Zero(t, f.queue.Len())
}

func TestNextPaymentDate(t *testing.T) {
	assert.True(t, NextPaymentDate(model.ScheduleWeekly, friday).Equal(friday.AddDate(0, 0, 7)))
	assert.True(t, NextPaymentDate(model.ScheduleBiweekly, friday).Equal(friday.AddDate(0, 0, 14)))
	assert.Nil(t, NextPaymentDate(model.ScheduleOnDemand, friday))
}
