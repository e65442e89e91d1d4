package mirror

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vendorpay/vendorpay/internal/ledger"
	"github.com/vendorpay/vendorpay/internal/model"
)

type countingWriter struct {
	calls atomic.Int32
	err   error
}

func (w *countingWriter) Write(context.Context, Snapshot) error {
	w.calls.Add(1)
	return w.err
}

func emptySource() Snapshot { return Snapshot{} }

func TestChannelDisablesAfterFailure(t *testing.T) {
	w := &countingWriter{err: errors.New("excel unavailable")}
	ch := NewChannel(emptySource, w, nil)
	require.True(t, ch.Enabled())

	err := ch.Sync(context.Background())
	assert.Error(t, err)
	assert.False(t, ch.Enabled())
	assert.Equal(t, "excel unavailable", ch.Status().LastError)

	require.NoError(t, ch.Sync(context.Background()), "a disabled channel is a no-op")
	assert.Equal(t, int32(1), w.calls.Load())
}

func TestChannelWithoutWriterIsDisabled(t *testing.T) {
	ch := NewChannel(emptySource, nil, nil)
	assert.False(t, ch.Enabled())
	ch.Notify()
	assert.NoError(t, ch.Sync(context.Background()))
}

func TestChannelRunCoalescesNotifications(t *testing.T) {
	w := &countingWriter{}
	ch := NewChannel(emptySource, w, nil)

	for i := 0; i < 5; i++ {
		ch.Notify()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ch.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return w.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, int32(1), w.calls.Load())
	assert.NotNil(t, ch.Status().LastSync)
}

func TestWorkbookWritesBothSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendorpay.xlsx")
	wb := NewWorkbook(path)
	next := time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC)

	snap := Snapshot{
		Vendors: []model.Vendor{
			{ID: "1", Name: "Acme", PaymentType: model.PaymentWeekly, Account: model.Account1, NextPaymentDate: &next},
			{ID: "2", Name: "Globex", PaymentType: model.PaymentOnDemand, Account: model.Account2},
		},
		Accounts: []ledger.Account{
			{Name: model.Account1, Balance: decimal.NewFromInt(199_900)},
			{Name: model.Account2, Balance: decimal.NewFromInt(200_000)},
		},
	}
	require.NoError(t, wb.Write(context.Background(), snap))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{VendorsSheet, AccountsSheet}, f.GetSheetList())

	rows, err := f.GetRows(VendorsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Vendor Name", "Payment Type", "Account", "Next Payment Date"}, rows[0])
	assert.Equal(t, []string{"Acme", "Weekly", "Account 1", "2026-10-23"}, rows[1])
	assert.Equal(t, []string{"Globex", "On-Demand", "Account 2", "N/A"}, rows[2])

	rows, err = f.GetRows(AccountsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Account 1", rows[1][0])
	assert.Equal(t, "199900", rows[1][1])
}

func TestWorkbookRewriteDropsStaleRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendorpay.xlsx")
	wb := NewWorkbook(path)
	ctx := context.Background()

	require.NoError(t, wb.Write(ctx, Snapshot{Vendors: []model.Vendor{
		{Name: "A", PaymentType: model.PaymentWeekly, Account: model.Account1},
		{Name: "B", PaymentType: model.PaymentWeekly, Account: model.Account1},
	}}))
	require.NoError(t, wb.Write(ctx, Snapshot{Vendors: []model.Vendor{
		{Name: "C", PaymentType: model.PaymentBiweekly, Account: model.Account2},
	}}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(VendorsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "C", rows[1][0])
}
