package payments

import (
	"context"
	"sync"

	"github.com/vendorpay/vendorpay/internal/store"
)

// Queue holds payments deferred for insufficient funds. It is persisted
// separately from the transaction log.
type Queue struct {
	mu    sync.RWMutex
	store store.Store
	items []Payment
}

// NewQueue returns an empty queue bound to st.
func NewQueue(st store.Store) *Queue {
	return &Queue{store: st}
}

// Load reads the persisted queue.
func (q *Queue) Load(ctx context.Context) error {
	var items []Payment
	if _, err := store.LoadJSON(ctx, q.store, store.KeyPendingPayments, &items); err != nil {
		return err
	}
	q.mu.Lock()
	q.items = items
	q.mu.Unlock()
	return nil
}

// List returns the queued payments in insertion order.
func (q *Queue) List() []Payment {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]Payment, len(q.items))
	copy(out, q.items)
	return out
}

// Len reports the number of queued payments.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

// Add appends p and persists the queue.
func (q *Queue) Add(ctx context.Context, p Payment) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, p)
	if err := q.persistLocked(ctx); err != nil {
		q.items = q.items[:len(q.items)-1]
		return err
	}
	return nil
}

// Remove drops the payment with id. It reports false when nothing matched.
func (q *Queue) Remove(ctx context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.items {
		if q.items[i].ID != id {
			continue
		}
		prev := q.items
		q.items = append(q.items[:i:i], q.items[i+1:]...)
		if err := q.persistLocked(ctx); err != nil {
			q.items = prev
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// FirstForVendor returns the oldest queued payment for vendorID.
func (q *Queue) FirstForVendor(vendorID string) (Payment, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, p := range q.items {
		if p.VendorID == vendorID {
			return p, true
		}
	}
	return Payment{}, false
}

func (q *Queue) persistLocked(ctx context.Context) error {
	items := q.items
	if items == nil {
		items = []Payment{}
	}
	return store.SaveJSON(ctx, q.store, store.KeyPendingPayments, items)
}
