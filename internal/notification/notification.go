package notification

import (
    "context"
    "errors"
    "log/slog"
    "sync"
    "time"

    "github.com/shopspring/decimal"
)

const (
    // KindPaymentCompleted reports a payment that moved funds.
    KindPaymentCompleted = "payment_completed"
    // KindInsufficientFunds reports a payment parked in the pending queue.
    KindInsufficientFunds = "insufficient_funds"
    // KindRetryFailed reports a retry that still could not be covered.
    KindRetryFailed = "retry_failed"
)

// Notice is a user-visible message produced by the payment engine.
type Notice struct {
    Kind     string          `json:"kind"`
    VendorID string          `json:"vendorId,omitempty"`
    Account  string          `json:"account,omitempty"`
    Amount   decimal.Decimal `json:"amount"`
    Message  string          `json:"message"`
    At       time.Time       `json:"at"`
}

// Notifier delivers notices to the operator.
type Notifier interface {
    Notify(ctx context.Context, notice Notice) error
}

// LoggerNotifier writes notices to the structured logger.
type LoggerNotifier struct {
    logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
    return &LoggerNotifier{logger: logger}
}

// Notify writes the notice to the logger. Insufficient funds are warnings.
func (n *LoggerNotifier) Notify(ctx context.Context, notice Notice) error {
    if n == nil || n.logger == nil {
        return nil
    }
    level := slog.LevelInfo
    if notice.Kind != KindPaymentCompleted {
        level = slog.LevelWarn
    }
    n.logger.Log(ctx, level, "notice",
        "kind", notice.Kind,
        "vendor_id", notice.VendorID,
        "account", notice.Account,
        "amount", notice.Amount.String(),
        "message", notice.Message,
    )
    return nil
}

// Inbox keeps the most recent notices for the taskpane to poll.
type Inbox struct {
    mu      sync.Mutex
    limit   int
    notices []Notice
}

// NewInbox creates an inbox holding at most limit notices.
func NewInbox(limit int) *Inbox {
    if limit <= 0 {
        limit = 50
    }
    return &Inbox{limit: limit}
}

// Notify records the notice, evicting the oldest one when full.
func (b *Inbox) Notify(_ context.Context, notice Notice) error {
    b.mu.Lock()
    defer b.mu.Unlock()
    b.notices = append(b.notices, notice)
    if over := len(b.notices) - b.limit; over > 0 {
        b.notices = append(b.notices[:0:0], b.notices[over:]...)
    }
    return nil
}

// Recent returns the buffered notices, newest first.
func (b *Inbox) Recent() []Notice {
    b.mu.Lock()
    defer b.mu.Unlock()
    out := make([]Notice, len(b.notices))
    for i, n := range b.notices {
        out[len(b.notices)-1-i] = n
    }
    return out
}

// Fanout delivers each notice to every notifier.
type Fanout []Notifier

// Notify calls every notifier and joins their errors.
func (f Fanout) Notify(ctx context.Context, notice Notice) error {
    var errs []error
    for _, n := range f {
        if n == nil {
            continue
        }
        if err := n.Notify(ctx, notice); err != nil {
            errs = append(errs, err)
        }
    }
    return errors.Join(errs...)
}
