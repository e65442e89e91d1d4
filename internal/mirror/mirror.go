package mirror

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vendorpay/vendorpay/internal/ledger"
	"github.com/vendorpay/vendorpay/internal/logging"
	"github.com/vendorpay/vendorpay/internal/model"
)

// Snapshot is the read-only state pushed to the spreadsheet.
type Snapshot struct {
	Vendors  []model.Vendor
	Accounts []ledger.Account
}

// Source produces the current snapshot.
type Source func() Snapshot

// Writer upserts a snapshot into the external spreadsheet.
type Writer interface {
	Write(ctx context.Context, snap Snapshot) error
}

// Status is the observable state of the channel.
type Status struct {
	Enabled   bool       `json:"enabled"`
	LastSync  *time.Time `json:"lastSync,omitempty"`
	LastError string     `json:"lastError,omitempty"`
}

// Channel pushes snapshots to a Writer on a best-effort basis. The first
// write failure disables it for the rest of the process; core state is
// never affected.
type Channel struct {
	source Source
	writer Writer
	logger *slog.Logger

	enabled atomic.Bool
	wake    chan struct{}

	mu        sync.Mutex
	lastSync  *time.Time
	lastError string
}

// NewChannel builds a channel. A nil writer yields a disabled channel.
func NewChannel(source Source, writer Writer, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = logging.Discard()
	}
	c := &Channel{
		source: source,
		writer: writer,
		logger: logger.With("component", "mirror"),
		wake:   make(chan struct{}, 1),
	}
	c.enabled.Store(writer != nil)
	return c
}

// Enabled reports whether refreshes are still attempted.
func (c *Channel) Enabled() bool {
	return c.enabled.Load()
}

// Status returns the enabled flag and the outcome of the last write.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{Enabled: c.Enabled(), LastSync: c.lastSync, LastError: c.lastError}
}

// Notify requests a refresh without blocking. Requests made while one is
// already queued are coalesced.
func (c *Channel) Notify() {
	if !c.Enabled() {
		return
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run services refresh requests until ctx is done.
func (c *Channel) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
			_ = c.Sync(ctx)
		}
	}
}

// Sync writes the current snapshot immediately. A failure is logged and
// disables the channel.
func (c *Channel) Sync(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Write(ctx, c.source()); err != nil {
		c.enabled.Store(false)
		c.lastError = err.Error()
		c.logger.Warn("spreadsheet mirror unavailable, disabling", "error", err)
		return err
	}
	now := time.Now()
	c.lastSync = &now
	c.lastError = ""
	return nil
}
