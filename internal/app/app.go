package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vendorpay/vendorpay/internal/auth"
	"github.com/vendorpay/vendorpay/internal/config"
	"github.com/vendorpay/vendorpay/internal/ledger"
	"github.com/vendorpay/vendorpay/internal/mirror"
	"github.com/vendorpay/vendorpay/internal/notification"
	"github.com/vendorpay/vendorpay/internal/payments"
	"github.com/vendorpay/vendorpay/internal/rules"
	"github.com/vendorpay/vendorpay/internal/store"
	"github.com/vendorpay/vendorpay/internal/vendors"
)

const noticeBufferSize = 50

// App holds every service, constructed once and shared by the HTTP surface,
// the scheduler and the CLI.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Store store.Store
	Cache *redis.Client
	DB    *pgxpool.Pool

	Rules    rules.Policy
	Vendors  *vendors.Directory
	Ledger   *ledger.Ledger
	Queue    *payments.Queue
	Payments *payments.Service
	Inbox    *notification.Inbox
	Mirror   *mirror.Channel
	Sessions *auth.Service
}

// Build connects the configured store backend (and Redis, when a URL is
// given) and wires the application on top of it.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	var (
		cache *redis.Client
		db    *pgxpool.Pool
		st    store.Store
		err   error
	)
	if cfg.RedisURL != "" {
		if cache, err = store.NewRedisClient(ctx, cfg.RedisURL); err != nil {
			return nil, err
		}
	}

	switch cfg.StoreBackend {
	case config.BackendRedis:
		st = store.NewRedis(cache, cfg.StoreNamespace)
	case config.BackendPostgres:
		if db, err = store.NewPostgresPool(ctx, cfg.DatabaseURL); err != nil {
			closeCache(cache)
			return nil, err
		}
		if st, err = store.NewPostgres(ctx, db); err != nil {
			db.Close()
			closeCache(cache)
			return nil, err
		}
	default:
		st = store.NewMemory()
	}

	a, err := New(ctx, st, cfg, logger)
	if err != nil {
		if db != nil {
			db.Close()
		}
		closeCache(cache)
		return nil, err
	}
	a.Cache = cache
	a.DB = db
	logger.Info("store ready", "backend", cfg.StoreBackend, "redis", cache != nil)
	return a, nil
}

// New wires the services on st and loads their persisted state.
func New(ctx context.Context, st store.Store, cfg config.Config, logger *slog.Logger) (*App, error) {
	policy := rules.Default()
	if cfg.BaseAmount.IsPositive() {
		policy.BaseAmount = cfg.BaseAmount
	}

	dir := vendors.NewDirectory(st, policy, nil)
	led := ledger.New(st, dir, cfg.OpeningBalance, nil)
	queue := payments.NewQueue(st)
	inbox := notification.NewInbox(noticeBufferSize)
	notifier := notification.Fanout{notification.NewLoggerNotifier(logger), inbox}
	engine := payments.NewService(led, dir, queue, notifier, payments.Config{
		Rules:         policy,
		ProcessingDay: cfg.ProcessingDay,
		Logger:        logger,
	})

	if cfg.AuthIdentity == "" || cfg.AuthSecretHash == "" {
		logger.Warn("AUTH_IDENTITY or AUTH_SECRET_HASH not set, logins will be refused")
	}
	sessions := auth.NewService(auth.NewCredentialAuthenticator(cfg.AuthIdentity, cfg.AuthSecretHash), st, nil)

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Store:    st,
		Rules:    policy,
		Vendors:  dir,
		Ledger:   led,
		Queue:    queue,
		Payments: engine,
		Inbox:    inbox,
		Sessions: sessions,
	}

	var writer mirror.Writer
	if cfg.MirrorPath != "" {
		writer = mirror.NewWorkbook(cfg.MirrorPath)
	}
	a.Mirror = mirror.NewChannel(a.Snapshot, writer, logger)

	for name, load := range map[string]func(context.Context) error{
		"vendors":  dir.Load,
		"ledger":   led.Load,
		"pending":  queue.Load,
		"sessions": sessions.Load,
	} {
		if err := load(ctx); err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
	}
	return a, nil
}

// Snapshot is the mirror's view of current state.
func (a *App) Snapshot() mirror.Snapshot {
	return mirror.Snapshot{Vendors: a.Vendors.List(), Accounts: a.Ledger.Accounts()}
}

// Close releases backend connections.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn("close redis", "error", err)
		}
	}
}

func closeCache(c *redis.Client) {
	if c != nil {
		_ = c.Close()
	}
}
