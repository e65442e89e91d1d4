package routes

import (
    "net/http"
    "time"

    "github.com/gofiber/fiber/v2"
    "github.com/gofiber/fiber/v2/middleware/cors"
    "github.com/gofiber/fiber/v2/middleware/logger"
    "github.com/gofiber/fiber/v2/middleware/recover"

    "github.com/vendorpay/vendorpay/internal/app"
    "github.com/vendorpay/vendorpay/internal/auth"
    "github.com/vendorpay/vendorpay/internal/ledger"
    "github.com/vendorpay/vendorpay/internal/middleware"
    "github.com/vendorpay/vendorpay/internal/payments"
    "github.com/vendorpay/vendorpay/internal/vendors"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
    App *app.App
}

// Setup configures middlewares and all application routes.
func Setup(router *fiber.App, d Deps) error {
    cfg := d.App.Config
    log := d.App.Logger

    // Middlewares
    router.Use(recover.New())
    router.Use(middleware.RequestID())
    router.Use(cors.New(cors.Config{
        AllowOrigins: cfg.AllowedOrigins,
        AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key, X-Request-ID",
    }))
    if cfg.IsDev() {
        // Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
        router.Use(logger.New(logger.Config{
            Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
            TimeFormat: "15:04:05",
            TimeZone:   "Local",
        }))
    }
    router.Use(middleware.Audit(log))

    // Health
    RegisterHealthRoutes(router, d)

    authHandler := auth.NewHandler(d.App.Sessions)
    vendorHandler := vendors.NewHandler(d.App.Vendors)
    accountHandler := ledger.NewHandler(d.App.Ledger)
    paymentHandler := payments.NewHandler(d.App.Payments)

    // API routes
    api := router.Group("/api/v1")
    api.Get("/ping", func(c *fiber.Ctx) error {
        reqID, _ := c.Locals("X-Request-ID").(string)
        return c.Status(http.StatusOK).JSON(fiber.Map{
            "status":     "ok",
            "request_id": reqID,
            "timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
        })
    })

    // Public routes
    RegisterAuthRoutes(api, authHandler, middleware.LoginRateLimit(d.App.Cache, cfg.LoginRateLimit))

    // Protected routes
    protected := api.Group("",
        middleware.RequireSession(d.App.Sessions),
        middleware.Idempotency(d.App.Cache, cfg.IdempotencyTTL, log),
        middleware.RefreshOnWrite(d.App.Mirror.Notify),
    )
    protected.Post("/auth/logout", authHandler.Logout)
    RegisterVendorRoutes(protected, vendorHandler)
    RegisterAccountRoutes(protected, accountHandler)
    RegisterPaymentRoutes(protected, paymentHandler)

    protected.Get("/notices", func(c *fiber.Ctx) error {
        return c.JSON(fiber.Map{"notices": d.App.Inbox.Recent()})
    })
    protected.Get("/mirror", func(c *fiber.Ctx) error {
        return c.JSON(d.App.Mirror.Status())
    })
    protected.Post("/mirror/sync", func(c *fiber.Ctx) error {
        if err := d.App.Mirror.Sync(c.UserContext()); err != nil {
            return fiber.NewError(http.StatusServiceUnavailable, err.Error())
        }
        return c.JSON(d.App.Mirror.Status())
    })

    return nil
}
