package routes

import (
    "context"
    "net/http"
    "time"

    "github.com/gofiber/fiber/v2"
)

// RegisterHealthRoutes adds a liveness endpoint that pings the store and,
// when configured, Redis.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
    app.Get("/healthz", func(c *fiber.Ctx) error {
        storeStatus := "ok"
        redisStatus := "disabled"

        ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
        defer cancel()
        if err := d.App.Store.Ping(ctx); err != nil {
            storeStatus = err.Error()
        }
        if d.App.Cache != nil {
            redisStatus = "ok"
            if err := d.App.Cache.Ping(ctx).Err(); err != nil {
                redisStatus = err.Error()
            }
        }
        status := http.StatusOK
        if storeStatus != "ok" || (redisStatus != "ok" && redisStatus != "disabled") {
            status = http.StatusServiceUnavailable
        }
        return c.Status(status).JSON(fiber.Map{
            "status": fiber.Map{
                "store":  storeStatus,
                "redis":  redisStatus,
                "mirror": d.App.Mirror.Enabled(),
            },
            "timestamp": time.Now().UTC().Format(time.RFC3339Nano),
        })
    })
}
