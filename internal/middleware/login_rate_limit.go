package middleware

import (
    "net/http"
    "strings"
    "time"

    "github.com/gofiber/fiber/v2"
    "github.com/redis/go-redis/v9"
)

const loginRatePrefix = "vendorpay:rl:login:"

// LoginRateLimit caps login attempts per identity (or client IP when the body
// carries none) per minute. Without Redis it is a no-op.
func LoginRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
    if maxPerMin <= 0 {
        maxPerMin = 5
    }
    return func(c *fiber.Ctx) error {
        if cache == nil {
            return c.Next()
        }
        var req struct {
            Identity string `json:"identity"`
        }
        _ = c.BodyParser(&req)
        subject := strings.ToLower(strings.TrimSpace(req.Identity))
        if subject == "" {
            subject = c.IP()
        }
        key := loginRatePrefix + subject
        cnt, err := cache.Incr(c.UserContext(), key).Result()
        if err != nil {
            return c.Next() // fail open
        }
        if cnt == 1 {
            cache.Expire(c.UserContext(), key, time.Minute)
        }
        if cnt > int64(maxPerMin) {
            return fiber.NewError(http.StatusTooManyRequests, "too many login attempts, try again later")
        }
        return c.Next()
    }
}
