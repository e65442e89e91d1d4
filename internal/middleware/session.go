package middleware

import (
    "net/http"
    "strings"

    "github.com/gofiber/fiber/v2"

    "github.com/vendorpay/vendorpay/internal/auth"
)

const sessionLocal = "session_identity"

// RequireSession rejects requests whose bearer token is not the active session.
func RequireSession(sessions *auth.Service) fiber.Handler {
    return func(c *fiber.Ctx) error {
        authz := c.Get(fiber.HeaderAuthorization)
        if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
            return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
        }
        token := strings.TrimSpace(authz[len("Bearer "):])
        sess, err := sessions.Validate(token)
        if err != nil {
            return fiber.NewError(http.StatusUnauthorized, "not logged in")
        }
        c.Locals(sessionLocal, sess.Identity)
        return c.Next()
    }
}
