package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// RefreshOnWrite calls notify after every successful mutating request so the
// spreadsheet mirror picks up the new state.
func RefreshOnWrite(notify func()) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return err
		}
		if err == nil && c.Response().StatusCode() < fiber.StatusBadRequest {
			notify()
		}
		return err
	}
}
