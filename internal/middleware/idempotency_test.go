package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorpay/vendorpay/internal/logging"
)

func setupIdempotentApp(t *testing.T, cache *redis.Client) (*fiber.App, *int) {
	t.Helper()
	calls := 0
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	handler := func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": calls})
	}
	app.Post("/payments/sweep", handler)
	app.Post("/payments/on-demand", handler)
	app.Post("/mirror/sync", func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "mirror disabled"})
	})
	return app, &calls
}

func newCache(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })
	return cache
}

func post(t *testing.T, app *fiber.App, path, key string) (int, string) {
	t.Helper()
	resp, body := postResponse(t, app, path, key)
	return resp.StatusCode, body
}

func postResponse(t *testing.T, app *fiber.App, path, key string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	app, calls := setupIdempotentApp(t, newCache(t))

	post(t, app, "/payments/sweep", "")
	post(t, app, "/payments/sweep", "")
	assert.Equal(t, 2, *calls)
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls := setupIdempotentApp(t, newCache(t))

	status, first := post(t, app, "/payments/sweep", "abc123")
	require.Equal(t, fiber.StatusCreated, status)

	status, second := post(t, app, "/payments/sweep", "abc123")
	assert.Equal(t, fiber.StatusCreated, status)
	assert.JSONEq(t, first, second)
	assert.Equal(t, 1, *calls, "handler must not run for a replayed key")
}

func TestIdempotencyKeysAreScopedByPath(t *testing.T) {
	app, calls := setupIdempotentApp(t, newCache(t))

	post(t, app, "/payments/sweep", "same")
	post(t, app, "/payments/on-demand", "same")
	assert.Equal(t, 2, *calls)
}

func TestIdempotencyWithoutCache(t *testing.T) {
	app, calls := setupIdempotentApp(t, nil)

	post(t, app, "/payments/sweep", "abc")
	post(t, app, "/payments/sweep", "abc")
	assert.Equal(t, 2, *calls)
}

func TestIdempotencyMarksReplays(t *testing.T) {
	app, _ := setupIdempotentApp(t, newCache(t))

	first, _ := postResponse(t, app, "/payments/on-demand", "k1")
	assert.Empty(t, first.Header.Get(replayedHeader))

	second, _ := postResponse(t, app, "/payments/on-demand", "k1")
	assert.Equal(t, "true", second.Header.Get(replayedHeader))
	assert.Equal(t, fiber.MIMEApplicationJSON, second.Header.Get(fiber.HeaderContentType))
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	app, calls := setupIdempotentApp(t, newCache(t))

	status, _ := post(t, app, "/mirror/sync", "k2")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	status, _ = post(t, app, "/mirror/sync", "k2")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, 2, *calls, "a failed request may be retried with the same key")
}

func TestIdempotencyKeysAreScopedByOperator(t *testing.T) {
	cache := newCache(t)
	calls := 0
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(sessionLocal, c.Get("X-Operator"))
		return c.Next()
	})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/payments/sweep", func(c *fiber.Ctx) error {
		calls++
		return c.SendStatus(fiber.StatusOK)
	})

	for _, operator := range []string{"alice", "bob", "alice"} {
		req := httptest.NewRequest(fiber.MethodPost, "/payments/sweep", nil)
		req.Header.Set(idempotencyKeyHeader, "shared")
		req.Header.Set("X-Operator", operator)
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, 2, calls)
}
