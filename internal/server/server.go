package server

import (
    "context"
    "errors"
    "log/slog"
    "time"

    "github.com/gofiber/fiber/v2"

    "github.com/vendorpay/vendorpay/internal/app"
    "github.com/vendorpay/vendorpay/internal/routes"
)

// Server wraps the Fiber application and the wired services.
type Server struct {
    http *fiber.App
    app  *app.App
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(a *app.App, logger *slog.Logger) (*Server, error) {
    router := fiber.New(fiber.Config{
        AppName:               a.Config.AppName,
        ReadTimeout:           30 * time.Second,
        WriteTimeout:          30 * time.Second,
        DisableStartupMessage: !a.Config.IsDev(),
        ErrorHandler:          errorHandler(logger),
    })

    if err := routes.Setup(router, routes.Deps{App: a}); err != nil {
        return nil, err
    }

    return &Server{http: router, app: a}, nil
}

// Handler exposes the Fiber app, mainly for app.Test in tests.
func (s *Server) Handler() *fiber.App {
    return s.http
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
    return s.http.Listen(s.app.Config.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
    return s.http.ShutdownWithContext(ctx)
}

// errorHandler renders every error as {"error": message}.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
    return func(c *fiber.Ctx, err error) error {
        code := fiber.StatusInternalServerError
        var fe *fiber.Error
        if errors.As(err, &fe) {
            code = fe.Code
        }
        if code >= fiber.StatusInternalServerError {
            logger.Error("request failed", "path", c.Path(), "error", err)
        }
        return c.Status(code).JSON(fiber.Map{"error": err.Error()})
    }
}
