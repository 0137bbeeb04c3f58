// Package server assembles the Fiber application: middleware, API routes,
// health and metrics endpoints.
package server

import (
	"errors"
	"time"

	"nftmarket/internal/handlers"
	"nftmarket/internal/metrics"
	"nftmarket/internal/middleware"
	"nftmarket/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Logger      *zap.SugaredLogger
	Auth        *services.AuthService
	NFTs        *services.NFTService
	Marketplace *services.MarketplaceService
	Social      *services.SocialService
	// Images may be nil, which disables uploads.
	Images      handlers.ImageStore
	RateLimiter *middleware.RateLimiter
	// AccessLog turns on the per-request access log.
	AccessLog   bool
	// Health reports the state of optional backends in /health.
	Health      map[string]string
}

// New builds the application with every route registered under /api.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "nftmarket",
		BodyLimit:    handlers.MaxImageSize + 1<<20,
		ErrorHandler: errorHandler(d.Logger),
	})

	app.Use(recover.New())
	if d.AccessLog {
		app.Use(logger.New())
	}
	app.Use(metrics.Middleware())

	auth := middleware.AuthRequired(d.Logger, d.Auth)
	limit := d.RateLimiter.Handler()

	api := app.Group("/api")
	handlers.NewAuthHandler(d.Logger, d.Auth).RegisterRoutes(api, auth, limit)
	handlers.NewNFTHandler(d.Logger, d.NFTs).RegisterRoutes(api, auth)
	handlers.NewMarketplaceHandler(d.Logger, d.Marketplace).RegisterRoutes(api, auth)
	handlers.NewUserHandler(d.Logger, d.Social, d.NFTs).RegisterRoutes(api, auth)
	handlers.NewUploadHandler(d.Logger, d.Images).RegisterRoutes(api, auth)

	app.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		}
		for name, state := range d.Health {
			body[name] = state
		}
		return c.JSON(body)
	})
	app.Get("/metrics", metrics.Handler())

	return app
}

// errorHandler renders errors that escape the handlers, such as unknown
// routes and recovered panics, in the API's {message} envelope.
func errorHandler(logs *zap.SugaredLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}
		logs.Errorw("unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Server error",
		})
	}
}
