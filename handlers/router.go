package handlers

import (
	"log/slog"
	"strings"

	"daily-reward-system/middleware"
	"daily-reward-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps carries everything NewApp needs to build the HTTP surface.
type Deps struct {
	Engine   *services.ClaimEngine
	Catalog  *services.CatalogService
	Accounts *services.AccountService

	Logger         *slog.Logger
	AllowedOrigins []string
	LoginLimit     middleware.RateLimit
	MetricsToken   string
	// Gatherer backs /metrics. Nil leaves the endpoint out.
	Gatherer       prometheus.Gatherer
}

// NewApp builds the fiber application with every route mounted under /api/v1.
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "daily-reward-system",
		BodyLimit:             1 * 1024 * 1024,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(deps.Logger))

	if len(deps.AllowedOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(deps.AllowedOrigins, ","),
			AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
			AllowCredentials: !containsWildcard(deps.AllowedOrigins),
			MaxAge:           86400, // 24 hours
		}))
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if deps.Gatherer != nil {
		app.Get("/metrics",
			middleware.ServiceTokenMiddleware(deps.MetricsToken),
			adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})),
		)
	}

	requireAuth := middleware.RequireAuth(deps.Accounts)
	requireAdmin := middleware.RequireAdmin(deps.Accounts)
	loginLimit := middleware.NewRateLimiter(deps.LoginLimit).Handler()

	api := app.Group("/api/v1")
	SetupAuthRoutes(api, deps.Accounts, requireAuth, loginLimit)
	SetupTierRoutes(api, deps.Catalog, requireAuth, requireAdmin)
	SetupRewardRoutes(api, deps.Engine, requireAuth)

	return app
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
