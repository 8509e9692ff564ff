package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ksrcrypto/crypto-backend/database"
	"github.com/ksrcrypto/crypto-backend/services"
)

// Handlers groups everything SetupRoutes mounts
type Handlers struct {
	Listings  *ListingsHandler
	Chart     *ChartHandler
	Auth      *AuthHandler
	Portfolio *PortfolioHandler
	Routes    *RoutesHandler
	Metrics   *MetricsHandler
	// AuthService backs the session middleware
	AuthService services.AuthService
}

func SetupRoutes(app *fiber.App, h Handlers) {
	app.Get("/health", func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		}
		if database.DB != nil {
			health["database"] = "ok"
			health["pool"] = database.Status()
			if err := database.HealthCheck(c.Context()); err != nil {
				health["status"] = "degraded"
				health["database"] = err.Error()
			}
		}
		return c.JSON(health)
	})

	api := app.Group("/api/v1")

	// Market Routes
	api.Get("/listings", h.Listings.GetListings)
	api.Get("/listings/top", h.Listings.GetTopListings)
	api.Get("/listings/selected", h.Listings.GetSelectedListing)
	api.Get("/quotes", h.Listings.GetQuotes)
	api.Get("/global-metrics", h.Listings.GetGlobalMetrics)
	api.Get("/chart", h.Chart.GetChart)

	// Auth Routes
	auth := api.Group("/auth")
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/logout", h.Auth.Logout)
	auth.Get("/me", h.Auth.Me)

	api.Get("/portfolio", RequireSession(h.AuthService), h.Portfolio.GetPortfolio)

	api.Get("/routes", h.Routes.GetRoutes)
	api.Get("/metrics", h.Metrics.GetMetrics)
}
