package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dealerdesk/dealerdesk-backend/internal/api/handlers"
	"github.com/dealerdesk/dealerdesk-backend/internal/api/middleware"
	"github.com/dealerdesk/dealerdesk-backend/internal/repository"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, deps handlers.Deps, rateLimitRepo repository.RateLimitRepository) {
	api := app.Group("/api/v1")

	api.Post("/ask", handlers.Ask(deps))

	// Admin endpoints, guarded by the shared admin token
	admin := api.Group("/admin", middleware.AdminToken(deps.Config.Admin.TokenHash))
	admin.Get("/rate-limit/stats", handlers.GetRateLimitStats(deps, rateLimitRepo))
	admin.Post("/rate-limit/reset", handlers.ResetRateLimit(deps))

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "dealerdesk-backend",
		})
	})
}
