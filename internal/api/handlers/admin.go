package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dealerdesk/dealerdesk-backend/internal/repository"
)

// RateLimitStatsResponse lists counter records for the admin surface
type RateLimitStatsResponse struct {
	Stats        []repository.RateLimitRecord `json:"stats"`
	TotalRecords int                          `json:"total_records"`
}

// ResetRateLimitRequest optionally names a single identifier to reset
type ResetRateLimitRequest struct {
	Identifier string `json:"identifier,omitempty"`
}

// ResetRateLimitResponse confirms a reset
type ResetRateLimitResponse struct {
	Message      string `json:"message"`
	RecordsReset int64  `json:"records_reset"`
}

// GetRateLimitStats returns daily interaction counts, optionally filtered by
// a ?date=YYYY-MM-DD query parameter.
func GetRateLimitStats(deps Deps, store repository.RateLimitRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var dateFilter *time.Time
		if raw := c.Query("date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid date filter, expected YYYY-MM-DD",
				})
			}
			dateFilter = &parsed
		}

		records, err := store.List(c.Context(), dateFilter)
		if err != nil {
			deps.Logger.WithError(err).Error("failed to list rate limit records")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to list rate limit records",
			})
		}
		if records == nil {
			records = []repository.RateLimitRecord{}
		}

		return c.JSON(RateLimitStatsResponse{
			Stats:        records,
			TotalRecords: len(records),
		})
	}
}

// ResetRateLimit zeroes today's counts for one identifier, or for all
// identifiers when none is given.
func ResetRateLimit(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ResetRateLimitRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		reset, err := deps.Limiter.Reset(c.Context(), req.Identifier)
		if err != nil {
			deps.Logger.WithError(err).Error("failed to reset rate limit")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to reset rate limit",
			})
		}

		message := "Reset interaction counts for all identifiers (today)"
		if req.Identifier != "" {
			message = "Reset interaction count for identifier '" + req.Identifier + "' (today)"
		}

		return c.JSON(ResetRateLimitResponse{
			Message:      message,
			RecordsReset: reset,
		})
	}
}
