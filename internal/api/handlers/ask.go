package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/dealerdesk/dealerdesk-backend/internal/agent"
	"github.com/dealerdesk/dealerdesk-backend/internal/config"
	"github.com/dealerdesk/dealerdesk-backend/internal/llm"
	"github.com/dealerdesk/dealerdesk-backend/internal/memory"
	"github.com/dealerdesk/dealerdesk-backend/internal/ratelimit"
)

// Deps bundles everything the handlers need
type Deps struct {
	Agent   *agent.Agent
	Memory  *memory.Store
	Limiter *ratelimit.Limiter
	Config  *config.Config
	Logger  *logrus.Logger
}

// AskRequest is the /ask request body
type AskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// RateLimitInfo reports quota state back to the client
type RateLimitInfo struct {
	RemainingInteractions int `json:"remaining_interactions"`
	DailyLimit            int `json:"daily_limit"`
	CurrentCount          int `json:"current_count"`
}

// AskResponse is the /ask response body
type AskResponse struct {
	Answer        string           `json:"answer"`
	Route         agent.Route      `json:"route"`
	SQLQuery      *string          `json:"sql_query"`
	Citations     []agent.Citation `json:"citations"`
	ToolTrace     []string         `json:"tool_trace"`
	SessionID     string           `json:"session_id"`
	RateLimitInfo *RateLimitInfo   `json:"rate_limit_info,omitempty"`
}

// Ask handles a question end to end: session resolution, quota enforcement,
// agent run, memory update.
func Ask(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req AskRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		if strings.TrimSpace(req.Question) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Question cannot be empty",
			})
		}

		identifier := clientIdentifier(c)

		// Expired sessions are swept on every request; the sweep is cheap
		// and idempotent.
		deps.Memory.Sweep()

		sessionID := deps.Memory.GetOrCreate(req.SessionID)
		history := deps.Memory.FormatForPrompt(sessionID)

		deps.Logger.WithFields(logrus.Fields{
			"session":    sessionID,
			"identifier": identifier,
		}).Info("ask request received")

		var rateInfo *RateLimitInfo
		if deps.Config.RateLimit.Enabled {
			limit := deps.Config.RateLimit.DailyLimit
			if err := deps.Limiter.Check(c.Context(), identifier, limit); err != nil {
				var quota *ratelimit.QuotaExceeded
				if errors.As(err, &quota) {
					return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
						"error": quota.Error(),
					})
				}
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "An internal error occurred while processing your request.",
				})
			}
			// Record immediately after the check passes so failed pipeline
			// runs still count against the quota.
			count, err := deps.Limiter.Record(c.Context(), identifier)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "An internal error occurred while processing your request.",
				})
			}
			remaining := limit - count
			if remaining < 0 {
				remaining = 0
			}
			rateInfo = &RateLimitInfo{
				RemainingInteractions: remaining,
				DailyLimit:            limit,
				CurrentCount:          count,
			}
		}

		start := time.Now()
		result, err := deps.Agent.Run(c.Context(), req.Question, history)
		if err != nil {
			deps.Logger.WithError(err).Error("agent run failed")
			if errors.Is(err, llm.ErrUnavailable) {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "External service temporarily unavailable. Please try again later.",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "An internal error occurred while processing your request.",
			})
		}
		deps.Logger.WithFields(logrus.Fields{
			"route":    result.Route,
			"duration": time.Since(start).String(),
		}).Info("agent completed")

		deps.Memory.AddExchange(sessionID, req.Question, result.Answer)

		return c.JSON(AskResponse{
			Answer:        result.Answer,
			Route:         result.Route,
			SQLQuery:      result.SQLQuery,
			Citations:     result.Citations,
			ToolTrace:     result.ToolTrace,
			SessionID:     sessionID,
			RateLimitInfo: rateInfo,
		})
	}
}

// clientIdentifier extracts the client identity used for quota counting.
// Proxy headers are checked in order before the remote address.
func clientIdentifier(c *fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	if cfIP := c.Get("CF-Connecting-IP"); cfIP != "" {
		return strings.TrimSpace(cfIP)
	}
	if ip := c.IP(); ip != "" {
		return ip
	}
	return "unknown"
}
