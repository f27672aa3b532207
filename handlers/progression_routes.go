// handlers/progression_routes.go
package handlers

import (
	"strconv"
	"time"

	"daily-reward-system/middleware"
	"daily-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

type claimRequest struct {
	WantsDouble bool `json:"wants_double"`
}

// SetupRewardRoutes wires the daily claim endpoints. All of them require an
// authenticated user.
func SetupRewardRoutes(router fiber.Router, engine *services.ClaimEngine, requireAuth fiber.Handler) {
	secured := router.Group("/rewards", requireAuth)

	secured.Post("/claim", func(c *fiber.Ctx) error {
		var req claimRequest
		// an empty body means a plain (undoubled) claim
		if len(c.Body()) > 0 {
			if msg, ok := parseBody(c, &req); !ok {
				return badRequest(c, msg)
			}
		}

		result, err := engine.AttemptClaim(c.UserContext(), middleware.UserID(c), req.WantsDouble)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(fiber.Map{
			"message": "Reward claimed successfully!",
			"reward": fiber.Map{
				"tier_id":           result.Tier.ID,
				"tier_index":        result.Tier.TierIndex,
				"label":             result.Tier.Label,
				"granted_primary":   result.Claim.GrantedPrimary,
				"granted_secondary": result.Claim.GrantedSecondary,
				"multiplier":        result.Claim.Multiplier,
				"doubled":           result.Claim.Doubled,
			},
			"claim":            result.Claim,
			"next_eligible_at": result.NextEligibleAt.UTC().Format(time.RFC3339),
		})
	})

	secured.Get("/status", func(c *fiber.Ctx) error {
		preview, err := engine.PeekNextReward(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}

		message := "Your next reward is ready."
		if !preview.Eligible {
			message = "Your next reward is locked until next_eligible_at."
		}
		return c.JSON(fiber.Map{
			"message":          message,
			"reward":           preview.Tier,
			"eligible":         preview.Eligible,
			"next_eligible_at": preview.NextEligibleAt,
			"cycle_position":   preview.CyclePosition,
			"cycle_length":     preview.CycleLength,
			"last_claim":       preview.LastClaim,
		})
	})

	secured.Get("/history", func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))

		claims, total, err := engine.History(c.UserContext(), middleware.UserID(c), page, size)
		if err != nil {
			return respondError(c, err)
		}
		if page < 1 {
			page = 1
		}
		return c.JSON(fiber.Map{
			"claims": claims,
			"page":   page,
			"total":  total,
		})
	})
}
