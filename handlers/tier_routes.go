package handlers

import (
	"strconv"

	"daily-reward-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type createTierRequest struct {
	Label               string `json:"label" validate:"required,max=64"`
	BaseAmountPrimary   int64  `json:"base_amount_primary" validate:"gte=0"`
	BaseAmountSecondary int64  `json:"base_amount_secondary" validate:"gte=0"`
	TierIndex           int    `json:"tier_index" validate:"required,gt=0"`
	Active              *bool  `json:"active"`
}

type updateTierRequest struct {
	Label               *string `json:"label" validate:"omitempty,min=1,max=64"`
	BaseAmountPrimary   *int64  `json:"base_amount_primary" validate:"omitempty,gte=0"`
	BaseAmountSecondary *int64  `json:"base_amount_secondary" validate:"omitempty,gte=0"`
	TierIndex           *int    `json:"tier_index" validate:"omitempty,gt=0"`
	Active              *bool   `json:"active"`
}

// SetupTierRoutes wires the reward catalog. Reads need a logged-in user,
// writes need an admin.
func SetupTierRoutes(router fiber.Router, catalog *services.CatalogService, requireAuth, requireAdmin fiber.Handler) {
	secured := router.Group("/reward-tiers", requireAuth)

	secured.Get("/", func(c *fiber.Ctx) error {
		tiers, err := catalog.ListTiers(c.UserContext(), c.QueryBool("active_only", false))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"total": len(tiers), "tiers": tiers})
	})

	secured.Get("/:index", func(c *fiber.Ctx) error {
		index, err := strconv.Atoi(c.Params("index"))
		if err != nil || index <= 0 {
			return badRequest(c, "tier index must be a positive integer")
		}
		tier, err := catalog.GetTierByIndex(c.UserContext(), index)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"tier": tier})
	})

	secured.Post("/", requireAdmin, func(c *fiber.Ctx) error {
		var req createTierRequest
		if msg, ok := parseBody(c, &req); !ok {
			return badRequest(c, msg)
		}

		tier, err := catalog.CreateTier(c.UserContext(), services.TierInput{
			TierIndex:           req.TierIndex,
			Label:               req.Label,
			BaseAmountPrimary:   req.BaseAmountPrimary,
			BaseAmountSecondary: req.BaseAmountSecondary,
			Active:              req.Active,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Reward tier created successfully!",
			"tier":    tier,
		})
	})

	secured.Put("/:id", requireAdmin, func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return badRequest(c, "invalid reward tier id")
		}

		var req updateTierRequest
		if msg, ok := parseBody(c, &req); !ok {
			return badRequest(c, msg)
		}

		tier, err := catalog.UpdateTier(c.UserContext(), id, services.TierPatch{
			TierIndex:           req.TierIndex,
			Label:               req.Label,
			BaseAmountPrimary:   req.BaseAmountPrimary,
			BaseAmountSecondary: req.BaseAmountSecondary,
			Active:              req.Active,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message": "Reward tier updated successfully!",
			"tier":    tier,
		})
	})

	secured.Delete("/:id", requireAdmin, func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return badRequest(c, "invalid reward tier id")
		}

		if err := catalog.DeleteTier(c.UserContext(), id, c.QueryBool("hard", false)); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Reward tier deleted successfully!"})
	})
}
