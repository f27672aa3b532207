package handlers

import (
	"errors"
	"log/slog"
	"time"

	"daily-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors onto HTTP responses:
//
//	{"error": "...", "code": "...", "next_eligible_at": "..."}
func respondError(c *fiber.Ctx, err error) error {
	var eligibility *services.EligibilityError
	if errors.As(err, &eligibility) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":            eligibility.Error(),
			"code":             "NOT_YET_ELIGIBLE",
			"next_eligible_at": eligibility.NextEligibleAt.UTC().Format(time.RFC3339),
		})
	}

	status, code := fiber.StatusInternalServerError, "STORAGE_ERROR"
	message := "internal server error"

	switch {
	case errors.Is(err, services.ErrUnauthorized), errors.Is(err, services.ErrInvalidCredentials):
		status, code, message = fiber.StatusUnauthorized, "UNAUTHORIZED", err.Error()
	case errors.Is(err, services.ErrForbidden):
		status, code, message = fiber.StatusForbidden, "FORBIDDEN", err.Error()
	case errors.Is(err, services.ErrUserNotFound):
		status, code, message = fiber.StatusNotFound, "USER_NOT_FOUND", err.Error()
	case errors.Is(err, services.ErrTierNotFound):
		status, code, message = fiber.StatusNotFound, "TIER_NOT_FOUND", err.Error()
	case errors.Is(err, services.ErrNoRewardsAvailable):
		status, code, message = fiber.StatusNotFound, "NO_REWARDS_AVAILABLE", err.Error()
	case errors.Is(err, services.ErrDuplicateTier):
		status, code, message = fiber.StatusBadRequest, "DUPLICATE_TIER", err.Error()
	case errors.Is(err, services.ErrPasswordTooLong):
		status, code, message = fiber.StatusBadRequest, "INVALID_REQUEST", err.Error()
	case errors.Is(err, services.ErrEmailTaken):
		status, code, message = fiber.StatusConflict, "EMAIL_TAKEN", "email already registered, please login"
	default:
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}

	return c.Status(status).JSON(fiber.Map{"error": message, "code": code})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
		"code":  "INVALID_REQUEST",
	})
}
