package handlers

import (
	"daily-reward-system/middleware"
	"daily-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SetupAuthRoutes wires registration, login and the balance lookup.
// loginLimit throttles the unauthenticated endpoints.
func SetupAuthRoutes(router fiber.Router, accounts *services.AccountService, requireAuth, loginLimit fiber.Handler) {
	auth := router.Group("/auth")

	auth.Post("/register", loginLimit, func(c *fiber.Ctx) error {
		var req registerRequest
		if msg, ok := parseBody(c, &req); !ok {
			return badRequest(c, msg)
		}

		user, err := accounts.Register(c.UserContext(), services.RegisterInput{
			Name:     req.Name,
			Email:    req.Email,
			Phone:    req.Phone,
			Password: req.Password,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "User registered successfully.",
			"user":    user,
		})
	})

	auth.Post("/login", loginLimit, func(c *fiber.Ctx) error {
		var req loginRequest
		if msg, ok := parseBody(c, &req); !ok {
			return badRequest(c, msg)
		}

		result, err := accounts.Login(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":    "Login successful",
			"token":      result.Token,
			"expires_at": result.ExpiresAt,
			"user": fiber.Map{
				"id":    result.User.ID,
				"name":  result.User.Name,
				"email": result.User.Email,
				"role":  result.User.Role,
			},
		})
	})

	auth.Get("/balance", requireAuth, func(c *fiber.Ctx) error {
		balance, err := accounts.Balance(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(balance)
	})
}
