// middleware/auth.go
package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by RequireAuth.
const (
	LocalUserID = "user_id"
)

// Authenticator resolves a bearer token to a user id.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

// AdminChecker reports whether a user currently holds the admin role.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// UserID returns the authenticated user id stored by RequireAuth.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// RequireAuth validates the Authorization: Bearer <jwt> header and attaches
// the user id to the request.
func RequireAuth(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || token == "" || token == header {
			slog.Debug("missing bearer token", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or missing token",
				"code":  "UNAUTHORIZED",
			})
		}

		userID, err := auth.Authenticate(token)
		if err != nil {
			slog.Info("token rejected", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or missing token",
				"code":  "UNAUTHORIZED",
			})
		}

		c.Locals(LocalUserID, userID)
		return c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin(checker AdminChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		ok, err := checker.IsAdmin(c.UserContext(), userID)
		if err != nil || !ok {
			if err != nil {
				slog.Info("admin check failed", "user_id", userID, "error", err)
			}
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "access denied, admin only",
				"code":  "FORBIDDEN",
			})
		}
		return c.Next()
	}
}
