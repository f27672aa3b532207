// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ServiceTokenMiddleware guards internal endpoints (metrics) with a static
// bearer token shared with the scraper. An empty token disables the check.
func ServiceTokenMiddleware(expectedToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expectedToken == "" {
			return c.Next()
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			slog.Info("service token missing", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "service token missing",
				"code":  "UNAUTHORIZED",
			})
		}

		// Parse "Bearer <token>", raw values are accepted too
		token := strings.TrimPrefix(authHeader, "Bearer ")

		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			slog.Info("invalid service token", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid service token",
				"code":  "UNAUTHORIZED",
			})
		}
		return c.Next()
	}
}
