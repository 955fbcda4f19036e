// middleware/gateway.go
package middleware

import (
	"strings"

	"clicker-battle/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ServiceTokenAuth guards operator endpoints such as /metrics with a static token. An
// empty expected token leaves the route open.
func ServiceTokenAuth(expectedToken string, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expectedToken == "" {
			return c.Next()
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" {
			token = c.Get("X-Service-Token")
		}

		if token != expectedToken {
			log.Warn("invalid service token", zap.String("path", c.Path()), zap.String("ip", c.IP()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid service token",
			})
		}
		return c.Next()
	}
}
