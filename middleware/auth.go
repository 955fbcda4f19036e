// middleware/auth.go
package middleware

import (
	"strings"

	"clicker-battle/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// BearerAuth rejects requests without a valid "Authorization: Bearer <token>" header and
// stores the caller's id in c.Locals("user_id").
func BearerAuth(verifier TokenVerifier, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || token == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing bearer token",
			})
		}

		userID, err := verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			log.Debug("rejected bearer token", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}

// UserID returns the id set by BearerAuth.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
