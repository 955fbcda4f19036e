package handlers

import (
	"errors"

	"clicker-battle/logger"
	"clicker-battle/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// statusFor maps service errors onto HTTP statuses. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrUnauthorized), errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, services.ErrNotAParticipant):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrChallengeNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidOpponent), errors.Is(err, services.ErrInvalidClicks):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrInvalidState), errors.Is(err, services.ErrMatchNotActive):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError renders err as {"error": ...}. Server-side failures are logged and
// answered with a generic message.
func respondError(c *fiber.Ctx, log *logger.Logger, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		log.Error("request failed", err, zap.String("method", c.Method()), zap.String("path", c.Path()))
		msg := "internal server error"
		if errors.Is(err, services.ErrFinishFailed) {
			msg = services.ErrFinishFailed.Error()
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// idParam returns the :id path parameter if it is a UUID.
func idParam(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
