// handlers/auth_routes.go
package handlers

import (
	"clicker-battle/logger"
	"clicker-battle/services"

	"github.com/gofiber/fiber/v2"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func SetupAuthRoutes(app *fiber.App, authService *services.AuthService, log *logger.Logger) {
	api := app.Group("/api")

	api.Post("/register", func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}

		user, err := authService.Register(c.UserContext(), req.Username, req.Password)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"userId":   user.ID,
			"username": user.Username,
		})
	})

	api.Post("/login", func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}

		token, user, err := authService.Login(c.UserContext(), req.Username, req.Password)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"token": token,
			"user":  user,
		})
	})
}
