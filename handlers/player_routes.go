// handlers/player_routes.go
package handlers

import (
	"time"

	"clicker-battle/logger"
	"clicker-battle/middleware"
	"clicker-battle/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPlayerRoutes(app *fiber.App, auth fiber.Handler, userService *services.UserService, log *logger.Logger) {
	api := app.Group("/api")

	// Public
	api.Get("/leaderboard", func(c *fiber.Ctx) error {
		players, err := userService.Leaderboard(c.UserContext(), c.QueryInt("limit", services.LeaderboardSize))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(players)
	})

	// 🔐 Secured
	api.Get("/profile", auth, func(c *fiber.Ctx) error {
		user, err := userService.Profile(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"user":      user,
			"is_online": user.IsOnline(time.Now()),
		})
	})

	api.Post("/heartbeat", auth, func(c *fiber.Ctx) error {
		if err := userService.Heartbeat(c.UserContext(), middleware.UserID(c)); err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"success": true})
	})

	api.Get("/players", auth, func(c *fiber.Ctx) error {
		players, err := userService.Players(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(players)
	})

	api.Get("/users/:id/elo-history", auth, func(c *fiber.Ctx) error {
		userID := c.Params("id")
		if userID == "me" {
			userID = middleware.UserID(c)
		} else if _, ok := idParam(c); !ok {
			return respondError(c, log, services.ErrNotFound)
		}

		rows, err := userService.EloHistory(c.UserContext(), userID, c.QueryInt("limit", 0))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(rows)
	})
}
