// handlers/match_routes.go
package handlers

import (
	"strconv"
	"time"

	"clicker-battle/logger"
	"clicker-battle/middleware"
	"clicker-battle/services"

	"github.com/gofiber/fiber/v2"
)

type challengeRequest struct {
	OpponentID string `json:"opponentId"`
}

type clicksRequest struct {
	Clicks *int `json:"clicks"`
}

func SetupMatchRoutes(
	app *fiber.App,
	auth fiber.Handler,
	challengeService *services.ChallengeService,
	matchmakingService *services.MatchmakingService,
	battleService *services.BattleService,
	finisher *services.Finisher,
	log *logger.Logger,
) {
	api := app.Group("/api")

	// --- Challenges ---
	api.Post("/challenge", auth, func(c *fiber.Ctx) error {
		var req challengeRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}

		m, err := challengeService.Challenge(c.UserContext(), middleware.UserID(c), req.OpponentID)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"matchId": m.ID})
	})

	api.Get("/challenges", auth, func(c *fiber.Ctx) error {
		pending, err := challengeService.Pending(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		// the newest pending challenge, or null
		return c.JSON(pending)
	})

	api.Post("/challenges/:id/accept", auth, func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return respondError(c, log, services.ErrChallengeNotFound)
		}

		m, err := challengeService.Accept(c.UserContext(), id, middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"matchId": m.ID})
	})

	api.Post("/challenges/:id/decline", auth, func(c *fiber.Ctx) error {
		if id, ok := idParam(c); ok {
			if err := challengeService.Decline(c.UserContext(), id, middleware.UserID(c)); err != nil {
				return respondError(c, log, err)
			}
		}
		return c.JSON(fiber.Map{"success": true})
	})

	api.Get("/challenges/:id/status", auth, func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return respondError(c, log, services.ErrNotFound)
		}

		status, err := challengeService.Status(c.UserContext(), id, middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"status": status})
	})

	// --- Matchmaking ---
	api.Post("/matchmaking", auth, func(c *fiber.Ctx) error {
		res, err := matchmakingService.RequestMatch(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(res)
	})

	api.Post("/matchmaking/:id/cancel", auth, func(c *fiber.Ctx) error {
		if id, ok := idParam(c); ok {
			if err := matchmakingService.Cancel(c.UserContext(), id, middleware.UserID(c)); err != nil {
				return respondError(c, log, err)
			}
		}
		return c.JSON(fiber.Map{"success": true})
	})

	// --- Battle ---
	api.Get("/matches/:id", auth, func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return respondError(c, log, services.ErrNotFound)
		}

		view, err := battleService.Match(c.UserContext(), id)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(view)
	})

	api.Get("/matches/:id/watch", auth, func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return respondError(c, log, services.ErrNotFound)
		}

		timeout, err := parseTimeout(c.Query("timeout"))
		if err != nil {
			return badRequest(c, "invalid timeout")
		}

		view, err := battleService.Watch(c.UserContext(), id, c.Query("status"), timeout)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(view)
	})

	api.Post("/matches/:id/clicks", auth, func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return respondError(c, log, services.ErrNotFound)
		}

		var req clicksRequest
		if err := c.BodyParser(&req); err != nil || req.Clicks == nil {
			return respondError(c, log, services.ErrInvalidClicks)
		}

		if err := battleService.ReportClicks(c.UserContext(), id, middleware.UserID(c), *req.Clicks); err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"success": true})
	})

	api.Post("/matches/:id/finish", auth, func(c *fiber.Ctx) error {
		id, ok := idParam(c)
		if !ok {
			return respondError(c, log, services.ErrNotFound)
		}

		res, err := finisher.Finish(c.UserContext(), id, middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(res)
	})
}

// parseTimeout accepts a Go duration ("5s") or a whole number of seconds.
func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(raw)
}
