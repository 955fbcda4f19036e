package handlers

import (
	"time"

	"clicker-battle/logger"
	"clicker-battle/metrics"
	"clicker-battle/middleware"
	"clicker-battle/services"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Auth        *services.AuthService
	Users       *services.UserService
	Challenges  *services.ChallengeService
	Matchmaking *services.MatchmakingService
	Battles     *services.BattleService
	Finisher    *services.Finisher
	Log         *logger.Logger

	AllowedOrigins string
	MetricsToken   string
	// WatchMax bounds the longest request; the write timeout leaves room for it.
	WatchMax time.Duration
}

// NewApp builds the fiber app with all routes registered.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "clicker-battle",
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		BodyLimit:    64 * 1024,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: d.WatchMax + 10*time.Second,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(d.Log))

	if d.AllowedOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: d.AllowedOrigins,
			AllowMethods: "GET,POST,OPTIONS",
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
			MaxAge:       86400, // 24 hours
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", middleware.ServiceTokenAuth(d.MetricsToken, d.Log), metrics.Handler())

	auth := middleware.BearerAuth(d.Auth, d.Log)

	SetupAuthRoutes(app, d.Auth, d.Log)
	SetupPlayerRoutes(app, auth, d.Users, d.Log)
	SetupMatchRoutes(app, auth, d.Challenges, d.Matchmaking, d.Battles, d.Finisher, d.Log)

	return app
}
