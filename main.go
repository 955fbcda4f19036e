package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clicker-battle/config"
	"clicker-battle/database"
	"clicker-battle/events"
	"clicker-battle/handlers"
	"clicker-battle/logger"
	"clicker-battle/services"
	"clicker-battle/utils"
	"clicker-battle/workers"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration:", err)
	}

	appLog, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "clicker-battle",
	})
	if err != nil {
		log.Fatal("failed to create logger:", err)
	}
	defer appLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabaseURL, appLog.With(zap.String("component", "gorm")))
	if err != nil {
		appLog.Error("failed to connect to database", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		appLog.Error("failed to migrate database", err)
		os.Exit(1)
	}

	// Match events: Redis when configured so every instance sees them, in-process otherwise
	var notifier events.Notifier = events.NewMemoryNotifier()
	if cfg.RedisURL != "" {
		client, err := events.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			appLog.Error("failed to connect to redis", err)
			os.Exit(1)
		}
		defer client.Close()
		notifier = events.NewRedisNotifier(client, appLog)
		appLog.Info("✅ Match events via Redis pub/sub")
	}

	var results events.ResultPublisher = events.NopResultPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		results = events.NewKafkaResultPublisher(events.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaResultsTopic,
		})
		appLog.Info("✅ Publishing match results to Kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaResultsTopic))
	}
	defer results.Close()

	authService := services.NewAuthService(db, appLog, cfg.JWTSecret, cfg.TokenTTL)
	userService := services.NewUserService(db, appLog)
	challengeService := services.NewChallengeService(db, notifier, appLog)
	matchmakingService := services.NewMatchmakingService(db, notifier, appLog, cfg.Matchmaking.EloRange, cfg.Matchmaking.Candidates)
	battleService := services.NewBattleService(db, notifier, appLog, cfg.WatchMax)
	finisher := services.NewFinisher(db, notifier, results, appLog)

	sched, err := matchmakingService.StartSweepScheduler(cfg.Matchmaking.WaitingTTL, cfg.Matchmaking.SweepInterval)
	if err != nil {
		appLog.Error("failed to start scheduler", err)
		os.Exit(1)
	}
	defer func() { _ = sched.Shutdown() }()

	if cfg.R2.Enabled() {
		uploader, err := utils.NewR2Uploader(ctx, cfg.R2)
		if err != nil {
			appLog.Error("failed to initialize R2 client", err)
			os.Exit(1)
		}
		archiver := workers.NewArchiveWorker(services.NewMatchStore(db), uploader, appLog)
		go workers.PollArchive(ctx, archiver, cfg.ArchiveInterval)
	} else {
		appLog.Warn("⚠️  R2 not configured, completed matches will not be archived")
	}

	app := handlers.NewApp(handlers.Deps{
		Auth:           authService,
		Users:          userService,
		Challenges:     challengeService,
		Matchmaking:    matchmakingService,
		Battles:        battleService,
		Finisher:       finisher,
		Log:            appLog,
		AllowedOrigins: cfg.Origins(),
		MetricsToken:   cfg.MetricsToken,
		WatchMax:       cfg.WatchMax,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := app.Listen(addr); err != nil {
			appLog.Error("server error", err)
			stop()
		}
	}()

	appLog.Info("✅ Server running", zap.Int("port", cfg.Port), zap.String("environment", cfg.Environment))
	appLog.Info("✅ Stale matchmaking sweep running", zap.Duration("every", cfg.Matchmaking.SweepInterval), zap.Duration("ttl", cfg.Matchmaking.WaitingTTL))

	<-ctx.Done()
	appLog.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(cfg.WatchMax + 5*time.Second); err != nil {
		appLog.Error("graceful shutdown failed", err)
	}
}
