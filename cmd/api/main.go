/**
 * @description
 * Main entry point for the TTMS read API.
 * Initializes the Fiber web server, loads configuration, and sets up routes.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2: Web framework
 * - github.com/ttms-project/backend/internal/config: Config loader
 * - github.com/ttms-project/backend/internal/db: Database connections
 *
 * @notes
 * - Connects to Postgres and Redis on startup.
 * - Sets up basic middleware (CORS, Logger, Recover).
 */

package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ttms-project/backend/internal/api"
	"github.com/ttms-project/backend/internal/config"
	"github.com/ttms-project/backend/internal/db"
	"github.com/ttms-project/backend/internal/logger"
	"github.com/ttms-project/backend/internal/notify"
	"github.com/ttms-project/backend/internal/services"
)

func main() {
	defer logger.Sync()

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}
	if err := logger.Configure(cfg.Log.Level, cfg.Log.Encoding); err != nil {
		logger.Fatal("Failed to configure logger: %v", err)
	}

	// 2. Initialize Database Connections
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Postgres: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// 3. Services
	repo := db.NewRepository(pgDB)
	hub := services.NewRankingStreamHub(redisClient, services.RankingUpdateChannel)
	defer hub.Close()

	rankings := services.NewRankingService(repo, redisClient)
	rankings.TTL = cfg.Redis.RankingTTL

	svcs := api.Services{
		Rankings:  rankings,
		Snapshots: services.NewSnapshotService(repo, notify.NewFromConfig(cfg, redisClient), cfg),
		Portfolio: services.NewPortfolioService(repo),
		Votes:     services.NewVoteService(repo),
		Hub:       hub,
	}

	// 4. Initialize Fiber App
	app := fiber.New(fiber.Config{
		AppName:       "TTMS Scoring API",
		StrictRouting: true,
		CaseSensitive: true,
	})

	// 5. Global Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	// 6. Routes
	api.SetupRoutes(app, svcs)

	// 7. Start Server
	logger.Info("🚀 Starting TTMS API on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
