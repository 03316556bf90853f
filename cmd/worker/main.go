/**
 * @description
 * Worker Service Entry Point.
 * Runs the scoring pipeline on its cron:
 * 1. Minute 0: ingestion, scoring, hourly history, checkpoints and portfolio.
 * 2. Minute 35: automatic votes and rescore.
 * Exposes Prometheus metrics on METRICS_ADDR.
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/codex
 * - backend/internal/scheduler
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ttms-project/backend/internal/codex"
	"github.com/ttms-project/backend/internal/config"
	"github.com/ttms-project/backend/internal/db"
	"github.com/ttms-project/backend/internal/logger"
	"github.com/ttms-project/backend/internal/metrics"
	"github.com/ttms-project/backend/internal/notify"
	"github.com/ttms-project/backend/internal/scheduler"
)

func main() {
	logger.Info("🔥 Starting TTMS Worker...")
	defer logger.Sync()

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}
	if err := logger.Configure(cfg.Log.Level, cfg.Log.Encoding); err != nil {
		logger.Fatal("Failed to configure logger: %v", err)
	}

	// 2. Connect DBs
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Postgres connection failed: %v", err)
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Redis connection failed: %v", err)
	}
	defer redisClient.Close()

	// 3. Initialize Services
	repo := db.NewRepository(pgDB)
	codexClient := codex.NewClient(cfg)
	notifier := notify.NewFromConfig(cfg, redisClient)
	svcs := scheduler.NewServices(repo, codexClient, redisClient, notifier, cfg)
	defer svcs.Close()

	// 4. Context with Cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Metrics listener
	metricsServer := metrics.Serve(cfg.Server.MetricsAddr)
	logger.Info("📈 Metrics listening on %s", cfg.Server.MetricsAddr)

	// 6. Scheduler
	sched := scheduler.New(svcs, cfg, logger.L())
	if err := sched.Start(ctx); err != nil {
		logger.Fatal("Failed to start scheduler: %v", err)
	}

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error closing metrics server: %v", err)
	}
	logger.Info("Worker exited.")
}
