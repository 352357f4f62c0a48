// Package main is the entry point for the stocktake maintenance worker.
// It rebuilds register balances from the movement journal on a schedule.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"stocktake/internal/domain/registers/stock"
	"stocktake/internal/infrastructure/storage/postgres"
	"stocktake/internal/infrastructure/storage/postgres/register_repo"
	"stocktake/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting stocktake worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	stockRepo := register_repo.NewStockRepo(txManager)
	stockService := stock.NewService(stockRepo)

	workerLog := log.WithComponent("worker")

	scheduler := cron.New()

	// Rebuild balances from the movement journal nightly. Catches any
	// drift between the folded balance table and the journal.
	recalcSpec := getEnv("RECALC_SCHEDULE", "0 3 * * *")
	_, err = scheduler.AddFunc(recalcSpec, func() {
		jobCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
		defer cancel()

		start := time.Now()
		if err := stockService.RecalculateBalances(jobCtx, nil, nil); err != nil {
			workerLog.Errorw("balance recalculation failed", "error", err)
			return
		}
		workerLog.Infow("balance recalculation finished",
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
	if err != nil {
		log.Fatalw("invalid RECALC_SCHEDULE", "spec", recalcSpec, "error", err)
	}

	scheduler.Start()
	log.Infow("worker schedules registered", "recalc", recalcSpec)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")

	// Let running jobs finish
	<-scheduler.Stop().Done()

	log.Info("worker stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}
