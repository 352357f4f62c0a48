// Package main is the entry point for the stocktake API server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"stocktake/internal/domain/counting"
	"stocktake/internal/domain/reconciliation"
	"stocktake/internal/infrastructure/draftcache"
	v1 "stocktake/internal/infrastructure/http/v1"
	"stocktake/internal/infrastructure/numerator"
	"stocktake/internal/infrastructure/storage/postgres"
	"stocktake/pkg/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly
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
	log.Info("starting stocktake server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Numerator ---
	numeratorService := numerator.New(pool)

	// --- Draft store ---
	// Redis when configured, in-process otherwise. The memory store is
	// fine for a single node.
	var drafts counting.DraftStore
	if redisURL := getEnv("REDIS_URL", ""); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalw("invalid REDIS_URL", "error", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalw("failed to ping redis", "error", err)
		}
		defer client.Close()

		drafts, err = draftcache.NewRedisStore(client)
		if err != nil {
			log.Fatalw("failed to create draft store", "error", err)
		}
		log.Info("redis draft store initialized")
	} else {
		memStore := draftcache.NewMemoryStore()
		drafts = memStore
		log.Warn("REDIS_URL not set, drafts are kept in process memory")

		// The memory store has no native expiry; sweep it in-process.
		go sweepDrafts(ctx, memStore, log)
	}

	// --- Review rules ---
	reviews, err := loadReviewRules()
	if err != nil {
		log.Fatalw("failed to load review rules", "error", err)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:             pool,
		TxManager:        txManager,
		Logger:           log,
		Numerator:        numeratorService,
		Drafts:           drafts,
		Reviews:          reviews,
		RebaselineOnEdit: getEnv("REBASELINE_ON_EDIT", "false") == "true",
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// sweepDrafts periodically drops expired drafts from the memory store.
func sweepDrafts(ctx context.Context, store *draftcache.MemoryStore, log *logger.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.DeleteStale(ctx)
			if err != nil {
				log.Errorw("draft sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				log.Infow("swept stale drafts", "count", removed)
			}
		}
	}
}

// loadReviewRules reads discrepancy review rules from REVIEW_RULES
// (inline JSON) or REVIEW_RULES_FILE. No rules means no review step.
func loadReviewRules() (*reconciliation.ReviewSet, error) {
	raw := os.Getenv("REVIEW_RULES")
	if raw == "" {
		if path := os.Getenv("REVIEW_RULES_FILE"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
			raw = string(data)
		}
	}
	if raw == "" {
		return nil, nil
	}

	var rules []reconciliation.ReviewRule
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		return nil, fmt.Errorf("parse review rules: %w", err)
	}

	return reconciliation.CompileRules(rules)
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
