// Command sweep runs the periodic maintenance jobs: re-applying the holiday
// calendar, raising ending-soon notifications and pruning rendered exports.
// It is meant to be triggered by an external scheduler such as cron.
package main

import (
	"context"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/app"
	"github.com/noah-isme/langschool-api/pkg/cache"
	"github.com/noah-isme/langschool-api/pkg/config"
	"github.com/noah-isme/langschool-api/pkg/database"
	"github.com/noah-isme/langschool-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	jobs, err := parseJobs(os.Args[1:])
	if err != nil {
		if err != errHelp {
			logr.Error("invalid arguments", zap.Error(err))
		}
		os.Exit(2)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient := cache.Optional(cfg, logr)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// No websocket clients ever connect to this process.
	cfg.Notifications.WebsocketEnabled = false
	services, err := app.Build(cfg, db, redisClient, logr)
	if err != nil {
		logr.Fatal("wire services", zap.Error(err))
	}

	runner := sweeper{
		holidays:      services.Holidays,
		notifications: services.Notifications,
		exports:       services.Exports,
		exportTTL:     cfg.Exports.ResultTTL,
		logger:        logr,
	}
	if failed := runner.run(context.Background(), jobs); failed > 0 {
		logr.Error("sweep finished with failures", zap.Int("failed_jobs", failed))
		db.Close()
		os.Exit(1)
	}
}
