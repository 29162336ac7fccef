package main

import (
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/noah-isme/langschool-api/internal/repository"
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	cli := commandLine{
		db:     db,
		users:  repository.NewUserRepository(db),
		logger: logr,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logr.Error("command failed", zap.Error(err))
		}
		db.Close()
		os.Exit(1)
	}
}
