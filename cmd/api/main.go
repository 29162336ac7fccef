package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/langschool-api/api/swagger"
	"github.com/noah-isme/langschool-api/internal/app"
	"github.com/noah-isme/langschool-api/internal/handler"
	"github.com/noah-isme/langschool-api/internal/middleware"
	"github.com/noah-isme/langschool-api/pkg/cache"
	"github.com/noah-isme/langschool-api/pkg/config"
	"github.com/noah-isme/langschool-api/pkg/database"
	"github.com/noah-isme/langschool-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/langschool-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/langschool-api/pkg/middleware/requestid"
)

const shutdownTimeout = 15 * time.Second

// @title Language School Scheduling API
// @version 1.0.0
// @description Courses, kindergarten classes, holidays and session schedules.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	redisClient := cache.Optional(cfg, logr)
	if redisClient != nil {
		defer redisClient.Close()
	}

	services, err := app.Build(cfg, db, redisClient, logr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	services.Notifications.Start(ctx)
	defer services.Notifications.Stop()
	if services.Hub != nil {
		defer services.Hub.Close()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(services.Metrics))

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = cache.Probe{Client: redisClient}
	}
	health := handler.NewHealthHandler(services.Metrics.Handler(), checks)
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/metrics", health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Register(
		r.Group(cfg.APIPrefix),
		services.Handlers(),
		middleware.AdminGuard(cfg.Auth.Enabled, services.Auth),
		middleware.JWT(services.Auth),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.Bool("auth", cfg.Auth.Enabled))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logr.Info("shutdown started", zap.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		logr.Info("shutdown complete")
	}
	return nil
}
