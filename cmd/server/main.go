package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/inkpress/backend/internal/models"
	"github.com/anonto42/inkpress/backend/internal/realtime"
	"github.com/anonto42/inkpress/backend/internal/repositories"
	"github.com/anonto42/inkpress/backend/internal/router"
	"github.com/anonto42/inkpress/backend/pkg/config"
	"github.com/anonto42/inkpress/backend/pkg/firebase"
	"github.com/anonto42/inkpress/backend/pkg/logger"
	"github.com/anonto42/inkpress/backend/pkg/metrics"
	"github.com/anonto42/inkpress/backend/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	cfg := config.Load()

	appLogger, logCloser := logger.New(logger.Config{
		ServiceName: "inkpress-api",
		Environment: cfg.Env,
		LogFilePath: cfg.LogFile,
		MaxSizeMB:   cfg.LogMaxSizeMB,
		MaxBackups:  cfg.LogMaxBackups,
		MaxAgeDays:  cfg.LogMaxAgeDays,
	})
	defer logCloser.Close()
	slog.SetDefault(appLogger)

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("server stopped with error", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := config.InitDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.CloseDB()

	if err := models.AutoMigrate(db.Postgres); err != nil {
		return err
	}
	logger.Info("PostgreSQL auto-migrations completed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos := router.NewRepositories(db.Postgres, db.MongoDB)
	if mongoPosts, ok := repos.Posts.(*repositories.MongoPostRepository); ok {
		if err := mongoPosts.EnsureIndexes(ctx); err != nil {
			logger.Warn("post indexes not created", "error", err)
		}
	}

	var verifier firebase.TokenVerifier
	if cfg.FirebaseCredentialsPath != "" {
		app, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			logger.Warn("firebase login disabled", "error", err)
		} else {
			verifier = app.AuthClient
		}
	}

	hub := realtime.NewHub(logger)
	defer hub.Close()

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, cfg, logger)
	router.SetupRoutes(e, cfg, repos, hub, verifier, logger)

	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", "port", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "port", cfg.Port, "env", cfg.Env)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Close()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api shutdown", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}
