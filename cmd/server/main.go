package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/toeic-import-service/internal/cache"
	"github.com/SAP-F-2025/toeic-import-service/internal/config"
	"github.com/SAP-F-2025/toeic-import-service/internal/handlers"
	"github.com/SAP-F-2025/toeic-import-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/toeic-import-service/internal/services"
	"github.com/SAP-F-2025/toeic-import-service/internal/utils"
	"github.com/SAP-F-2025/toeic-import-service/internal/validator"
	"github.com/SAP-F-2025/toeic-import-service/pkg"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	shutdownTimeout  = 15 * time.Second
	minSweepInterval = time.Minute
)

func main() {
	if err := run(); err != nil {
		utils.NewDefaultLogger().LogError(err, "Service stopped with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := utils.NewLogger(cfg.Environment)
	slogger := utils.ToSlogLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}
	if err := postgres.AutoMigrate(db); err != nil {
		return err
	}

	redisClient, err := pkg.NewRedisClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	zapLogger, err := newZapLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = zapLogger.Sync() }()

	progress := cache.NewProgressCache(cache.NewRedisCache(redisClient, zapLogger), cfg.Import.SessionTTL)

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.LogError(err, "Failed to close event publisher")
		}
	}()

	serviceManager := services.NewServiceManager(
		postgres.NewRepository(db),
		progress,
		publisher,
		validator.New(),
		cfg.Import,
		slogger,
	)
	go serviceManager.Sessions().Run(ctx, sweepInterval(cfg.Import.SessionTTL))

	verifier := handlers.NewCasdoorVerifier(cfg.Auth)
	if verifier == nil {
		logger.Warn("Casdoor is not configured, trusting the X-User-ID header")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), utils.ContextLogger(logger), utils.LoggerMiddleware(logger))
	handlers.NewHandlerManager(serviceManager, cfg.Import, verifier, logger).SetupRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newZapLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func sweepInterval(ttl time.Duration) time.Duration {
	if interval := ttl / 4; interval > minSweepInterval {
		return interval
	}
	return minSweepInterval
}
