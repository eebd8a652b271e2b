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

	"go.uber.org/zap"

	"meypark-backend/config"
	"meypark-backend/internal/db"
	"meypark-backend/internal/invoicing"
	"meypark-backend/internal/logging"
	"meypark-backend/internal/metrics"
	"meypark-backend/internal/mw"
	"meypark-backend/internal/render"
	"meypark-backend/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	logger, err := logging.New("invoiced", cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	logger.Info("database initialized", zap.String("driver", cfg.Database.Driver))

	m := metrics.New("invoiced")
	svc, err := invoicing.NewService(&cfg.Invoicing, store.NewGormStore(gormDB), render.NewPDF(),
		invoicing.WithLogger(logger),
		invoicing.WithMetrics(m))
	if err != nil {
		logger.Fatal("failed to create invoicing service", zap.Error(err))
	}

	cache := mw.NewResponseCache(time.Duration(cfg.Server.CacheTTLSeconds) * time.Second)
	router := invoicing.NewRouter(invoicing.NewHandler(svc, cache, logger), cache, invoicing.RouterConfig{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		WebDir:          cfg.Invoicing.WebDir,
		Logger:          logger,
		Metrics:         m,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.InvoicingPort),
		Handler: router,
	}

	go func() {
		defer logging.Recover(logger, "http server")
		logger.Info("HTTP server starting",
			zap.Int("port", cfg.Server.InvoicingPort),
			zap.String("portal", cfg.Invoicing.PublicBaseURL+"/facturacion.html"))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server Shutdown", zap.Error(err))
	}
	logger.Info("server gracefully stopped")
}
