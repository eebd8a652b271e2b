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

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"meypark-backend/config"
	"meypark-backend/internal/api"
	"meypark-backend/internal/credential"
	"meypark-backend/internal/db"
	"meypark-backend/internal/dispatch"
	"meypark-backend/internal/hub"
	"meypark-backend/internal/logging"
	"meypark-backend/internal/metrics"
	"meypark-backend/internal/notification"
	"meypark-backend/internal/persist"
	"meypark-backend/internal/state"
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

	logger, err := logging.New("syncd", cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The database backs push subscriptions and, optionally, the snapshot.
	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	logger.Info("database initialized", zap.String("driver", cfg.Database.Driver))

	var committer state.Committer
	switch cfg.Store.Backend {
	case "database":
		committer = persist.NewGormCommitter(gormDB)
	case "file":
		committer = persist.NewFileCommitter(cfg.Store.Path)
	default:
		logger.Fatal("unknown store backend", zap.String("backend", cfg.Store.Backend))
	}

	store := state.New(committer,
		state.WithHasher(credential.NewBcrypt(cfg.Store.BcryptCost)),
		state.WithLogger(logger))
	store.Load(ctx)
	seedMeters(store, cfg.Store.GeoKiosks, logger)

	m := metrics.New("syncd")
	webpushOptions := &webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	dispatchOpts := []dispatch.Option{dispatch.WithLogger(logger), dispatch.WithMetrics(m)}
	if alerts := startAlerts(ctx, cfg, gormDB, webpushOptions, logger, m); alerts != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithAlerter(alerts))
	}
	dispatcher := dispatch.New(store, nil, dispatchOpts...)
	wsHub := hub.New(dispatcher, hub.Options{
		SendBuffer: cfg.Server.SendBuffer,
		Logger:     logger,
		Metrics:    m,
	})
	dispatcher.SetBroadcaster(wsHub)

	handler := api.NewHandler(store, dispatcher, gormDB, webpushOptions, logger)
	router := api.NewRouter(handler, wsHub, api.RouterConfig{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		Logger:          logger,
		Metrics:         m,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.SyncPort),
		Handler: router,
	}

	go func() {
		defer logging.Recover(logger, "http server")
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.SyncPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	wsHub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server Shutdown", zap.Error(err))
	}
	logger.Info("server gracefully stopped")
}

// seedMeters replaces the parking meters with the geographic kiosk file, if present.
func seedMeters(store *state.Store, path string, logger *zap.Logger) {
	if path == "" {
		return
	}
	meters, err := persist.LoadMeters(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("no geographic kiosk file, keeping stored meters", zap.String("path", path))
			return
		}
		logger.Warn("failed to load geographic kiosks", zap.String("path", path), zap.Error(err))
		return
	}
	store.ReplaceMeters(meters)
	logger.Info("geographic kiosks loaded", zap.Int("count", len(meters)))
}

// startAlerts runs the push alert workers when VAPID keys are configured.
func startAlerts(ctx context.Context, cfg *config.Config, gormDB *gorm.DB, opts *webpush.Options, logger *zap.Logger, m *metrics.Metrics) *notification.WorkerPool {
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Warn("VAPID keys are not configured, meter alerts are disabled")
		return nil
	}
	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, opts, logger, m)
	pool.Start(ctx)
	return pool
}
