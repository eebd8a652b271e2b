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
	"meypark-backend/internal/hub"
	"meypark-backend/internal/logging"
	"meypark-backend/internal/metrics"
	"meypark-backend/internal/relay"
	"meypark-backend/internal/upstream"
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

	logger, err := logging.New("relayd", cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New("relayd")

	// The relay reads the poller's snapshot; the poller ticks the relay.
	var kiosk *relay.Relay
	poller := upstream.NewPoller(&cfg.Relay,
		upstream.WithLogger(logger),
		upstream.WithMetrics(m),
		upstream.WithTick(func(ctx context.Context) { kiosk.Tick(ctx) }))
	kiosk = relay.New(poller, relay.WithLogger(logger), relay.WithMetrics(m))

	wsHub := hub.New(kiosk, hub.Options{
		SendBuffer: cfg.Server.SendBuffer,
		Logger:     logger,
		Metrics:    m,
	})
	kiosk.SetBroadcaster(wsHub)

	go func() {
		defer logging.Recover(logger, "upstream poller")
		poller.Run(ctx)
	}()

	router := relay.NewRouter(kiosk, wsHub, relay.RouterConfig{
		WebDir:  cfg.Relay.WebDir,
		Logger:  logger,
		Metrics: m,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.RelayPort),
		Handler: router,
	}

	go func() {
		defer logging.Recover(logger, "http server")
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.RelayPort))
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
