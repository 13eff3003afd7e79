package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pipescan/config"
	_ "pipescan/docs" // Swagger docs
	"pipescan/internal/feed"
	"pipescan/internal/httpserver"
	"pipescan/pkg/log"
)

// @title       Pipeline Event Feed API
// @description Build-event feed: receives CI service-hook events and serves them to pipeline security listeners.
// @version     1
// @host        localhost:8001
// @schemes     http
func main() {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load config: ", err)
		return
	}

	// 2. Logger
	logger := log.Init(log.ZapConfig{
		Level:        cfg.Logger.Level,
		Mode:         cfg.Logger.Mode,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting event feed receiver...")
	logger.Infof(ctx, "Environment: %s", cfg.Environment.Name)

	// 3. Event feed domain
	buffer := feed.NewBuffer(cfg.Webhook.MaxEvents)
	feedHandler := feed.NewHandler(logger, buffer, feed.SecurityConfig{
		Secret:          cfg.Webhook.Secret,
		AllowedIPs:      cfg.Webhook.AllowedIPs,
		RateLimitPerMin: cfg.Webhook.RateLimitPerMin,
	}, cfg.Webhook.LongPollTimeout)

	// 4. HTTP Server
	httpServer, err := httpserver.New(logger, httpserver.Config{
		Logger:      logger,
		Port:        cfg.HTTPServer.Port,
		Mode:        cfg.HTTPServer.Mode,
		Environment: cfg.Environment.Name,
		FeedHandler: feedHandler,
	})
	if err != nil {
		logger.Error(ctx, "Failed to initialize HTTP server: ", err)
		return
	}

	// 5. Run
	if err := httpServer.Run(ctx); err != nil {
		logger.Error(ctx, "Failed to run server: ", err)
		return
	}

	logger.Info(ctx, "Server stopped gracefully")
}
