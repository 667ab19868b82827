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

	"letraz-harvester/internal/api/handlers"
	"letraz-harvester/internal/api/routes"
	"letraz-harvester/internal/app"
	"letraz-harvester/internal/background"
	"letraz-harvester/internal/config"
	"letraz-harvester/internal/logging"

	"github.com/labstack/echo/v4"
)

func main() {
	configPath := os.Getenv("HARVESTER_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logging
	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting Letraz Harvester")

	ctx := context.Background()

	harvester, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize harvester", map[string]interface{}{"error": err.Error()})
	}
	defer harvester.Close()

	// Run status lives in Redis when enabled so it survives restarts
	var taskStore background.TaskStore = background.NewInMemoryTaskStore()
	checks := map[string]handlers.Check{
		"store":   harvester.Store.Ping,
		"browser": harvester.BrowserCheck,
	}
	if cfg.Redis.Enabled {
		redisStore, err := background.NewRedisTaskStore(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		}
		defer redisStore.Close()
		taskStore = redisStore
		checks["redis"] = redisStore.Ping
	}

	logger.Info("Initializing background task manager")
	taskManager := background.NewTaskManager(cfg, harvester.Coordinator, taskStore, logger)
	if err := taskManager.Start(ctx); err != nil {
		logger.Fatal("Failed to start task manager", map[string]interface{}{"error": err.Error()})
	}

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	routes.SetupRoutes(e, routes.Dependencies{
		Config:  cfg,
		Runs:    harvester.Coordinator,
		Store:   harvester.Store,
		Tasks:   taskManager,
		Hosts:   harvester.Limiter,
		Sources: harvester.Registry.Names(),
		Checks:  checks,
	})

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Stop the task manager first so a run in flight is cancelled and recorded
		logger.Info("Stopping background task manager...")
		if err := taskManager.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping task manager", map[string]interface{}{"error": err.Error()})
		}

		logger.Info("Stopping HTTP server...")
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server", map[string]interface{}{"error": err.Error()})
		}
	}()

	// Start server
	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", map[string]interface{}{"address": address})

	if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed to start", map[string]interface{}{"error": err.Error()})
	}

	<-shutdownDone
	logger.Info("Server shutdown complete")
}
