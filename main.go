package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"breachtrend/internal"
	"breachtrend/internal/api"
	"breachtrend/internal/config"
	"breachtrend/internal/container"
	"breachtrend/internal/testkit"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		internal.DefaultLogger.Debug("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load(os.Getenv(config.EnvPrefix + "_CONFIG"))
	if err != nil {
		internal.DefaultLogger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	logger := internal.NewLoggerWithWriter(internal.ParseLogLevel(appConfig.Logging.Level), os.Stderr,
		appConfig.Logging.Format == "json")
	gin.SetMode(appConfig.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, err := container.New(appConfig, logger)
	if err != nil {
		logger.Error("Failed to create application container: %v", err)
		os.Exit(1)
	}
	defer appContainer.Shutdown(context.Background())

	if appConfig.Database.URL != "" {
		db, err := container.Connect(ctx, appConfig.Database)
		if err != nil {
			logger.Error("Failed to initialize database: %v", err)
			os.Exit(1)
		}
		if err := appContainer.InitWithDatabase(db); err != nil {
			logger.Error("Failed to initialize container: %v", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("No database configured, reports are kept in memory until shutdown")
		appContainer.UseReports(testkit.NewInMemoryReportRepository())
	}

	handler := api.NewTrendHandler(appContainer.TrendService, appContainer.Reader, api.TrendHandlerConfig{
		Defaults:    appContainer.Defaults(),
		MaxUploadMB: appConfig.Server.MaxUploadMB,
		RunTimeout:  time.Duration(appConfig.Server.RunTimeoutSec) * time.Second,
		Persistent:  appContainer.Persistent(),
	}, logger)
	server := api.NewServer(handler, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(":" + appConfig.Server.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed: %v", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed: %v", err)
		}
	}
}
