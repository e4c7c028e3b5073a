package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uniminuto/minuni-api/internal/adapter/azure"
	"github.com/uniminuto/minuni-api/internal/config"
	"github.com/uniminuto/minuni-api/internal/policy"
	store "github.com/uniminuto/minuni-api/internal/repository"
	"github.com/uniminuto/minuni-api/internal/service"
	transport "github.com/uniminuto/minuni-api/internal/transport/http"
)

func main() {
	cfg := config.Load()

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer closeLog()

	logger.Info("starting minuni-api",
		"port", cfg.HTTPPort,
		"mode", cfg.Mode,
		"database", cfg.DatabaseURL)

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Runs left behind by a previous process must not keep chats locked.
	ctx := context.Background()
	if n, err := db.ExpireStaleRuns(ctx, cfg.RunTimeout); err != nil {
		logger.Error("failed to expire stale runs", "error", err)
	} else if n > 0 {
		logger.Warn("expired stale runs from previous process", "count", n)
	}

	provider := azure.NewProvider(azure.ClientOptions{
		Endpoint:    cfg.Endpoint,
		APIKey:      cfg.APIKey,
		APIVersion:  cfg.APIVersion,
		Deployment:  cfg.Deployment,
		AssistantID: cfg.AssistantID,
		Temperature: cfg.Temperature,
		Timeout:     cfg.LLMTimeout,
	}, logger)

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		logger.Error("failed to initialize policy engine", "error", err)
		os.Exit(1)
	}

	svc := service.New(db, provider, policyEngine, cfg, logger)
	server := transport.NewServer(svc)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("minuni-api started", "port", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server gracefully", "error", err)
	}

	logger.Info("stopped")
}
