// Package main is the entry point for the memgate gateway server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	memgate "github.com/blueberrycongee/memgate"
	"github.com/blueberrycongee/memgate/internal/api"
	"github.com/blueberrycongee/memgate/internal/config"
	"github.com/blueberrycongee/memgate/internal/observability"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	bootCfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := buildLogger(bootCfg.Logging)
	slog.SetDefault(logger.Slog())
	logger.Info("starting memgate gateway", "version", memgate.Version)

	cfgManager, err := config.NewManager(*configPath, logger)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	cfg := cfgManager.Get()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := cfgManager.Watch(ctx); err != nil {
		logger.Warn("config hot-reload disabled", "error", err)
	}

	// The store is built once and survives config reloads; only the engine
	// around it is rebuilt.
	store, err := memgate.StoreFromConfig(cfg.Store)
	if err != nil {
		logger.Error("failed to create conversation store", "error", err)
		os.Exit(1)
	}

	provider, err := newEngineProvider(ctx, cfg, store, logger)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	cfgManager.OnChange(func(newCfg *config.Config) {
		if err := provider.Reload(newCfg); err != nil {
			logger.Error("config reload rejected, keeping current engine", "error", err)
			return
		}
		logger.Info("engine reloaded from configuration")
	})

	handler := api.NewHandler(provider, logger)
	mux := api.NewMux(handler, api.RoutesConfig{
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// History does not survive shutdown: the engine clears the store on Close.
	if err := provider.Close(); err != nil {
		logger.Error("engine shutdown error", "error", err)
	}
	_ = cfgManager.Close()
	logger.Info("server stopped")
}

func buildLogger(cfg config.LoggingConfig) *observability.Logger {
	return observability.NewLogger(observability.LoggerConfig{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: os.Stdout,
	}, observability.NewRedactor())
}
