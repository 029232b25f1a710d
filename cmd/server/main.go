package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/angeloszaimis/exception-flow/config"
	"github.com/angeloszaimis/exception-flow/internal/httpserver"
	"github.com/angeloszaimis/exception-flow/internal/metrics"
	"github.com/angeloszaimis/exception-flow/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	collector.Start(ctx)

	handler, closeFilter := setupRouter(cfg, log, collector)
	defer closeFilter()

	srv, err := httpserver.New(cfg.Server.Address, handler,
		httpserver.WithTimeouts(
			config.Duration(cfg.Server.ReadTimeout),
			config.Duration(cfg.Server.WriteTimeout),
			config.Duration(cfg.Server.IdleTimeout)))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		log.Info("Server listening", slog.String("address", cfg.Server.Address))
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting server", slog.Any("err", err))
			closeFilter()
			os.Exit(1)
		}
	}
}
