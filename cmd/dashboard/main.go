package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/david/bid-monitor/internal/bidapi"
	"github.com/david/bid-monitor/internal/board"
	"github.com/david/bid-monitor/internal/config"
	"github.com/david/bid-monitor/internal/logging"
	"github.com/david/bid-monitor/internal/web"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(".", "3000")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	client := bidapi.NewClient(cfg.BackendURL, cfg.RequestTimeout)
	controller := board.NewController(client, logger, board.WithResetDelay(cfg.RefreshResetDelay))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A failed initial load is shown on the page; the refresh button retries.
	if err := controller.Load(ctx); err != nil {
		logger.Warn("initial load failed", zap.String("backend", cfg.BackendURL), zap.Error(err))
	} else {
		summary := controller.View().Summary
		logger.Info("initial load",
			zap.Int("total", summary.Total),
			zap.Int("municipal", summary.Municipal),
			zap.Int("county", summary.County),
			zap.Int("state", summary.State),
			zap.String("last_update", summary.LastUpdate))
	}

	srv, err := web.NewServer(controller, logger)
	if err != nil {
		logger.Fatal("failed to build web server", zap.Error(err))
	}

	go func() {
		logger.Info("dashboard starting", zap.String("addr", cfg.Addr()), zap.String("backend", cfg.BackendURL))
		if err := srv.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
