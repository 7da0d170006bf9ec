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

	"github.com/david/bid-monitor/internal/api"
	"github.com/david/bid-monitor/internal/config"
	"github.com/david/bid-monitor/internal/logging"
	"github.com/david/bid-monitor/internal/monitor"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(".", "5000")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	registry, err := monitor.LoadRegistry(cfg.SourcesFile)
	if err != nil {
		logger.Fatal("failed to load sources", zap.Error(err))
	}

	scraper := monitor.NewCollyScraper(logger)
	m := monitor.New(registry, scraper, logger, monitor.WithSourceDelay(cfg.SourceDelay))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go m.Loop(ctx, cfg.ScanInterval)

	srv := api.NewServer(m, logger, cfg.AllowedOrigins(), cfg.ScanInterval)
	go func() {
		logger.Info("monitor API starting",
			zap.String("addr", cfg.Addr()),
			zap.Int("sources", len(registry.ActiveSources())),
			zap.Duration("scan_interval", cfg.ScanInterval))
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
