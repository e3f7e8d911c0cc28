package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/ownerdesk/ticket-engine/internal/api/http"
	"github.com/ownerdesk/ticket-engine/internal/app"
	"github.com/ownerdesk/ticket-engine/internal/config"
	"github.com/ownerdesk/ticket-engine/internal/observability"
	"github.com/ownerdesk/ticket-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build application", zap.Error(err))
	}
	defer container.Close()

	if err := container.Bootstrap(ctx); err != nil {
		logger.Fatal("failed to bootstrap", zap.Error(err))
	}

	worker.StartNotificationWorker(container.Notifications)

	scheduler, err := worker.NewSweepScheduler(container.Alerts, cfg.Engine.SweepCron, cfg.Engine.Location(), 5*time.Minute, logger)
	if err != nil {
		logger.Fatal("failed to schedule alert sweep", zap.Error(err))
	}
	scheduler.Start()

	server := httptransport.NewServer(container)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := server.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
