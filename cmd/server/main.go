package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/upcymarket/orderapi/internal/api"
	"github.com/upcymarket/orderapi/internal/config"
	"github.com/upcymarket/orderapi/internal/service"
	"github.com/upcymarket/orderapi/internal/upcy"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration error", zap.Error(err))
	}

	client := upcy.NewClient(cfg.Upcy, logger)
	svc := service.NewOrderService(client, logger)
	router := api.NewRouter(cfg, svc, logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting order gateway",
			zap.String("addr", server.Addr),
			zap.String("upcy_api", cfg.Upcy.BaseURL),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		logger.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("application terminated with error", zap.Error(err))
	}
}
