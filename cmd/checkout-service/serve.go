package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/app/background"
	"github.com/LavaJover/shvark-checkout-service/internal/app/setup"
	"github.com/LavaJover/shvark-checkout-service/internal/config"
	"github.com/LavaJover/shvark-checkout-service/internal/delivery/grpcapi"
	"github.com/LavaJover/shvark-checkout-service/internal/delivery/http/handlers"
	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/logger"
	"github.com/urfave/cli/v2"
	"google.golang.org/grpc"
)

const shutdownTimeout = 15 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "run the HTTP API, the gRPC health endpoint and background jobs",
		Action: serve,
	}
}

func loadConfig(c *cli.Context) (*config.CheckoutConfig, io.Closer, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	_, closer, err := logger.Setup(cfg.LogConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, closer, nil
}

func serve(c *cli.Context) error {
	cfg, logCloser, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	deps, err := setup.InitializeDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	uc, err := setup.InitializeUseCases(deps)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := deps.Settings.Refresh(ctx); err != nil {
		slog.Warn("initial settings load failed", "error", err)
	}

	healthServer := grpcapi.NewMaintenanceHealth("checkout")
	if current, err := deps.Settings.Get(ctx); err == nil {
		healthServer.Apply(*current)
	}

	var subscriber domain.SubscriberPort
	if deps.Subscriber != nil {
		subscriber = deps.Subscriber
	}
	tasks := background.NewBackgroundTasks(uc.CheckoutUsecase, deps.Settings, healthServer, subscriber, cfg)
	tasks.StartAll(ctx)

	router := &handlers.Router{
		Checkout: handlers.NewCheckoutHandler(uc.CheckoutUsecase, cfg.Checkout.PublicOrigin),
		Webhooks: handlers.NewWebhookHandler(uc.CheckoutUsecase),
		Carts:    handlers.NewCartHandler(deps.Repositories.CartRepo),
		Admin:    handlers.NewAdminHandler(uc.SessionUsecase, uc.CheckoutUsecase, uc.FulfillmentUsecase),
		Gatherer: deps.Registry,
		Ready: func(ctx context.Context) error {
			sqlDB, err := deps.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.HTTPServer.Host, cfg.HTTPServer.Port),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
	}

	grpcServer := grpc.NewServer()
	healthServer.Register(grpcServer)
	lis, err := net.Listen("tcp", net.JoinHostPort(cfg.GRPCServer.Host, cfg.GRPCServer.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		slog.Info("http server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		slog.Info("grpc server started", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err = <-errCh:
		slog.Error("server failed, shutting down", "error", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(c.Context), shutdownTimeout)
	defer cancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		slog.Error("http server shutdown failed", "error", shutdownErr)
	}
	grpcServer.GracefulStop()
	tasks.Wait()
	deps.Dispatcher.Wait()

	return err
}
