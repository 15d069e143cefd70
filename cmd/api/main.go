package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/ec-orders/internal/api"
	"github.com/example/ec-orders/internal/app"
	"github.com/example/ec-orders/internal/auth"
	"github.com/example/ec-orders/internal/command"
	"github.com/example/ec-orders/internal/config"
	"github.com/example/ec-orders/internal/query"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.NewInfrastructure(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		infra.Shutdown(shutdownCtx)
	}()
	logger := infra.Logger

	publisher, closePublisher := infra.Publisher()
	defer func() {
		if err := closePublisher(); err != nil {
			logger.Error("close publisher", zap.Error(err))
		}
	}()

	cmdHandler := command.NewHandler(infra.Store, publisher, infra.Idempotency(), logger, cfg.CommandOptions())
	queryHandler := query.NewHandler(infra.Store, logger)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiresIn)

	if cfg.HasAdmin() {
		u, created, err := cmdHandler.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		logger.Info("admin account ready", zap.String("user_id", u.ID), zap.Bool("created", created))
	}

	router := api.NewRouter(api.RouterConfig{
		Handlers:     api.NewHandlers(cmdHandler, queryHandler),
		AuthHandlers: api.NewAuthHandlers(cmdHandler, jwtService, logger),
		JWTService:   jwtService,
		Users:        infra.Store,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server started",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreDriver),
			zap.String("update_mode", string(cfg.OrderUpdateMode)),
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
