package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/vodhub/internal/api/http"
	"github.com/spec-kit/vodhub/internal/api/http/handlers"
	"github.com/spec-kit/vodhub/internal/auth"
	"github.com/spec-kit/vodhub/internal/config"
	"github.com/spec-kit/vodhub/internal/events"
	"github.com/spec-kit/vodhub/internal/observability"
	"github.com/spec-kit/vodhub/internal/persistence"
	"github.com/spec-kit/vodhub/internal/repository"
	"github.com/spec-kit/vodhub/internal/service"
	"github.com/spec-kit/vodhub/internal/worker"
	"github.com/spec-kit/vodhub/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var users repository.UserRepository
	switch cfg.Storage.Type {
	case config.StoragePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, migrations.FS, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		users = repository.NewUserRepository(pg.Pool)
	case config.StorageRedis:
		rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()
		users = repository.NewRedisUserRepository(rdb.Client, "")
	}

	if !cfg.Auth.Secured() {
		logger.Warn("no signing secret configured; protected routes redirect to the warning page")
	}
	if !cfg.Storage.LocalMode() && cfg.Auth.OwnerUsername == "" {
		logger.Warn("USERNAME is empty; no owner account can log in")
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL())
	registry := auth.NewRefreshRegistry(
		auth.WithSweepInterval(cfg.Auth.SweepInterval()),
		auth.WithRegistryLogger(logger),
	)
	defer registry.Close()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		Users:      users,
		Tokens:     tokens,
		Registry:   registry,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	deps := map[string]handlers.Pinger{}
	if users != nil {
		deps[cfg.Storage.Type] = users
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), auth.NewGate(tokens))
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		System: handlers.NewSystemHandler(*cfg),
		Auth:   handlers.NewAuthHandler(authService),
		Admin:  handlers.NewAdminHandler(authService, metrics),
	})

	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("storage", cfg.Storage.Type),
		)
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
