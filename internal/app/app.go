// Package app assembles the shopping service: configuration, stores, the
// aggregate runtime, services, and the HTTP server, with ordered shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/ShoppingGo/pkg/database"
	"github.com/utafrali/ShoppingGo/pkg/health"
	"github.com/utafrali/ShoppingGo/pkg/kafka"
	"github.com/utafrali/ShoppingGo/pkg/tracing"

	"github.com/utafrali/ShoppingGo/internal/config"
	"github.com/utafrali/ShoppingGo/internal/domain"
	"github.com/utafrali/ShoppingGo/internal/event"
	espostgres "github.com/utafrali/ShoppingGo/internal/eventstore/postgres"
	esredis "github.com/utafrali/ShoppingGo/internal/eventstore/redis"
	httphandler "github.com/utafrali/ShoppingGo/internal/handler/http"
	"github.com/utafrali/ShoppingGo/internal/runtime"
	"github.com/utafrali/ShoppingGo/internal/service"
	"github.com/utafrali/ShoppingGo/migrations"
)

// App is the assembled service.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *kafka.Producer
	tracerShutdown func(context.Context) error

	server *http.Server
}

// New builds the application: connects Postgres and Redis, runs migrations,
// wires the aggregate runtime and services, and prepares the HTTP server.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.TracingConfig())
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisConfig())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	producer := kafka.NewProducer(kafka.DefaultProducerConfig(cfg.Kafka.Brokers), logger)

	eventLog := espostgres.NewEventLog(pool)
	snapshots := esredis.NewSnapshotStore(redisClient, cfg.Redis.TTL)

	cartManager := runtime.NewManager(domain.AggregateTypeCart, func(id string) *domain.Cart {
		return domain.NewCart(id)
	}, eventLog, snapshots, cfg.Snapshots.Every, logger)

	inventoryManager := runtime.NewManager(domain.AggregateTypeInventory, func(id string) *domain.Inventory {
		return domain.NewInventory(id)
	}, eventLog, snapshots, cfg.Snapshots.Every, logger)

	events := event.NewProducer(producer, logger)
	carts := service.NewCartService(cartManager, events, logger)
	inventory := service.NewInventoryService(inventoryManager, events, logger)
	shopping := service.NewShoppingService(carts, inventory, logger)

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", producer.Ping)

	router := httphandler.NewRouter(httphandler.RouterDeps{
		Carts:     carts,
		Inventory: inventory,
		Shopping:  shopping,
		Health:    healthHandler,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		tracerShutdown: tracerShutdown,
		server:         server,
	}, nil
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the server fails, then shuts everything down in order.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		a.shutdown(context.Background())
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown failed", slog.String("error", err.Error()))
	}

	a.shutdown(shutdownCtx)
	return nil
}

// shutdown releases resources in reverse dependency order: producer first so
// pending integration events flush, then the stores, then tracing.
func (a *App) shutdown(ctx context.Context) {
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close failed", slog.String("error", err.Error()))
	}

	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("redis close failed", slog.String("error", err.Error()))
	}

	a.pool.Close()

	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.tracerShutdown(flushCtx); err != nil {
		a.logger.Error("tracer shutdown failed", slog.String("error", err.Error()))
	}

	a.logger.Info("shutdown complete")
}
