package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/dinepilot/internal/adapter/handler"
	"github.com/rl1809/dinepilot/internal/adapter/notify"
	"github.com/rl1809/dinepilot/internal/adapter/storage"
	"github.com/rl1809/dinepilot/internal/adapter/ws"
	"github.com/rl1809/dinepilot/internal/config"
	"github.com/rl1809/dinepilot/internal/core/service"
	"github.com/rl1809/dinepilot/internal/logger"
	"github.com/rl1809/dinepilot/internal/port"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{Service: "dinepilot", Env: cfg.AppEnv, Level: cfg.LogLevel})

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	// Initialize storage
	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// Initialize notifiers
	hub := ws.NewHub()
	notifiers := notify.Fanout{notify.NewLogNotifier(log), hub}
	if cfg.Notifier == "amqp" {
		amqpNotifier, err := notify.DialAMQP(cfg.AMQPURL)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer amqpNotifier.Close()
		notifiers = append(notifiers, amqpNotifier)
		log.Info("connected to rabbitmq", slog.String("exchange", notify.ExchangeName))
	}

	// Request keys live next to the orders when the backend can hold them
	var requests port.IdempotencyRepository = storage.NewMemoryAdapter()
	if r, ok := repo.(port.IdempotencyRepository); ok {
		requests = r
	}

	// Initialize service
	orderService := service.NewOrderService(repo, notifiers,
		service.WithLogger(log),
		service.WithIdempotency(requests),
	)

	// Initialize gRPC server
	grpcHandler := handler.NewGRPCHandler(orderService, cfg.JWTSecret, log)
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpcHandler.UnaryInterceptor()))
	grpcHandler.Register(grpcServer)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(orderService, cfg.JWTSecret, hub, log)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpHandler.Routes(cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		log.Info("gRPC server listening", slog.Int("port", cfg.GRPCPort))
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		log.Info("HTTP server listening", slog.Int("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown", slog.Any("err", err))
		}
		log.Info("HTTP server stopped")

		grpcServer.GracefulStop()
		log.Info("gRPC server stopped")
		return nil
	})

	return g.Wait()
}

// openStore connects the configured backend and returns its closer.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (port.OrderRecordRepository, func(), error) {
	switch cfg.StoreBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 20,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		log.Info("connected to redis", slog.String("addr", cfg.RedisAddr))
		return storage.NewRedisAdapter(rdb), func() { rdb.Close() }, nil

	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping mysql: %w", err)
		}
		adapter := storage.NewMySQLAdapter(db)
		if err := adapter.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("connected to mysql")
		return adapter, func() { db.Close() }, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		adapter := storage.NewPostgresAdapter(pool)
		if err := adapter.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("connected to postgres")
		return adapter, pool.Close, nil
	}

	log.Info("using in-memory order store")
	return storage.NewMemoryAdapter(), func() {}, nil
}
