package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/moneytransfer-backend/internal/adapter/grpc"
	httpadapter "github.com/simaogato/moneytransfer-backend/internal/adapter/http"
	"github.com/simaogato/moneytransfer-backend/internal/adapter/lock/memlock"
	"github.com/simaogato/moneytransfer-backend/internal/adapter/lock/redislock"
	"github.com/simaogato/moneytransfer-backend/internal/adapter/repository/memory"
	"github.com/simaogato/moneytransfer-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/moneytransfer-backend/internal/config"
	"github.com/simaogato/moneytransfer-backend/internal/domain"
	"github.com/simaogato/moneytransfer-backend/internal/logger"
	"github.com/simaogato/moneytransfer-backend/internal/usecase/balance"
	"github.com/simaogato/moneytransfer-backend/internal/usecase/seeder"
	"github.com/simaogato/moneytransfer-backend/internal/usecase/transfer"
)

const shutdownTimeout = 15 * time.Second

// accountStore is what the services need from the storage backend
type accountStore interface {
	domain.LoadAccountPort
	domain.UpdateAccountStatePort
	domain.AccountRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	// 1. Storage
	store, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// 2. Account lock
	accountLock, closeLock, err := buildLock(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLock()

	// 3. Services (use cases)
	policy := domain.NewTransferPolicy(cfg.MaxTransferAmount)
	sendMoneyService := transfer.NewSendMoneyService(store, accountLock, store, policy, log.Named("transfer"))
	sendMoneyService.BaselineWindow = cfg.BaselineWindow
	getBalanceService := balance.NewGetAccountBalanceService(store)

	// Bootstrap accounts
	if err := seeder.NewAccountSeeder(store, store, store, accountLock, log.Named("seeder")).Seed(ctx, cfg.SeedAccounts); err != nil {
		return fmt.Errorf("failed to seed accounts: %w", err)
	}

	// 4. gRPC server with auth, health and reflection
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(log.Named("grpc")),
			grpcadapter.AuthInterceptor(cfg.APIToken),
		),
	)
	grpcadapter.RegisterTransferServiceServer(grpcServer, grpcadapter.NewServer(sendMoneyService, getBalanceService))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(grpcadapter.TransferServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	// 5. HTTP server
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpadapter.NewRouter(httpadapter.NewHandler(sendMoneyService, getBalanceService, log.Named("http")), cfg.APIToken),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 2)

	go func() {
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			serveErr <- fmt.Errorf("gRPC server: %w", err)
		}
	}()

	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	// Graceful shutdown
	err = waitForShutdown(serveErr, log)
	healthServer.Shutdown()
	shutdown(grpcServer, httpServer, log)
	return err
}

// buildStore connects to PostgreSQL and migrates it when a database is configured,
// otherwise accounts live in memory
func buildStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (accountStore, func(), error) {
	var guard domain.DepositGuard
	if cfg.MaxAccountBalance != nil {
		guard = domain.MaxBalanceGuard(*cfg.MaxAccountBalance)
	}

	if !cfg.UsesDatabase() {
		log.Warn("no database configured, accounts are kept in memory")
		return memory.NewAccountStore(guard), func() {}, nil
	}

	db, err := connectWithRetry(ctx, cfg.DBConnStr, log)
	if err != nil {
		return nil, nil, err
	}

	if err := postgres.Migrate(db, log.Named("migrate")); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", zap.Error(err))
		}
	}

	return postgres.NewAccountRepository(db, guard), closeDB, nil
}

// connectWithRetry gives Postgres a few seconds to come up when started alongside the server
func connectWithRetry(ctx context.Context, connStr string, log *zap.Logger) (*postgres.DB, error) {
	const attempts = 5

	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := postgres.NewDB(ctx, connStr)
		if err == nil {
			return db, nil
		}
		lastErr = err
		log.Warn("database not ready", zap.Int("attempt", i), zap.Error(err))
		time.Sleep(time.Duration(i) * time.Second)
	}

	return nil, fmt.Errorf("failed to connect to database: %w", lastErr)
}

func buildLock(ctx context.Context, cfg *config.Config, log *zap.Logger) (domain.AccountLock, func(), error) {
	if cfg.LockBackend != config.LockBackendRedis {
		log.Info("using in-process account locks", zap.Duration("timeout", cfg.LockTimeout))
		return memlock.NewAccountLock(cfg.LockTimeout), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	opts := redislock.DefaultOptions()
	opts.Expiry = cfg.LockExpiry
	opts.Tries = cfg.LockTries
	opts.RetryDelay = cfg.LockRetryDelay

	lock, err := redislock.NewAccountLock(client, opts, log.Named("redislock"))
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	log.Info("using redis account locks", zap.String("addr", cfg.RedisAddr))

	return lock, func() { _ = client.Close() }, nil
}

// waitForShutdown waits for SIGTERM or SIGINT, or for a server to fail
func waitForShutdown(serveErr <-chan error, log *zap.Logger) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.Info("received signal, shutting down gracefully", zap.Stringer("signal", sig))
		return nil
	case err := <-serveErr:
		return err
	}
}

func shutdown(grpcServer *grpclib.Server, httpServer *http.Server, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	log.Info("HTTP server stopped")

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		grpcServer.Stop()
	}
	log.Info("gRPC server stopped")
}
