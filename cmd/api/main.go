// Package main provides the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/narvanalabs/boardroom/internal/api"
	"github.com/narvanalabs/boardroom/internal/api/health"
	"github.com/narvanalabs/boardroom/internal/auth"
	"github.com/narvanalabs/boardroom/internal/boards"
	"github.com/narvanalabs/boardroom/internal/directory"
	"github.com/narvanalabs/boardroom/internal/events"
	grpcserver "github.com/narvanalabs/boardroom/internal/grpc"
	"github.com/narvanalabs/boardroom/internal/reconcile"
	"github.com/narvanalabs/boardroom/internal/shutdown"
	"github.com/narvanalabs/boardroom/internal/store"
	"github.com/narvanalabs/boardroom/internal/store/memory"
	pgstore "github.com/narvanalabs/boardroom/internal/store/postgres"
	"github.com/narvanalabs/boardroom/internal/telemetry"
	"github.com/narvanalabs/boardroom/pkg/config"
	"github.com/narvanalabs/boardroom/pkg/logger"
	"github.com/sourcegraph/conc/pool"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	log := logger.New(logger.Options{
		Level:      logger.ParseLevel(cfg.Log.Level),
		JSON:       cfg.Log.Format != "text",
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout),
		shutdown.WithLogger(log.WithComponent("shutdown").Logger),
	)
	// Registered first so it is closed last.
	coordinator.Register(shutdown.NewCloserComponent("logger", log))

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	shutdownTracing, err := telemetry.Setup(ctx, "boardroom-api", api.Version, cfg.OTelEndpoint)
	if err != nil {
		log.Error("failed to set up tracing", "error", err)
		return 1
	}
	coordinator.Register(shutdown.NewFuncComponent("telemetry", shutdownTracing))

	st, err := openStore(ctx, cfg, log.Logger)
	if err != nil {
		log.Error("failed to open store", "error", err, "driver", cfg.StoreDriver)
		return 1
	}
	coordinator.Register(shutdown.NewCloserComponent("store", st))

	broker := events.NewBroker(log.Logger)
	dir := directory.New(st.Users(), cfg.Membership.SearchLimit, log.Logger)
	reconciler := reconcile.NewService(st, dir, broker, reconcile.Config{
		CascadeConcurrency:  cfg.Membership.CascadeConcurrency,
		LedgerRetryAttempts: cfg.Membership.LedgerRetryAttempts,
	}, log.Logger)
	authService := auth.NewService(&auth.Config{
		JWTSecret:   []byte(cfg.JWTSecret),
		TokenExpiry: cfg.JWTExpiry,
	}, st.Users(), log.Logger)

	checker := health.NewChecker(st, api.Version)
	checker.Register("events", func(context.Context) health.ComponentStatus {
		return health.ComponentStatus{
			Status:  health.StatusHealthy,
			Message: fmt.Sprintf("%d subscribers", broker.SubscriberCount()),
		}
	})

	server := api.NewServer(cfg, api.Deps{
		Auth:      authService,
		Reconcile: reconciler,
		Boards:    boards.NewService(st, log.Logger),
		Directory: dir,
		Broker:    broker,
		Health:    checker,
	}, log.Logger)

	grpcCfg := grpcserver.DefaultConfig()
	grpcCfg.Port = cfg.GRPCPort
	healthServer, err := grpcserver.NewServer(grpcCfg, checker, log.WithComponent("grpc").Logger)
	if err != nil {
		log.Error("failed to create gRPC server", "error", err)
		return 1
	}
	coordinator.Register(shutdown.NewFuncComponent("grpc", healthServer.Stop))
	coordinator.Register(shutdown.NewFuncComponent("api", server.Shutdown))

	servers := pool.New().WithErrors().WithContext(ctx).WithCancelOnError()
	servers.Go(server.Start)
	servers.Go(healthServer.Start)

	failed := make(chan error, 1)
	go func() {
		err := servers.Wait()
		failed <- err
		cancel(err)
	}()

	log.Info("boardroom API running",
		"host", cfg.APIHost,
		"port", cfg.APIPort,
		"grpc_port", cfg.GRPCPort,
		"store", cfg.StoreDriver,
	)

	coordinator.WaitForSignal(ctx)
	coordinator.Wait()

	code := coordinator.ExitCode()
	if err := <-failed; err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err)
		code = 1
	}
	return code
}

// openStore opens the configured store, applying migrations first when asked.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory store, data will not survive a restart")
		return memory.New(), nil
	}

	st, err := pgstore.NewPostgresStore(pgstore.DefaultConfig(cfg.DatabaseDSN), log)
	if err != nil {
		return nil, err
	}
	if cfg.MigrateOnStart {
		if err := pgstore.Migrate(ctx, st.DB(), log); err != nil {
			st.Close()
			return nil, err
		}
	}
	return st, nil
}
