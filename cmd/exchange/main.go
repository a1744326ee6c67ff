package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voltexchange/voltex/params"
	"github.com/voltexchange/voltex/pkg/api"
	"github.com/voltexchange/voltex/pkg/app"
	"github.com/voltexchange/voltex/pkg/asset"
	"github.com/voltexchange/voltex/pkg/engine"
	"github.com/voltexchange/voltex/pkg/engine/book"
	"github.com/voltexchange/voltex/pkg/funds"
	"github.com/voltexchange/voltex/pkg/storage"
	"github.com/voltexchange/voltex/pkg/users"
	"github.com/voltexchange/voltex/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	// Setup logging (write to both console and file)
	logger, err := util.NewLoggerWithFile(cfg.Log.File)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Log.File)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Stores ----
	// Reservations and users live in postgres. Without a DSN the exchange
	// still trades, with in-memory reservations and no user lookups.
	var (
		fundStore funds.Store
		userStore *users.Store
	)
	if cfg.Store.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			sugar.Fatalw("postgres_connect_failed", "err", err)
		}
		defer pool.Close()
		fundStore = funds.NewPgStore(pool)
		userStore = users.NewStore(pool)
		sugar.Infow("postgres_connected")
	} else {
		fundStore = funds.NewMemStore()
		sugar.Warnw("database_disabled", "reason", "DATABASE_URL not set")
	}

	journal, err := storage.NewJournal(cfg.Store.PebblePath, sugar)
	if err != nil {
		sugar.Fatalw("journal_open_failed", "path", cfg.Store.PebblePath, "err", err)
	}

	// ---- Funds coordinator ----
	coordinator := funds.NewCoordinator(fundStore, sugar)

	// Holds left active by a previous run can never be committed now.
	if n, err := coordinator.RevertStale(ctx, 0); err != nil {
		sugar.Errorw("stale_reservation_sweep_failed", "err", err)
	} else if n > 0 {
		sugar.Infow("stale_reservations_reverted", "count", n)
	}

	// ---- Trading engine ----
	registry := asset.NewRegistry(asset.InternalAssetList()...)

	// The server is wired after Spawn; no orders flow until it listens.
	var apiServer *api.Server
	handle := engine.Spawn(registry, engine.Options{
		ChannelCapacity: cfg.Engine.ChannelCapacity,
		Logger:          sugar,
		OnExecution: func(ex book.Execution) {
			journal.Append(ex)
			if apiServer != nil {
				apiServer.BroadcastTrade(ex)
			}
		},
	})

	cx := &app.AppCx{
		Engine:     handle,
		Funds:      coordinator,
		Assets:     registry,
		Users:      userStore,
		Journal:    journal,
		Log:        sugar,
		EngineWait: cfg.Web.EngineWait,
	}

	// ---- API Server ----
	apiServer = api.NewServer(cx)
	go func() {
		if err := apiServer.Start(cfg.Web.Addr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sugar.Infow("exchange_started",
		"addr", cfg.Web.Addr,
		"assets", len(registry.List()),
		"engine_wait_ms", cfg.Web.EngineWait.Milliseconds())

	<-ctx.Done()

	// Drain accepted commands, then flush the journal.
	sugar.Infow("shutdown_started")
	handle.Shutdown()
	if err := journal.Close(); err != nil {
		sugar.Errorw("journal_close_failed", "err", err)
	}
	sugar.Infow("shutdown_complete")
}
