package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Shamsear/ssleague-sub021/internal/auction"
	"github.com/Shamsear/ssleague-sub021/internal/config"
	"github.com/Shamsear/ssleague-sub021/internal/database"
	"github.com/Shamsear/ssleague-sub021/internal/database/repositories"
	"github.com/Shamsear/ssleague-sub021/internal/ledger"
	"github.com/Shamsear/ssleague-sub021/internal/logger"
	"github.com/Shamsear/ssleague-sub021/internal/notify"
)

// One-shot sweep over stale settlement intents. Meant for operators; the
// server runs the same reconciler on a timer.
func main() {
	configPath := "config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	slog.SetDefault(slog.New(logger.NewHandler("Reconcile")))

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.New(ctx, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		slog.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	ledgers, err := ledger.NewStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		slog.Error("Failed to connect to ledger store", slog.Any("error", err))
		os.Exit(1)
	}
	defer ledgers.Close(ctx)

	txnRepo := repositories.NewTransactionRepository(db.BunDB())
	tiebreakerRepo := repositories.NewTiebreakerRepository(db.BunDB())

	// Notifications stay off during operator runs.
	settler := auction.NewSettler(txnRepo, ledgers, notify.NewDispatcher(nil, nil))
	reconciler := auction.NewReconciler(txnRepo, tiebreakerRepo, ledgers, settler, cfg.Auction.ReconcileAfter())

	replayed, err := reconciler.Run(ctx)
	if err != nil {
		slog.Error("Reconcile failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("Reconcile completed", slog.Int("replayed", replayed))
}
