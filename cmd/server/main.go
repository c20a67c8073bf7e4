package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/Shamsear/ssleague-sub021/internal/archive"
	"github.com/Shamsear/ssleague-sub021/internal/auction"
	"github.com/Shamsear/ssleague-sub021/internal/broadcast"
	"github.com/Shamsear/ssleague-sub021/internal/config"
	"github.com/Shamsear/ssleague-sub021/internal/database"
	"github.com/Shamsear/ssleague-sub021/internal/database/repositories"
	"github.com/Shamsear/ssleague-sub021/internal/ledger"
	"github.com/Shamsear/ssleague-sub021/internal/logger"
	"github.com/Shamsear/ssleague-sub021/internal/notify"
	"github.com/Shamsear/ssleague-sub021/internal/web/handlers"
	"github.com/Shamsear/ssleague-sub021/internal/web/middleware"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := "config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	customHandler := logger.NewHandler("SSLeague")
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting auction backend",
		slog.String("version", version),
		slog.String("commit", commit))

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	slog.Info("Connecting to database...")
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
	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize schema", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("Database connected")

	ledgers, err := ledger.NewStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		slog.Error("Failed to connect to ledger store", slog.Any("error", err))
		os.Exit(1)
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("Failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
	}

	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		nc, err = nats.Connect(cfg.NATS.URL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(-1))
		if err != nil {
			slog.Error("Failed to connect to NATS", slog.Any("error", err))
			os.Exit(1)
		}
	}

	roundRepo := repositories.NewRoundRepository(db.BunDB())
	bidRepo := repositories.NewBidRepository(db.BunDB())
	tiebreakerRepo := repositories.NewTiebreakerRepository(db.BunDB())
	txnRepo := repositories.NewTransactionRepository(db.BunDB())
	teamRepo := repositories.NewTeamRepository(db.BunDB())
	playerRepo := repositories.NewPlayerRepository(db.BunDB())

	notifier := notify.NewDispatcher(nc, rdb)
	settler := auction.NewSettler(txnRepo, ledgers, notifier)
	detector := auction.NewDetector(bidRepo, tiebreakerRepo, playerRepo, teamRepo,
		settler, notifier, cfg.Auction.TiebreakerWindow())
	coordinator := auction.NewCoordinator(tiebreakerRepo, bidRepo, roundRepo, settler, notifier)
	roundManager := auction.NewRoundManager(roundRepo, bidRepo, playerRepo, tiebreakerRepo,
		ledgers, detector, coordinator, notifier)
	reconciler := auction.NewReconciler(txnRepo, tiebreakerRepo, ledgers, settler, cfg.Auction.ReconcileAfter())

	var archiver *archive.Exporter
	if cfg.Spaces.Bucket != "" {
		archiver, err = archive.NewExporter(cfg.Spaces.Key, cfg.Spaces.Secret,
			cfg.Spaces.Region, cfg.Spaces.Bucket, cfg.Spaces.AuditRoot)
		if err != nil {
			slog.Error("Failed to configure audit archive", slog.Any("error", err))
			os.Exit(1)
		}
	}

	hub := broadcast.NewHub()
	go hub.Run()

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	if rdb != nil {
		subscriber := broadcast.NewSubscriber(rdb, hub)
		go func() {
			if err := subscriber.Listen(runCtx); err != nil && runCtx.Err() == nil {
				logger.LogError("Broadcast subscriber stopped", err)
			}
		}()
	}

	go reconciler.RunLoop(runCtx, cfg.Auction.ReconcileEvery())

	webApp := &handlers.WebApp{
		Rounds:      roundManager,
		Coordinator: coordinator,
		Reconciler:  reconciler,
		Teams:       teamRepo,
		Players:     playerRepo,
		Bids:        bidRepo,
		Tiebreakers: tiebreakerRepo,
		Txns:        txnRepo,
		Ledgers:     ledgers,
		Hub:         hub,
		Archiver:    archiver,
		Version:     version,
		Commit:      commit,
	}

	app := fiber.New(fiber.Config{
		AppName:      "SSLeague Auction API",
		ServerHeader: "SSLeague",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	app.Use(recover.New())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Admin-Token",
	}))
	app.Use(middleware.LoggingMiddleware())

	setupRoutes(app, webApp, cfg, teamRepo)

	address := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	logger.LogSystem("Starting server", slog.String("address", address))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := app.Listen(address); err != nil {
			slog.Error("Failed to start server", slog.Any("error", err))
		}
	}()

	<-sig
	slog.Info("Shutting down...")
	stopRun()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", slog.Any("error", err))
	}

	if err := ledgers.Close(shutdownCtx); err != nil {
		slog.Error("Ledger store close error", slog.Any("error", err))
	}
	if rdb != nil {
		rdb.Close()
	}
	if nc != nil {
		nc.Drain()
	}
	db.Close()

	logger.LogSystem("Shutdown complete")
}

// setupRoutes configures all application routes
func setupRoutes(app *fiber.App, webApp *handlers.WebApp, cfg *config.Config, teams repositories.TeamRepository) {
	app.Get("/health", handlers.HealthCheck(webApp))

	api := app.Group("/api")
	api.Use(middleware.AuthRequired(teams))

	rounds := api.Group("/rounds")
	rounds.Get("/:id", handlers.RoundsStatus(webApp))
	rounds.Get("/:id/tiebreakers", handlers.RoundTiebreakersList(webApp))
	rounds.Post("/:id/bids", handlers.BidsPlace(webApp))

	api.Delete("/bids/:id", handlers.BidsCancel(webApp))

	tiebreakers := api.Group("/tiebreakers")
	tiebreakers.Get("/", handlers.TiebreakersList(webApp))
	tiebreakers.Get("/:id", handlers.TiebreakersDetail(webApp))
	tiebreakers.Post("/:id/bids", handlers.TiebreakersBid(webApp))
	tiebreakers.Post("/:id/withdraw", handlers.TiebreakersWithdraw(webApp))

	api.Get("/teams/:id/ledger", handlers.LedgerDetail(webApp))

	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired(cfg.Web.AdminToken))
	admin.Post("/rounds", handlers.RoundsCreate(webApp))
	admin.Post("/rounds/:id/start", handlers.RoundsStart(webApp))
	admin.Post("/teams", handlers.TeamsCreate(webApp))
	admin.Post("/players", handlers.PlayersCreate(webApp))
	admin.Post("/ledgers", handlers.LedgersCreate(webApp))
	admin.Post("/reconcile", handlers.ReconcileRun(webApp))
	admin.Post("/tiebreakers/:id/reconcile", handlers.TiebreakerReconcile(webApp))
	admin.Get("/seasons/:id/transactions", handlers.TransactionsList(webApp))
	admin.Post("/seasons/:id/archive", handlers.ArchiveSeason(webApp))

	ws := app.Group("/ws")
	ws.Use(handlers.WebsocketUpgrade())
	ws.Get("/seasons/:id", handlers.SeasonFeed(webApp))

	app.Use(func(c *fiber.Ctx) error {
		slog.Warn("No route matched",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "route not found",
		})
	})
}
