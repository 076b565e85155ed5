package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/solplay/service/config"
	"github.com/brojonat/solplay/service/db"
	"github.com/brojonat/solplay/service/journal"
	"github.com/brojonat/solplay/service/metrics"
	natspkg "github.com/brojonat/solplay/service/nats"
	"github.com/brojonat/solplay/service/server"
	"github.com/brojonat/solplay/service/solana"
	"github.com/brojonat/solplay/service/temporal"
	"github.com/jackc/pgx/v5/pgxpool"
)

var version = "dev"

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"network", cfg.SolanaNetwork,
		"log_level", cfg.LogLevel,
		"version", version,
	)
	server.Version = version

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsCollector := metrics.NewMetrics(nil) // nil uses default registry

	network, err := solana.ParseNetwork(cfg.SolanaNetwork)
	if err != nil {
		logger.Error("invalid network", "error", err)
		os.Exit(1)
	}
	rpcURL, err := solana.SelectRandomEndpoint(cfg.SolanaRPCURLs)
	if err != nil {
		logger.Error("failed to select RPC endpoint", "error", err)
		os.Exit(1)
	}
	solanaClient := solana.NewClient(
		solana.NewRPCClient(rpcURL),
		network,
		metricsCollector,
		logger,
		solana.WithConfirmTiming(cfg.ConfirmTimeout, cfg.ConfirmPollInterval),
	)
	logger.Info("initialized solana RPC client", "network", network, "total_endpoints", len(cfg.SolanaRPCURLs))

	deps := server.Deps{Playground: solanaClient}

	if cfg.PayerKeypairPath != "" {
		payer, err := solana.LoadKeypair(cfg.PayerKeypairPath)
		if err != nil {
			logger.Error("failed to load payer keypair", "error", err)
			os.Exit(1)
		}
		deps.Payer = payer
		logger.Info("loaded payer keypair", "payer", payer.PublicKey().String())
	} else {
		logger.Warn("PAYER_KEYPAIR_PATH not set, transfer and token endpoints are disabled")
	}

	// Activity log (optional)
	var store journal.Store
	if cfg.DatabaseURL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		if err := dbPool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		dbStore := db.NewStore(dbPool, metricsCollector)
		if err := dbStore.Migrate(ctx); err != nil {
			logger.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to database")
		store = dbStore
		deps.Activities = dbStore
	} else {
		logger.Warn("DATABASE_URL not set, activity log is disabled")
	}

	// Activity events (optional)
	var publisher natspkg.Publisher
	if cfg.NATSURL != "" {
		natsPublisher, err := natspkg.NewPublisher(cfg.NATSURL, metricsCollector, logger)
		if err != nil {
			logger.Error("failed to create NATS publisher", "error", err)
			os.Exit(1)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher

		ssePublisher, err := server.NewSSEPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to create SSE publisher", "error", err)
			os.Exit(1)
		}
		defer ssePublisher.Close()
		deps.SSEPublisher = ssePublisher
		logger.Info("connected to NATS", "url", cfg.NATSURL)
	} else {
		logger.Warn("NATS_URL not set, activity streaming is disabled")
	}

	deps.Recorder = journal.New(store, publisher, logger)

	temporalClient, err := temporal.NewClient(
		cfg.TemporalHost,
		cfg.TemporalNamespace,
		cfg.TemporalTaskQueue,
		logger,
	)
	if err != nil {
		// Send workflows answer 503 until the server is restarted with Temporal reachable.
		logger.Warn("failed to connect to temporal, send workflows are disabled", "error", err)
	} else {
		defer temporalClient.Close()
		deps.Workflows = temporalClient
		logger.Info("connected to temporal",
			"host", cfg.TemporalHost,
			"namespace", cfg.TemporalNamespace,
			"task_queue", cfg.TemporalTaskQueue,
		)
	}

	httpServer := server.New(cfg.ServerAddr, cfg, deps, metricsCollector, logger)
	if err := httpServer.WithTemplates(); err != nil {
		logger.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
