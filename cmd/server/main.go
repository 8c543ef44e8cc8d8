package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/adapter/cache"
	grpcadapter "github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/adapter/grpc"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/adapter/repository/postgres"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/config"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/domain"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/logging"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/currency"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/history"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/ledger"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/loader"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/networth"
	"github.com/ZOMBiEZ4GIT/Project-Mjolnir-sub000/internal/usecase/performance"
)

func main() {
	configPath := flag.String("config", os.Getenv("MJOLNIR_CONFIG"), "path to TOML config file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger := logging.New(logging.Config{Level: "info"})
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})

	// 2. Setup Database
	db, err := connectDB(cfg.Database.ConnString(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.InitSchema(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialise schema")
	}

	// 3. Setup price cache (Redis)
	prices, err := cache.NewPriceCache(cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to price cache")
	}
	defer prices.Close()

	// 4. Initialize Repositories (Postgres)
	holdingRepo := postgres.NewHoldingRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	snapshotRepo := postgres.NewSnapshotRepository(db)

	rates, err := rateProvider(cfg, postgres.NewExchangeRateRepository(db))
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid static exchange rates")
	}

	// 5. Initialize Services (Use Cases)
	ld := loader.NewLoader(transactionRepo, snapshotRepo, prices, loader.Settings{
		GatewayTimeout: cfg.Valuation.GetGatewayTimeout(),
		Concurrency:    cfg.Valuation.Concurrency,
	}, logger)

	ledgerService := ledger.NewLedgerService(holdingRepo, transactionRepo, logger)
	netWorthService := networth.NewNetWorthService(holdingRepo, rates, ld, networth.Settings{
		DisplayCurrency:    cfg.DisplayCurrency,
		PriceCacheTTL:      cfg.Valuation.PriceCacheTTL(),
		SnapshotStaleAfter: cfg.Valuation.SnapshotStaleAfter(),
	}, logger)
	performanceService := performance.NewPerformanceService(holdingRepo, rates, ld, performance.Settings{
		DisplayCurrency: cfg.DisplayCurrency,
		Limit:           cfg.Valuation.TopPerformersLimit,
	}, logger)
	historyService := history.NewHistoryService(holdingRepo, rates, ld, history.Settings{
		DisplayCurrency: cfg.DisplayCurrency,
		Months:          cfg.Valuation.HistoryMonths,
	}, logger)

	// 6. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(logger),
			grpcadapter.AuthInterceptor(cfg.Server.APIToken),
		),
	)

	grpcAdapter := grpcadapter.NewServer(ledgerService, netWorthService, performanceService, historyService, logger)
	grpcadapter.RegisterValuationServiceServer(grpcServer, grpcAdapter)

	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.Port)
	if err != nil {
		logger.Fatal().Err(err).Str("port", cfg.Server.Port).Msg("Failed to listen")
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Server.Port).
			Str("display_currency", cfg.DisplayCurrency).
			Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatal().Err(err).Msg("Failed to serve gRPC server")
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer, logger)
}

// connectDB retries the initial connection while PostgreSQL starts up
func connectDB(connStr string, logger zerolog.Logger) (*postgres.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		db, err := postgres.NewDB(connStr)
		if err == nil {
			return db, nil
		}
		lastErr = err
		logger.Warn().Err(err).Int("attempt", attempt).Msg("Database not ready, retrying")
		time.Sleep(2 * time.Second)
	}
	return nil, lastErr
}

// rateProvider serves stored rates first and the configured static table as fallback
func rateProvider(cfg *config.Config, stored domain.ExchangeRateProvider) (domain.ExchangeRateProvider, error) {
	static, err := cfg.RateTable()
	if err != nil {
		return nil, err
	}
	if len(static) == 0 {
		return stored, nil
	}
	return currency.NewChainProvider(stored, currency.NewStaticProvider(static)), nil
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(grpcServer *grpclib.Server, logger zerolog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")

	grpcServer.GracefulStop()
	logger.Info().Msg("gRPC server stopped")
}
