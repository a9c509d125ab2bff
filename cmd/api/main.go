package main

import (
	"fmt"
	"os"

	"finledger/internal/config"
	"finledger/internal/database"
	"finledger/internal/logger"
	"finledger/internal/server"
)

// @title           finledger API
// @version         1.0
// @description     Ledger consistency service for a personal finance tracker: accounts, transfers, investments and balance reconciliation.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and a device token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	svc := server.NewServices(dbManager.DB(), appConfig)

	// Validate the ledger before accepting requests
	report, err := svc.Integrity.RunStartupCheck(appConfig.StartupAutoFix)
	if err != nil {
		return fmt.Errorf("startup integrity check failed: %w", err)
	}
	if !report.Healthy() {
		log.Warnw("ledger has unresolved issues",
			"orphaned_transactions", report.OrphanedTransactions,
			"balance_discrepancies", report.BalanceDiscrepancies,
		)
	}

	router := server.NewRouter(appConfig, svc)

	log.Infof("Starting finledger server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
