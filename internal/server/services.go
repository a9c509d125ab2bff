package server

import (
	"gorm.io/gorm"

	"finledger/internal/config"
	"finledger/internal/lock"
	"finledger/internal/services"
)

// Services is the set of ledger services sharing one store, reconciler and
// lock table.
type Services struct {
	Accounts     services.AccountServicer
	Transactions services.TransactionServicer
	Transfers    services.TransferServicer
	Investments  services.InvestmentServicer
	Integrity    services.IntegrityServicer
	Audit        services.AuditServicer
}

// NewServices builds every service on top of db.
func NewServices(db *gorm.DB, cfg *config.Config) *Services {
	store := services.NewLedgerStore(db)
	reconciler := services.NewReconciler(db, store)
	locks := lock.NewTable()

	return &Services{
		Accounts:     services.NewAccountService(db, store, reconciler, locks),
		Transactions: services.NewTransactionService(db, store, reconciler, locks),
		Transfers:    services.NewTransferService(db, store, reconciler, locks),
		Investments:  services.NewInvestmentService(db, store, reconciler, locks),
		Integrity:    services.NewIntegrityService(db, reconciler, locks, cfg.ReportCacheTTL),
		Audit:        services.NewAuditService(db),
	}
}
