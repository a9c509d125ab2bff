package services

import (
	"testing"

	"gorm.io/gorm"

	"finledger/internal/lock"
	"finledger/internal/models"
	"finledger/internal/testutil"
)

// testServices wires every service against one test database.
type testServices struct {
	db           *gorm.DB
	store        LedgerStorer
	reconciler   Reconciler
	locks        *lock.Table
	accounts     AccountServicer
	transactions TransactionServicer
	transfers    TransferServicer
	investments  InvestmentServicer
	integrity    IntegrityServicer
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	db := testutil.SetupTestDB(t)
	store := NewLedgerStore(db)
	reconciler := NewReconciler(db, store)
	locks := lock.NewTable()

	return &testServices{
		db:           db,
		store:        store,
		reconciler:   reconciler,
		locks:        locks,
		accounts:     NewAccountService(db, store, reconciler, locks),
		transactions: NewTransactionService(db, store, reconciler, locks),
		transfers:    NewTransferService(db, store, reconciler, locks),
		investments:  NewInvestmentService(db, store, reconciler, locks),
		integrity:    NewIntegrityService(db, reconciler, locks, 0),
	}
}

func bankBalance(t *testing.T, db *gorm.DB, accountID string) int64 {
	t.Helper()
	var account models.Account
	if err := db.Unscoped().Where("id = ?", accountID).First(&account).Error; err != nil {
		t.Fatalf("failed to load account %s: %v", accountID, err)
	}
	return account.Balance
}

func loadCard(t *testing.T, db *gorm.DB, cardID string) models.CreditCard {
	t.Helper()
	var card models.CreditCard
	if err := db.Unscoped().Where("id = ?", cardID).First(&card).Error; err != nil {
		t.Fatalf("failed to load card %s: %v", cardID, err)
	}
	return card
}

func ledgerSum(t *testing.T, db *gorm.DB, accountID string) int64 {
	t.Helper()
	var sum int64
	if err := db.Model(&models.Transaction{}).
		Where("account_id = ?", accountID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error; err != nil {
		t.Fatalf("failed to sum ledger: %v", err)
	}
	return sum
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return n
}

func strPtr(s string) *string { return &s }
