package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"finledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestAccount creates an active checking account. A non-zero balance is
// backed by an opening transaction so the ledger and balance agree.
func CreateTestAccount(t *testing.T, db *gorm.DB, balance int64) *models.Account {
	t.Helper()

	account := &models.Account{
		Name:       fmt.Sprintf("Test Account %d", nextID()),
		BankName:   "Test Bank",
		Type:       models.AccountTypeChecking,
		Currency:   "USD",
		Balance:    balance,
		IsActive:   true,
		LastUpdate: time.Now(),
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}

	if balance != 0 {
		txType := models.TransactionTypeDeposit
		if balance < 0 {
			txType = models.TransactionTypeWithdrawal
		}
		txn := CreateTestTransaction(t, db, account.ID, models.AccountKindBank, txType, balance)
		if err := db.Model(txn).Update("balance", balance).Error; err != nil {
			t.Fatalf("failed to snapshot opening balance: %v", err)
		}
	}
	return account
}

// CreateTestCreditCard creates an active credit card with the given limit. A
// non-zero debt is backed by an opening charge.
func CreateTestCreditCard(t *testing.T, db *gorm.DB, limit, debt int64) *models.CreditCard {
	t.Helper()

	card := &models.CreditCard{
		Name:            fmt.Sprintf("Test Card %d", nextID()),
		BankName:        "Test Bank",
		Currency:        "USD",
		CreditLimit:     limit,
		CurrentBalance:  debt,
		AvailableCredit: limit - debt,
		CutoffDay:       15,
		PaymentDay:      5,
		IsActive:        true,
		LastUpdate:      time.Now(),
	}
	if err := db.Create(card).Error; err != nil {
		t.Fatalf("failed to create test credit card: %v", err)
	}

	if debt != 0 {
		CreateTestTransaction(t, db, card.ID, models.AccountKindCredit, models.TransactionTypeCharge, -debt)
	}
	return card
}

// CreateTestInvestment creates an active investment worth capital, with no
// linked bank transaction.
func CreateTestInvestment(t *testing.T, db *gorm.DB, capital int64) *models.Investment {
	t.Helper()

	start := time.Now().AddDate(0, -1, 0)
	inv := &models.Investment{
		Name:           fmt.Sprintf("Test Investment %d", nextID()),
		Platform:       "Test Platform",
		Type:           models.InvestmentTypeFixedTerm,
		InitialCapital: capital,
		StartDate:      start,
		AnnualRate:     decimal.RequireFromString("10.5"),
		CurrentValue:   capital,
		LastUpdate:     start,
		IsActive:       true,
	}
	if err := db.Create(inv).Error; err != nil {
		t.Fatalf("failed to create test investment: %v", err)
	}
	return inv
}

// CreateTestTransaction inserts a signed ledger entry directly, bypassing the
// services. Balances are not reconciled.
func CreateTestTransaction(t *testing.T, db *gorm.DB, accountID string, kind models.AccountKind, txType models.TransactionType, amount int64) *models.Transaction {
	t.Helper()

	txn := &models.Transaction{
		AccountID:   accountID,
		AccountKind: kind,
		Type:        txType,
		Amount:      amount,
		Description: fmt.Sprintf("Test Transaction %d", nextID()),
		Date:        time.Now(),
	}
	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return txn
}
