package services

import (
	"testing"

	"finledger/internal/models"
	"finledger/internal/pagination"
	"finledger/internal/testutil"
)

func TestCreateAccount(t *testing.T) {
	t.Run("with_initial_balance", func(t *testing.T) {
		svc := newTestServices(t)

		account, err := svc.accounts.CreateAccount(CreateAccountRequest{
			Name:           "Payroll",
			BankName:       "BBVA",
			Type:           models.AccountTypeChecking,
			Currency:       "mxn",
			InitialBalance: 150000,
		})
		testutil.AssertNoError(t, err)

		if account.ID == "" {
			t.Fatal("expected an ID")
		}
		if account.Currency != "MXN" {
			t.Errorf("expected currency MXN, got %s", account.Currency)
		}
		if account.Balance != 150000 || bankBalance(t, svc.db, account.ID) != 150000 {
			t.Errorf("expected balance 150000, got %d", account.Balance)
		}

		txns, err := svc.store.ByAccount(nil, account.ID)
		testutil.AssertNoError(t, err)
		if len(txns) != 1 || txns[0].Description != "Initial balance" || txns[0].Type != models.TransactionTypeDeposit {
			t.Errorf("expected one opening deposit, got %+v", txns)
		}
	})

	t.Run("overdrawn_opening_balance", func(t *testing.T) {
		svc := newTestServices(t)

		account, err := svc.accounts.CreateAccount(CreateAccountRequest{Name: "Overdraft", InitialBalance: -2000})
		testutil.AssertNoError(t, err)

		if account.Balance != -2000 {
			t.Errorf("expected balance -2000, got %d", account.Balance)
		}
		if account.Type != models.AccountTypeChecking || account.Currency != "USD" {
			t.Errorf("expected checking/USD defaults, got %s/%s", account.Type, account.Currency)
		}
	})

	t.Run("zero_balance_has_no_transaction", func(t *testing.T) {
		svc := newTestServices(t)

		account, err := svc.accounts.CreateAccount(CreateAccountRequest{Name: "Empty"})
		testutil.AssertNoError(t, err)
		if got := ledgerSum(t, svc.db, account.ID); got != 0 {
			t.Errorf("expected empty ledger, got %d", got)
		}
	})

	t.Run("invalid_input", func(t *testing.T) {
		svc := newTestServices(t)

		_, err := svc.accounts.CreateAccount(CreateAccountRequest{Name: ""})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.accounts.CreateAccount(CreateAccountRequest{Name: "X", Type: "brokerage"})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.accounts.CreateAccount(CreateAccountRequest{Name: "X", Currency: "ZZZ"})
		testutil.AssertAppError(t, err, "INVALID_CURRENCY")
	})
}

func TestCreateCreditCard(t *testing.T) {
	t.Run("with_opening_debt", func(t *testing.T) {
		svc := newTestServices(t)

		card, err := svc.accounts.CreateCreditCard(CreateCreditCardRequest{
			Name:        "Gold",
			CreditLimit: 10000,
			InitialDebt: 2000,
			CutoffDay:   20,
			PaymentDay:  10,
		})
		testutil.AssertNoError(t, err)

		if card.CurrentBalance != 2000 || card.AvailableCredit != 8000 {
			t.Errorf("expected 2000/8000, got %d/%d", card.CurrentBalance, card.AvailableCredit)
		}
		stored := loadCard(t, svc.db, card.ID)
		if stored.CurrentBalance != 2000 || stored.AvailableCredit != 8000 {
			t.Errorf("expected stored 2000/8000, got %d/%d", stored.CurrentBalance, stored.AvailableCredit)
		}
		if got := ledgerSum(t, svc.db, card.ID); got != -2000 {
			t.Errorf("expected an opening charge of -2000, got %d", got)
		}
	})

	t.Run("no_debt", func(t *testing.T) {
		svc := newTestServices(t)

		card, err := svc.accounts.CreateCreditCard(CreateCreditCardRequest{Name: "Blue", CreditLimit: 5000})
		testutil.AssertNoError(t, err)
		if card.AvailableCredit != 5000 || card.CurrentBalance != 0 {
			t.Errorf("expected 0/5000, got %d/%d", card.CurrentBalance, card.AvailableCredit)
		}
	})

	t.Run("invalid_input", func(t *testing.T) {
		svc := newTestServices(t)

		_, err := svc.accounts.CreateCreditCard(CreateCreditCardRequest{Name: "X", CreditLimit: -1})
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.accounts.CreateCreditCard(CreateCreditCardRequest{Name: "X", CreditLimit: 100, CutoffDay: 32})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestUpdateAccount(t *testing.T) {
	t.Run("metadata", func(t *testing.T) {
		svc := newTestServices(t)
		account := testutil.CreateTestAccount(t, svc.db, 1000)

		name := "Renamed"
		accountType := models.AccountTypeSavings
		updated, err := svc.accounts.UpdateAccount(account.ID, AccountUpdateFields{Name: &name, Type: &accountType})
		testutil.AssertNoError(t, err)

		if updated.Name != "Renamed" || updated.Type != models.AccountTypeSavings {
			t.Errorf("unexpected account %+v", updated)
		}
		if updated.Balance != 1000 {
			t.Errorf("balance should be untouched, got %d", updated.Balance)
		}
	})

	t.Run("deactivate_hides_from_list", func(t *testing.T) {
		svc := newTestServices(t)
		account := testutil.CreateTestAccount(t, svc.db, 0)
		testutil.CreateTestAccount(t, svc.db, 0)

		inactive := false
		_, err := svc.accounts.UpdateAccount(account.ID, AccountUpdateFields{IsActive: &inactive})
		testutil.AssertNoError(t, err)

		active, err := svc.accounts.ListAccounts(pagination.PageRequest{}, false)
		testutil.AssertNoError(t, err)
		if active.TotalItems != 1 {
			t.Errorf("expected 1 active account, got %d", active.TotalItems)
		}
		all, err := svc.accounts.ListAccounts(pagination.PageRequest{}, true)
		testutil.AssertNoError(t, err)
		if all.TotalItems != 2 {
			t.Errorf("expected 2 accounts, got %d", all.TotalItems)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		svc := newTestServices(t)
		name := "x"
		_, err := svc.accounts.UpdateAccount("missing", AccountUpdateFields{Name: &name})
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})
}

func TestUpdateCreditCard(t *testing.T) {
	t.Run("limit_change_reconciles", func(t *testing.T) {
		svc := newTestServices(t)
		card := testutil.CreateTestCreditCard(t, svc.db, 10000, 3000)

		limit := int64(20000)
		updated, err := svc.accounts.UpdateCreditCard(card.ID, CreditCardUpdateFields{CreditLimit: &limit})
		testutil.AssertNoError(t, err)

		if updated.CreditLimit != 20000 || updated.AvailableCredit != 17000 || updated.CurrentBalance != 3000 {
			t.Errorf("expected 20000/17000/3000, got %d/%d/%d", updated.CreditLimit, updated.AvailableCredit, updated.CurrentBalance)
		}
	})

	t.Run("negative_limit", func(t *testing.T) {
		svc := newTestServices(t)
		card := testutil.CreateTestCreditCard(t, svc.db, 10000, 0)

		limit := int64(-5)
		_, err := svc.accounts.UpdateCreditCard(card.ID, CreditCardUpdateFields{CreditLimit: &limit})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("not_found", func(t *testing.T) {
		svc := newTestServices(t)
		name := "x"
		_, err := svc.accounts.UpdateCreditCard("missing", CreditCardUpdateFields{Name: &name})
		testutil.AssertAppError(t, err, "CREDIT_CARD_NOT_FOUND")
	})
}

func TestDeleteAccount(t *testing.T) {
	svc := newTestServices(t)
	account := testutil.CreateTestAccount(t, svc.db, 1000)
	card := testutil.CreateTestCreditCard(t, svc.db, 1000, 0)

	testutil.AssertNoError(t, svc.accounts.DeleteAccount(account.ID))
	testutil.AssertNoError(t, svc.accounts.DeleteCreditCard(card.ID))

	_, err := svc.accounts.GetAccountByID(account.ID)
	testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	_, err = svc.accounts.GetCreditCardByID(card.ID)
	testutil.AssertAppError(t, err, "CREDIT_CARD_NOT_FOUND")

	err = svc.accounts.DeleteAccount(account.ID)
	testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")

	// The ledger is left for the integrity validator.
	if got := ledgerSum(t, svc.db, account.ID); got != 1000 {
		t.Errorf("expected transactions to remain, sum %d", got)
	}
}

func TestListCreditCards(t *testing.T) {
	svc := newTestServices(t)
	testutil.CreateTestCreditCard(t, svc.db, 1000, 0)
	testutil.CreateTestCreditCard(t, svc.db, 2000, 0)

	page, err := svc.accounts.ListCreditCards(pagination.PageRequest{}, false)
	testutil.AssertNoError(t, err)
	if page.TotalItems != 2 {
		t.Errorf("expected 2 cards, got %d", page.TotalItems)
	}
}
