package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "finledger/internal/errors"
	"finledger/internal/models"
)

// ledgerAccount is a bank account or credit card resolved by id.
type ledgerAccount struct {
	Kind models.AccountKind
	Bank *models.Account
	Card *models.CreditCard
}

func (a *ledgerAccount) ID() string {
	if a.Kind == models.AccountKindCredit {
		return a.Card.ID
	}
	return a.Bank.ID
}

func (a *ledgerAccount) Active() bool {
	if a.Kind == models.AccountKindCredit {
		return a.Card.IsActive
	}
	return a.Bank.IsActive
}

// Spendable is how much can leave the account: the balance of a bank account
// or the available credit of a card.
func (a *ledgerAccount) Spendable() int64 {
	if a.Kind == models.AccountKindCredit {
		return a.Card.AvailableCredit
	}
	return a.Bank.Balance
}

// findLedgerAccount looks an id up in the table named by kind, or in both
// tables when kind is empty. Soft-deleted rows are not found.
func findLedgerAccount(db *gorm.DB, id string, kind models.AccountKind) (*ledgerAccount, error) {
	if id == "" {
		return nil, apperrors.ErrAccountNotFound
	}

	if kind == "" || kind == models.AccountKindBank {
		var account models.Account
		err := db.Where("id = ?", id).First(&account).Error
		if err == nil {
			return &ledgerAccount{Kind: models.AccountKindBank, Bank: &account}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if kind == models.AccountKindBank {
			return nil, apperrors.ErrAccountNotFound
		}
	}

	var card models.CreditCard
	if err := db.Where("id = ?", id).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &ledgerAccount{Kind: models.AccountKindCredit, Card: &card}, nil
}

// checkSpend verifies an active account can fund amount. It returns the
// business error to report, or nil.
func checkSpend(account *ledgerAccount, amount int64) *apperrors.AppError {
	if !account.Active() {
		return apperrors.ErrAccountInactive
	}
	if account.Spendable() >= amount {
		return nil
	}
	if account.Kind == models.AccountKindCredit {
		return apperrors.ErrExceedsCredit
	}
	return apperrors.ErrInsufficientFunds
}
