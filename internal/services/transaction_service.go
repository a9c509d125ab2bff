package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "finledger/internal/errors"
	"finledger/internal/lock"
	"finledger/internal/models"
	"finledger/internal/pagination"
)

// transactionService handles single-account ledger entries.
type transactionService struct {
	db         *gorm.DB
	store      LedgerStorer
	reconciler Reconciler
	locks      *lock.Table
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, store LedgerStorer, reconciler Reconciler, locks *lock.Table) TransactionServicer {
	return &transactionService{
		db:         db,
		store:      store,
		reconciler: reconciler,
		locks:      locks,
	}
}

// typeAllowed reports whether t may be recorded directly on an account of the
// given kind. Transfer legs are only written by the transfer engine.
func typeAllowed(kind models.AccountKind, t models.TransactionType) bool {
	switch kind {
	case models.AccountKindBank:
		return t == models.TransactionTypeDeposit || t == models.TransactionTypeWithdrawal || t == models.TransactionTypeRefund
	case models.AccountKindCredit:
		return t == models.TransactionTypeCharge || t == models.TransactionTypePayment || t == models.TransactionTypeRefund
	}
	return false
}

// signedAmount applies the ledger sign convention to a positive magnitude.
func signedAmount(t models.TransactionType, amount int64) int64 {
	if t.Outflow() {
		return -amount
	}
	return amount
}

// RecordTransaction records an expense, income or manual movement on one
// account and reconciles it. Funds are not checked.
func (s *transactionService) RecordTransaction(req RecordTransactionRequest) (*models.Transaction, error) {
	if req.AccountID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account ID is required")
	}
	if req.Amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if req.AccountKind != "" && !req.AccountKind.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account kind must be bank or credit")
	}

	// Default date to now if not provided
	if req.Date.IsZero() {
		req.Date = time.Now()
	}

	release := s.locks.Acquire(req.AccountID)
	defer release()

	var result *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		account, err := findLedgerAccount(tx, req.AccountID, req.AccountKind)
		if err != nil {
			return err
		}
		if !account.Active() {
			return apperrors.ErrAccountInactive
		}
		if !typeAllowed(account.Kind, req.Type) {
			return apperrors.ErrInvalidTransactionType
		}

		result, _, err = appendReconciled(tx, s.store, s.reconciler, &models.Transaction{
			AccountID:   account.ID(),
			AccountKind: account.Kind,
			Date:        req.Date,
			Amount:      signedAmount(req.Type, req.Amount),
			Type:        req.Type,
			Description: req.Description,
			Pending:     req.Pending,
			ExpenseID:   req.ExpenseID,
			IncomeID:    req.IncomeID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AdjustBalance brings an account to target by recording the difference. For
// credit cards target is the debt owed.
func (s *transactionService) AdjustBalance(accountID string, kind models.AccountKind, target int64, description string) (*models.Transaction, error) {
	if description == "" {
		description = "Balance adjustment"
	}

	release := s.locks.Acquire(accountID)
	defer release()

	var result *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		account, err := findLedgerAccount(tx, accountID, kind)
		if err != nil {
			return err
		}
		if !account.Active() {
			return apperrors.ErrAccountInactive
		}

		rec, err := s.reconciler.Recalculate(tx, account.ID())
		if err != nil {
			return err
		}

		var amount int64
		var txnType models.TransactionType
		if account.Kind == models.AccountKindCredit {
			// More debt is an outflow on the card's ledger.
			amount = rec.Current - target
			txnType = models.TransactionTypePayment
			if amount < 0 {
				txnType = models.TransactionTypeCharge
			}
		} else {
			amount = target - rec.Current
			txnType = models.TransactionTypeDeposit
			if amount < 0 {
				txnType = models.TransactionTypeWithdrawal
			}
		}
		if amount == 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "balance already matches target")
		}

		result, _, err = appendReconciled(tx, s.store, s.reconciler, &models.Transaction{
			AccountID:   account.ID(),
			AccountKind: account.Kind,
			Date:        time.Now(),
			Amount:      amount,
			Type:        txnType,
			Description: description,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetTransactionByID retrieves a non-deleted transaction.
func (s *transactionService) GetTransactionByID(transactionID string) (*models.Transaction, error) {
	return s.store.GetByID(nil, transactionID)
}

// GetAccountTransactions retrieves a paginated, filtered list of transactions for a specific account.
func (s *transactionService) GetAccountTransactions(accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if _, err := findLedgerAccount(s.db, accountID, ""); err != nil {
		return nil, err
	}
	return s.store.ListAccount(accountID, page, filter)
}

// GetDeletedTransactions lists an account's soft-deleted transactions.
func (s *transactionService) GetDeletedTransactions(accountID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	if _, err := findLedgerAccount(s.db, accountID, ""); err != nil {
		return nil, err
	}
	return s.store.ListDeleted(accountID, page)
}

// UpdateTransaction edits a transaction's metadata. Moving it to another
// account reconciles both accounts.
func (s *transactionService) UpdateTransaction(transactionID string, edit TransactionEdit) (*models.Transaction, error) {
	txn, err := s.store.GetByID(nil, transactionID)
	if err != nil {
		return nil, err
	}

	moving := edit.AccountID != nil && *edit.AccountID != txn.AccountID
	if moving {
		if txn.TransferID != nil {
			return nil, apperrors.ErrTransferLeg
		}
		if txn.InvestmentID != nil {
			return nil, apperrors.ErrInvestmentLinked
		}
	}
	if edit.AccountKind != nil && !edit.AccountKind.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account kind must be bank or credit")
	}

	fields := TransactionUpdateFields{
		Description: edit.Description,
		Pending:     edit.Pending,
		Date:        edit.Date,
	}

	keys := []string{txn.AccountID}
	if moving {
		keys = append(keys, *edit.AccountID)
	}
	release := s.locks.Acquire(keys...)
	defer release()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if !moving {
			if txn.TransferID != nil && edit.Date != nil {
				return s.redateTransfer(tx, *txn.TransferID, txn.ID, fields)
			}
			return s.store.Update(tx, txn.ID, fields)
		}

		var kind models.AccountKind
		if edit.AccountKind != nil {
			kind = *edit.AccountKind
		}
		target, err := findLedgerAccount(tx, *edit.AccountID, kind)
		if err != nil {
			return err
		}
		if !target.Active() {
			return apperrors.ErrAccountInactive
		}
		if !typeAllowed(target.Kind, txn.Type) {
			return apperrors.ErrInvalidTransactionType
		}

		newID := target.ID()
		fields.AccountID = &newID
		fields.AccountKind = &target.Kind
		if err := s.store.Update(tx, txn.ID, fields); err != nil {
			return err
		}

		// The old account may already be gone; moving an orphan is a repair.
		if _, err := s.reconciler.Recalculate(tx, txn.AccountID); err != nil && !errors.Is(err, apperrors.ErrAccountNotFound) {
			return err
		}
		rec, err := s.reconciler.Recalculate(tx, newID)
		if err != nil {
			return err
		}
		return s.reconciler.Snapshot(tx, rec, txn.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.store.GetByID(nil, txn.ID)
}

// redateTransfer applies fields to the edited leg and moves every other leg
// and the transfer record to the same date.
func (s *transactionService) redateTransfer(tx *gorm.DB, transferID, legID string, fields TransactionUpdateFields) error {
	if err := s.store.Update(tx, legID, fields); err != nil {
		return err
	}
	legs, err := s.store.ByTransfer(tx, transferID)
	if err != nil {
		return err
	}
	for _, leg := range legs {
		if leg.ID == legID {
			continue
		}
		if err := s.store.Update(tx, leg.ID, TransactionUpdateFields{Date: fields.Date}); err != nil {
			return err
		}
	}
	if err := tx.Model(&models.Transfer{}).Where("id = ?", transferID).Update("date", *fields.Date).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// DeleteTransaction soft-deletes a transaction and reconciles its account.
// Transfer legs and investment movements must be removed through their owners.
func (s *transactionService) DeleteTransaction(transactionID string) error {
	txn, err := s.store.GetByID(nil, transactionID)
	if err != nil {
		return err
	}
	if txn.TransferID != nil {
		return apperrors.ErrTransferLeg
	}
	if txn.InvestmentID != nil {
		return apperrors.ErrInvestmentLinked
	}

	release := s.locks.Acquire(txn.AccountID)
	defer release()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.store.SoftDelete(tx, txn.ID); err != nil {
			return err
		}
		if _, err := s.reconciler.Recalculate(tx, txn.AccountID); err != nil && !errors.Is(err, apperrors.ErrAccountNotFound) {
			return err
		}
		return nil
	})
}
